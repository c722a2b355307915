package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"

	"github.com/user-none/esfmplay/esfm"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "ESFMState\x00\x00\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + seqCRC(4) + dataCRC(4)
)

// playbackSerializeSize covers the playback cursor and filter state:
// next(4) + seqTime(8) + seqAccum(4) + frameAccum(4) + resampAccum(4) +
// loopsLeft(4) + elapsed(8) + done(1) + filterPrevL(8) + filterPrevR(8)
const playbackSerializeSize = 53

// SerializeSize is the size in bytes of a save state.
const SerializeSize = stateHeaderSize + esfm.SerializeSize + playbackSerializeSize

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Serialize creates a save state and returns it as a byte slice.
func (e *Emulator) Serialize() ([]byte, error) {
	data := make([]byte, SerializeSize)

	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], e.seqCRC)

	offset := stateHeaderSize
	if err := e.chip.Serialize(data[offset:]); err != nil {
		return nil, err
	}
	offset += esfm.SerializeSize

	e.serializePlayback(data, offset)

	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)

	return data, nil
}

// Deserialize restores playback from a save state byte slice. Output
// settings (rate, filter enable, mute) are not part of the state.
func (e *Emulator) Deserialize(data []byte) error {
	if err := e.VerifyState(data); err != nil {
		return err
	}

	offset := stateHeaderSize + esfm.SerializeSize
	next := int(binary.LittleEndian.Uint32(data[offset:]))
	if next > len(e.seq.Events) {
		return errors.New("save state cursor is past the end of the sequence")
	}

	if err := e.chip.Deserialize(data[stateHeaderSize:]); err != nil {
		return err
	}
	e.deserializePlayback(data, offset)

	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (e *Emulator) VerifyState(data []byte) error {
	if len(data) < SerializeSize {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	seqCRC := binary.LittleEndian.Uint32(data[14:18])
	if seqCRC != e.seqCRC {
		return errors.New("save state is for a different sequence")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:SerializeSize])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}

// serializePlayback writes the playback cursor to the data buffer.
func (e *Emulator) serializePlayback(data []byte, offset int) int {
	binary.LittleEndian.PutUint32(data[offset:], uint32(e.next))
	offset += 4
	binary.LittleEndian.PutUint64(data[offset:], e.seqTime)
	offset += 8
	binary.LittleEndian.PutUint32(data[offset:], uint32(e.seqAccum))
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], uint32(e.frameAccum))
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], uint32(e.resampAccum))
	offset += 4
	binary.LittleEndian.PutUint32(data[offset:], uint32(e.loopsLeft))
	offset += 4
	binary.LittleEndian.PutUint64(data[offset:], e.elapsed)
	offset += 8
	data[offset] = boolByte(e.done)
	offset++
	binary.LittleEndian.PutUint64(data[offset:], math.Float64bits(e.filterPrevL))
	offset += 8
	binary.LittleEndian.PutUint64(data[offset:], math.Float64bits(e.filterPrevR))
	offset += 8
	return offset
}

// deserializePlayback reads the playback cursor from the data buffer.
func (e *Emulator) deserializePlayback(data []byte, offset int) int {
	e.next = int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4
	e.seqTime = binary.LittleEndian.Uint64(data[offset:])
	offset += 8
	e.seqAccum = int(int32(binary.LittleEndian.Uint32(data[offset:])))
	offset += 4
	e.frameAccum = int(int32(binary.LittleEndian.Uint32(data[offset:])))
	offset += 4
	e.resampAccum = int(int32(binary.LittleEndian.Uint32(data[offset:])))
	offset += 4
	e.loopsLeft = int(int32(binary.LittleEndian.Uint32(data[offset:])))
	offset += 4
	e.elapsed = binary.LittleEndian.Uint64(data[offset:])
	offset += 8
	e.done = data[offset] != 0
	offset++
	e.filterPrevL = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	e.filterPrevR = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8
	return offset
}

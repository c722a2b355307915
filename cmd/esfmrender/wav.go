package main

import (
	"encoding/binary"
	"errors"
	"io"
)

const wavHeaderSize = 44

// wavWriter streams 16-bit stereo PCM into a RIFF/WAVE container. The size
// fields are patched when the writer is closed.
type wavWriter struct {
	w       io.WriteSeeker
	rate    int
	written int64
	buf     []byte
}

// newWAVWriter writes a placeholder header to w.
func newWAVWriter(w io.WriteSeeker, rate int) (*wavWriter, error) {
	if rate <= 0 {
		return nil, errors.New("wav: invalid sample rate")
	}
	const channels = 2
	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	// Format chunk size
	binary.LittleEndian.PutUint32(header[16:20], 16)
	// Audio format (PCM)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], channels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(rate))
	// Byte rate
	binary.LittleEndian.PutUint32(header[28:32], uint32(rate*channels*2))
	// Block align
	binary.LittleEndian.PutUint16(header[32:34], channels*2)
	// Bits per sample
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")

	if _, err := w.Write(header); err != nil {
		return nil, err
	}
	return &wavWriter{w: w, rate: rate}, nil
}

// WriteSamples appends interleaved stereo samples.
func (w *wavWriter) WriteSamples(samples []int16) error {
	w.buf = w.buf[:0]
	for _, s := range samples {
		w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(s))
	}
	n, err := w.w.Write(w.buf)
	w.written += int64(n)
	return err
}

// Close patches the RIFF and data chunk sizes. It does not close the
// underlying writer.
func (w *wavWriter) Close() error {
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(w.written+wavHeaderSize-8))
	if _, err := w.w.Seek(4, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.w.Write(size[:]); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(size[:], uint32(w.written))
	if _, err := w.w.Seek(40, io.SeekStart); err != nil {
		return err
	}
	if _, err := w.w.Write(size[:]); err != nil {
		return err
	}
	_, err := w.w.Seek(0, io.SeekEnd)
	return err
}

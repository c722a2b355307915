package ui

import (
	"encoding/binary"
	"io"
	"testing"
	"time"
)

func readSamples(t *testing.T, rb *AudioRingBuffer, n int) []int16 {
	t.Helper()
	p := make([]byte, n*2)
	got, err := rb.Read(p)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	out := make([]int16, got/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(p[2*i:]))
	}
	return out
}

func TestRingBuffer_ReadWrite(t *testing.T) {
	rb := NewAudioRingBuffer(8)
	rb.WriteSamples([]int16{1, -1, 300, -300})
	if rb.Buffered() != 8 {
		t.Errorf("expected 8 bytes buffered, got %d", rb.Buffered())
	}

	got := readSamples(t, rb, 16)
	want := []int16{1, -1, 300, -300}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
	if rb.Buffered() != 0 {
		t.Errorf("expected empty buffer, got %d bytes", rb.Buffered())
	}
}

func TestRingBuffer_Wrap(t *testing.T) {
	rb := NewAudioRingBuffer(6)
	rb.WriteSamples([]int16{1, 2, 3, 4})
	readSamples(t, rb, 3)
	rb.WriteSamples([]int16{5, 6, 7, 8})

	got := readSamples(t, rb, 6)
	want := []int16{4, 5, 6, 7, 8}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestRingBuffer_OverflowDropsOldest(t *testing.T) {
	rb := NewAudioRingBuffer(4)
	rb.WriteSamples([]int16{1, 2, 3, 4})
	rb.WriteSamples([]int16{5, 6})

	got := readSamples(t, rb, 4)
	want := []int16{3, 4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}
	if rb.Dropped() != 2 {
		t.Errorf("expected 2 dropped, got %d", rb.Dropped())
	}

	rb.WriteSamples([]int16{10, 11, 12, 13, 14, 15})
	got = readSamples(t, rb, 4)
	if got[0] != 12 || got[3] != 15 {
		t.Errorf("oversized write should keep the newest samples, got %v", got)
	}
	if rb.Dropped() != 4 {
		t.Errorf("expected 4 dropped, got %d", rb.Dropped())
	}
}

func TestRingBuffer_OddRead(t *testing.T) {
	rb := NewAudioRingBuffer(4)
	rb.WriteSamples([]int16{0x1234, 0x5678})
	p := make([]byte, 3)
	n, err := rb.Read(p)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 bytes, got %d (%v)", n, err)
	}
	if p[0] != 0x34 || p[1] != 0x12 {
		t.Errorf("expected little-endian 0x1234, got %02X %02X", p[0], p[1])
	}
	if rb.Buffered() != 2 {
		t.Errorf("the second sample should remain, got %d bytes", rb.Buffered())
	}
}

func TestRingBuffer_ReadBlocksUntilWrite(t *testing.T) {
	rb := NewAudioRingBuffer(8)
	done := make(chan []int16)
	go func() {
		p := make([]byte, 4)
		n, _ := rb.Read(p)
		done <- []int16{int16(binary.LittleEndian.Uint16(p)), int16(n)}
	}()

	select {
	case <-done:
		t.Fatal("Read returned before any data was written")
	case <-time.After(20 * time.Millisecond):
	}

	rb.WriteSamples([]int16{42, 43})
	select {
	case got := <-done:
		if got[0] != 42 || got[1] != 4 {
			t.Errorf("expected sample 42 and 4 bytes, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Read did not wake after a write")
	}
}

func TestRingBuffer_Close(t *testing.T) {
	rb := NewAudioRingBuffer(8)
	rb.WriteSamples([]int16{7, 8})
	rb.Close()

	if got := readSamples(t, rb, 2); len(got) != 2 {
		t.Errorf("buffered samples should drain after close, got %v", got)
	}
	if _, err := rb.Read(make([]byte, 4)); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}

	rb.WriteSamples([]int16{1, 2})
	if rb.Buffered() != 0 {
		t.Error("writes after close should be ignored")
	}
}

func TestRingBuffer_CloseWakesReader(t *testing.T) {
	rb := NewAudioRingBuffer(8)
	errCh := make(chan error)
	go func() {
		_, err := rb.Read(make([]byte, 4))
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	rb.Close()
	select {
	case err := <-errCh:
		if err != io.EOF {
			t.Errorf("expected io.EOF, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake the reader")
	}
}

func TestRingBuffer_Clear(t *testing.T) {
	rb := NewAudioRingBuffer(8)
	rb.WriteSamples([]int16{1, 2, 3})
	rb.Clear()
	if rb.Buffered() != 0 {
		t.Errorf("expected empty buffer after Clear, got %d bytes", rb.Buffered())
	}
}

package gpio

import (
	"errors"
	"testing"
)

func TestFakeReaderRead(t *testing.T) {
	samples := []Sample{
		{26: true, 16: false},
		{26: false, 16: true},
	}

	f := NewFakeReader(samples)

	got, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got[26] || got[16] {
		t.Errorf("sample 0: expected {26:true 16:false}, got %v", got)
	}

	got, err = f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[26] || !got[16] {
		t.Errorf("sample 1: expected {26:false 16:true}, got %v", got)
	}

	// Third read should repeat last sample
	got, _ = f.Read()
	if got[26] || !got[16] {
		t.Errorf("sample 2 (repeat): expected {26:false 16:true}, got %v", got)
	}
}

func TestFakeReaderReturnsCopy(t *testing.T) {
	f := NewFakeReader([]Sample{{5: true}})
	got, _ := f.Read()
	got[5] = false

	again, _ := f.Read()
	if !again[5] {
		t.Error("modifying a read result should not change the script")
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader(nil)

	if _, err := f.Read(); err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([]Sample{{1: true}})
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeReaderCloseAndReset(t *testing.T) {
	f := NewFakeReader([]Sample{{1: true}, {1: false}})

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Read()
	f.Reset()
	if f.Closed {
		t.Error("Reset should clear Closed")
	}
	got, _ := f.Read()
	if !got[1] {
		t.Errorf("after reset: expected first sample, got %v", got)
	}
}

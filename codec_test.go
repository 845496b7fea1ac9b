package vad

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestPCM16RoundTrip(t *testing.T) {
	// P6: round-trip pcm16_to_f32 ∘ f32_to_pcm16 bounded by 1/32768.
	const tolerance = 1.0 / 32768.0
	for _, x := range []float32{-1, -0.5, -0.001, 0, 0.001, 0.5, 0.999} {
		got := PCM16ToF32(F32ToPCM16(x))
		if diff := math.Abs(float64(got - x)); diff > tolerance {
			t.Errorf("round trip %v -> %v, diff %v exceeds tolerance %v", x, got, diff, tolerance)
		}
	}
}

func TestF32ToPCM16Clamps(t *testing.T) {
	if got := F32ToPCM16(2.0); got != 32767 {
		t.Errorf("expected clamp to 32767, got %d", got)
	}
	if got := F32ToPCM16(-2.0); got != -32767 {
		t.Errorf("expected clamp to -32767, got %d", got)
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	// Scenario 6: encoding N samples at 24000Hz yields a 44-byte header
	// with bytes 24-27 = sample rate LE and 28-31 = byte rate LE.
	samples := make([]float32, 100)
	buf := EncodeWAV(samples, 24000)

	if len(buf) != 44+200 {
		t.Fatalf("expected %d bytes, got %d", 44+200, len(buf))
	}
	if string(buf[0:4]) != "RIFF" {
		t.Errorf("expected RIFF, got %q", buf[0:4])
	}
	if string(buf[8:12]) != "WAVE" {
		t.Errorf("expected WAVE, got %q", buf[8:12])
	}
	if string(buf[12:16]) != "fmt " {
		t.Errorf("expected 'fmt ', got %q", buf[12:16])
	}
	wantSR := []byte{0x00, 0x5D, 0xC4, 0x00}
	if got := buf[24:28]; !bytesEqual(got, wantSR) {
		t.Errorf("sample rate bytes = % x, want % x", got, wantSR)
	}
	wantByteRate := []byte{0x00, 0xBB, 0x00, 0x00}
	if got := buf[28:32]; !bytesEqual(got, wantByteRate) {
		t.Errorf("byte rate bytes = % x, want % x", got, wantByteRate)
	}
	if bitsPerSample := binary.LittleEndian.Uint16(buf[34:36]); bitsPerSample != 16 {
		t.Errorf("bits per sample = %d, want 16", bitsPerSample)
	}
	if string(buf[36:40]) != "data" {
		t.Errorf("expected 'data', got %q", buf[36:40])
	}
	if dataSize := binary.LittleEndian.Uint32(buf[40:44]); dataSize != 200 {
		t.Errorf("data size = %d, want 200", dataSize)
	}
}

func TestEncodeWAVClampsOutOfRangeSamples(t *testing.T) {
	buf := EncodeWAV([]float32{2.0, -2.0}, 16000)
	got0 := int16(binary.LittleEndian.Uint16(buf[44:46]))
	got1 := int16(binary.LittleEndian.Uint16(buf[46:48]))
	if got0 != 32767 || got1 != -32767 {
		t.Errorf("clamped samples = (%d, %d), want (32767, -32767)", got0, got1)
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

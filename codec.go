package vad

import (
	"encoding/binary"
	"math"
)

// PCM16ToF32 converts a single little-endian 16-bit PCM sample to float32 in
// [-1, 1) (spec §4.2).
func PCM16ToF32(x int16) float32 {
	return float32(x) / 32768.0
}

// F32ToPCM16 converts a float32 sample (expected in [-1, 1]) to 16-bit PCM,
// clamping out-of-range input before scaling (spec §4.2, §6 "clamped at WAV
// encode time, never at the detector input").
func F32ToPCM16(x float32) int16 {
	if x < -1 {
		x = -1
	}
	if x > 1 {
		x = 1
	}
	return int16(math.Round(float64(x) * 32767.0))
}

// PCM16SliceToF32 converts a buffer of little-endian 16-bit PCM samples to
// float32, one call per sample via PCM16ToF32.
func PCM16SliceToF32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, x := range in {
		out[i] = PCM16ToF32(x)
	}
	return out
}

// F32SliceToPCM16 is the inverse of PCM16SliceToF32.
func F32SliceToPCM16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, x := range in {
		out[i] = F32ToPCM16(x)
	}
	return out
}

// EncodeWAV renders samples as a mono 16-bit PCM WAV file (spec §6): RIFF/WAVE
// container, fmt chunk (format code 1, 16 bits/sample), then the data chunk.
// Out-of-range float samples are clamped by F32ToPCM16, never rejected.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := len(samples) * 2
	fileSize := 36 + dataSize

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(fileSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM format code
	binary.LittleEndian.PutUint16(buf[22:24], uint16(numChannels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bitsPerSample))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	off := 44
	for _, s := range samples {
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(F32ToPCM16(s)))
		off += 2
	}
	return buf
}

package tts

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestPCMToWAVHeader(t *testing.T) {
	pcm := make([]byte, 48000)
	for i := range pcm {
		pcm[i] = byte(i % 251)
	}

	out := pcmToWAV(pcm, 24000, 1, 16)

	if len(out) != 44+48000 {
		t.Fatalf("expected %d bytes, got %d", 44+48000, len(out))
	}
	if string(out[0:4]) != "RIFF" {
		t.Errorf("bytes 0-3 = %q, want RIFF", out[0:4])
	}
	if got := binary.LittleEndian.Uint32(out[4:8]); got != 36+48000 {
		t.Errorf("RIFF chunk size = %d, want %d", got, 36+48000)
	}
	if string(out[8:12]) != "WAVE" {
		t.Errorf("bytes 8-11 = %q, want WAVE", out[8:12])
	}
	if string(out[12:16]) != "fmt " {
		t.Errorf("bytes 12-15 = %q, want 'fmt '", out[12:16])
	}
	if got := binary.LittleEndian.Uint32(out[16:20]); got != 16 {
		t.Errorf("fmt subchunk size = %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint16(out[20:22]); got != 1 {
		t.Errorf("format tag = %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(out[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 24000 {
		t.Errorf("sample rate = %d, want 24000", got)
	}
	if got := binary.LittleEndian.Uint32(out[28:32]); got != 48000 {
		t.Errorf("byte rate = %d, want 48000", got)
	}
	if got := binary.LittleEndian.Uint16(out[32:34]); got != 2 {
		t.Errorf("block align = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint16(out[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
	if string(out[36:40]) != "data" {
		t.Errorf("bytes 36-39 = %q, want data", out[36:40])
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != 48000 {
		t.Errorf("data subchunk size = %d, want 48000", got)
	}
	if !bytes.Equal(out[44:], pcm) {
		t.Error("payload bytes differ from input PCM")
	}
}

func TestPCMToWAVEmptyPayload(t *testing.T) {
	out := pcmToWAV(nil, 24000, 1, 16)
	if len(out) != 44 {
		t.Fatalf("expected bare 44-byte header, got %d bytes", len(out))
	}
	if got := binary.LittleEndian.Uint32(out[4:8]); got != 36 {
		t.Errorf("RIFF chunk size = %d, want 36", got)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != 0 {
		t.Errorf("data subchunk size = %d, want 0", got)
	}
}

package tts

import "encoding/binary"

// Default sample parameters of the generative model's raw PCM output.
const (
	pcmSampleRate    = 24000
	pcmNumChannels   = 1
	pcmBitsPerSample = 16
)

const wavHeaderSize = 44

// pcmToWAV wraps raw little-endian PCM samples in a standard RIFF/WAVE
// container: RIFF chunk size = 36 + dataSize, a fixed 16-byte fmt subchunk
// with format tag 1 (PCM), and a data subchunk of dataSize bytes.
func pcmToWAV(pcm []byte, sampleRate, numChannels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	blockAlign := numChannels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	out := make([]byte, wavHeaderSize+dataSize)
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1)
	binary.LittleEndian.PutUint16(out[22:24], uint16(numChannels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], uint16(bitsPerSample))

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	copy(out[wavHeaderSize:], pcm)
	return out
}

// Package audio provides WAV framing and decoding shared by the
// transcription server's upload handler, the whisper.cpp decoder backend,
// and the remote transcriber adapter. Grounded on the RIFF encoder pattern
// used elsewhere in this codebase's lineage for wrapping raw PCM as WAV.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"

	"transcription-core/internal/decoder"
)

const (
	bitsPerSample = 16
	numChannels   = 1
)

// EncodeWAV converts a mono float32 [-1, 1] buffer to 16-bit PCM and wraps
// it in a standard 44-byte RIFF/WAVE header, in memory, with no temporary
// files (§4.2).
func EncodeWAV(buf decoder.AudioBuffer) []byte {
	pcm := make([]byte, len(buf.Samples)*2)
	for i, s := range buf.Samples {
		if s > 1 {
			s = 1
		}
		if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}

	byteRate := buf.SampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataLen := len(pcm)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(numChannels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(buf.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	out := make([]byte, 0, len(header)+len(pcm))
	out = append(out, header...)
	out = append(out, pcm...)
	return out
}

// DecodeWAV parses a 16-bit PCM mono or stereo WAV file into a mono
// float32 AudioBuffer. Stereo input is downmixed by averaging channels.
func DecodeWAV(raw []byte) (decoder.AudioBuffer, error) {
	if len(raw) < 44 {
		return decoder.AudioBuffer{}, fmt.Errorf("audio: too short to be a WAV file (%d bytes)", len(raw))
	}
	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return decoder.AudioBuffer{}, fmt.Errorf("audio: not a RIFF/WAVE file")
	}

	var (
		channels      uint16
		sampleRate    uint32
		bitsPerSample uint16
		audioFormat   uint16
		dataOffset    = -1
		dataSize      = 0
	)

	pos := 12
	for pos+8 <= len(raw) {
		chunkID := string(raw[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		body := pos + 8

		switch chunkID {
		case "fmt ":
			if body+16 > len(raw) {
				return decoder.AudioBuffer{}, fmt.Errorf("audio: truncated fmt chunk")
			}
			audioFormat = binary.LittleEndian.Uint16(raw[body : body+2])
			channels = binary.LittleEndian.Uint16(raw[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(raw[body+4 : body+8])
			bitsPerSample = binary.LittleEndian.Uint16(raw[body+14 : body+16])
		case "data":
			dataOffset = body
			dataSize = chunkSize
		}

		pos = body + chunkSize
		if chunkSize%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if dataOffset < 0 {
		return decoder.AudioBuffer{}, fmt.Errorf("audio: no data chunk found")
	}
	if audioFormat != 1 {
		return decoder.AudioBuffer{}, fmt.Errorf("audio: only PCM format is supported, got format %d", audioFormat)
	}
	if bitsPerSample != 16 {
		return decoder.AudioBuffer{}, fmt.Errorf("audio: only 16-bit PCM is supported, got %d bits", bitsPerSample)
	}
	if channels == 0 {
		channels = 1
	}

	end := dataOffset + dataSize
	if end > len(raw) {
		end = len(raw)
	}
	raw = raw[dataOffset:end]

	frameBytes := int(channels) * 2
	numFrames := len(raw) / frameBytes
	samples := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		var sum int32
		for c := 0; c < int(channels); c++ {
			off := i*frameBytes + c*2
			v := int16(binary.LittleEndian.Uint16(raw[off : off+2]))
			sum += int32(v)
		}
		samples[i] = float32(float64(sum)/float64(channels)) / 32768.0
	}

	return decoder.AudioBuffer{Samples: samples, SampleRate: int(sampleRate)}, nil
}

// Resample16kMono resamples a buffer to 16 kHz mono via linear
// interpolation. A no-op when the buffer is already at 16 kHz (§3 Audio
// Buffer invariant: "on entry to the decoder, the buffer is resampled to
// 16 kHz mono and made contiguous in memory").
func Resample16kMono(buf decoder.AudioBuffer) decoder.AudioBuffer {
	const target = 16000
	if buf.SampleRate == target || buf.SampleRate <= 0 || len(buf.Samples) == 0 {
		if buf.SampleRate == target {
			return buf
		}
		return decoder.AudioBuffer{Samples: append([]float32(nil), buf.Samples...), SampleRate: target}
	}

	ratio := float64(target) / float64(buf.SampleRate)
	outLen := int(math.Round(float64(len(buf.Samples)) * ratio))
	out := make([]float32, outLen)
	for i := range out {
		srcPos := float64(i) / ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)
		if idx+1 < len(buf.Samples) {
			out[i] = buf.Samples[idx] + float32(frac)*(buf.Samples[idx+1]-buf.Samples[idx])
		} else if idx < len(buf.Samples) {
			out[i] = buf.Samples[idx]
		}
	}
	return decoder.AudioBuffer{Samples: out, SampleRate: target}
}

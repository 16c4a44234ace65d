package rta

import "transcription-core/internal/decoder"

func audioBuffer() decoder.AudioBuffer {
	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = 0.2
	}
	return decoder.AudioBuffer{Samples: samples, SampleRate: 16000}
}

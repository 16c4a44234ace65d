// Command audioclient is a demo client for the Remote Transcriber Adapter
// (§4.2): it reads a local WAV file, sends it through internal/rta against
// a configured remote transcriber URL, and prints the normalized result.
package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"transcription-core/internal/decoder"
	"transcription-core/internal/rta"
)

const wavHeaderSize = 44

func main() {
	audioFile := flag.String("audio", "../testdata/sample.wav", "Path to a 16-bit PCM WAV file")
	apiURL := flag.String("url", os.Getenv("REMOTE_TRANSCRIBER_URL"), "Remote transcriber endpoint URL")
	apiKey := flag.String("key", os.Getenv("REMOTE_TRANSCRIBER_API_KEY"), "Remote transcriber API key")
	language := flag.String("language", "", "Language name or ISO-639-1 code (empty = auto-detect)")
	task := flag.String("task", "transcribe", "transcribe or translate")
	flag.Parse()

	if *apiURL == "" {
		log.Fatal("a remote transcriber URL is required: pass -url or set REMOTE_TRANSCRIBER_URL")
	}

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("failed to open audio file: %v", err)
	}
	defer f.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("failed to read WAV header: %v", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)

	if audioFormat != 1 {
		log.Fatal("only PCM format is supported")
	}
	if bitsPerSample != 16 {
		log.Fatal("only 16-bit PCM is supported")
	}

	pcm, err := io.ReadAll(f)
	if err != nil {
		log.Fatalf("failed to read audio data: %v", err)
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(v) / 32768.0
	}
	buf := decoder.AudioBuffer{Samples: samples, SampleRate: int(sampleRate)}

	client := rta.New(rta.Config{URL: *apiURL, APIKey: *apiKey, Model: "default"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	start := time.Now()
	segments, info, err := client.Transcribe(ctx, buf, rta.Options{Language: *language, Task: *task})
	elapsed := time.Since(start)

	if overloaded, ok := err.(*rta.Overloaded); ok {
		log.Fatalf("remote transcriber overloaded: %v (retry after %.1fs)", overloaded, overloaded.RetryAfterS)
	}
	if err != nil {
		log.Fatalf("transcription failed: %v", err)
	}

	log.Printf("transcription completed in %v: language=%s probability=%.2f duration=%.2fs segments=%d",
		elapsed, info.Language, info.LanguageProbability, info.Duration, len(segments))

	out, _ := json.MarshalIndent(map[string]any{"info": info, "segments": segments}, "", "  ")
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
}

// Command testclient fires a burst of concurrent requests at the
// transcription server's HTTP endpoint to exercise the §8 admission
// control scenarios (two accepted/third shed under fail-fast, or queue
// saturation when fail-fast is disabled) against a running server.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

func main() {
	serverURL := flag.String("url", "http://localhost:8000/v1/audio/transcriptions", "Transcription server URL")
	apiKey := flag.String("key", "", "API key, if the server requires one")
	requests := flag.Int("n", 4, "Number of concurrent requests to fire")
	flag.Parse()

	var wg sync.WaitGroup
	results := make([]string, *requests)

	start := time.Now()
	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, retryAfter, err := send(*serverURL, *apiKey)
			if err != nil {
				results[i] = fmt.Sprintf("request %d: error: %v", i, err)
				return
			}
			if status == http.StatusServiceUnavailable {
				results[i] = fmt.Sprintf("request %d: shed (503, Retry-After=%s)", i, retryAfter)
			} else {
				results[i] = fmt.Sprintf("request %d: accepted (%d)", i, status)
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	for _, r := range results {
		log.Println(r)
	}
	log.Printf("%d requests completed in %v", *requests, elapsed)
}

func send(url, apiKey string) (status int, retryAfter string, err error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "silence.wav")
	if err != nil {
		return 0, "", err
	}
	if _, err := part.Write(silentWAV()); err != nil {
		return 0, "", err
	}
	_ = writer.WriteField("model", "default")
	if err := writer.Close(); err != nil {
		return 0, "", err
	}

	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

// silentWAV builds a minimal one-second 16kHz mono silent WAV payload.
func silentWAV() []byte {
	const sampleRate = 16000
	dataLen := sampleRate * 2
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	putUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	putUint32(header[16:20], 16)
	putUint16(header[20:22], 1)
	putUint16(header[22:24], 1)
	putUint32(header[24:28], sampleRate)
	putUint32(header[28:32], sampleRate*2)
	putUint16(header[32:34], 2)
	putUint16(header[34:36], 16)
	copy(header[36:40], "data")
	putUint32(header[40:44], uint32(dataLen))

	out := make([]byte, 0, len(header)+dataLen)
	out = append(out, header...)
	out = append(out, make([]byte, dataLen)...)
	return out
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

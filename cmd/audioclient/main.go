package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// audioKeyHeader carries the caller's TTS provider key.
const audioKeyHeader = "X-Audioservice-Key"

func main() {
	serverAddr := flag.String("server", "http://localhost:8080", "HTTP server base URL")
	scriptID := flag.Int64("script", 1, "Script ID")
	scope := flag.String("scope", "document", "Render scope: selection or document")
	apiKey := flag.String("key", os.Getenv("TTS_API_KEY"), "TTS provider key")
	out := flag.String("out", "", "Output file (default script-<id>.mp3)")
	flag.Parse()

	if *out == "" {
		*out = fmt.Sprintf("script-%d.mp3", *scriptID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/v1/scripts/%d/document/audio?scope=%s", *serverAddr, *scriptID, *scope)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	if *apiKey != "" {
		req.Header.Set(audioKeyHeader, *apiKey)
	}

	log.Printf("Rendering script %d (%s)", *scriptID, *scope)
	start := time.Now()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Fatalf("Render failed: %s: %s", resp.Status, body)
	}

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		log.Fatalf("Failed to write audio: %v", err)
	}

	log.Printf("Wrote %d bytes to %s in %v (key=%s cached=%s)",
		n, *out, time.Since(start), resp.Header.Get("X-Render-Key"), resp.Header.Get("X-Render-Cached"))
}

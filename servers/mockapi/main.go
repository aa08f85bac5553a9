// servers/mockapi/main.go
package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mwiater/chatbench/internal/mockapi"
)

func main() {
	path := filepath.Join("servers", "mockapi", "mockapi.yml")
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := mockapi.LoadConfig(path)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mockapi.New(cfg).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("mockapi config: models=%d latency_ms=%d chunk_delay_ms=%d chunks=%d fail_every=%d", len(cfg.Models), cfg.LatencyMS, cfg.ChunkDelayMS, cfg.Chunks, cfg.FailEvery)
	log.Printf("listening on %s (GOOS=%s); point SUDO_API_BASE_URL at http://%s", srv.Addr, runtime.GOOS, srv.Addr)
	log.Fatal(srv.ListenAndServe())
}

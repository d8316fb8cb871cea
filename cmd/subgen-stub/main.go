// Command subgen-stub runs the in-memory backend stub. It speaks the same
// HTTP and SSE surface as the real subtitle service, with a scripted pipeline
// instead of actual media processing, so the client and dashboard can be
// exercised without a backend deployment.
package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"subgen/config"
	"subgen/server"
)

func main() {
	config.Load()

	addr := flag.String("addr", ":5000", "Listen address")
	stepDelay := flag.Duration("step-delay", 300*time.Millisecond, "Pause between scripted pipeline events")
	flag.Parse()

	s := server.New()
	s.StepDelay = *stepDelay

	log.Printf("Starting stub backend on %s", *addr)
	log.Println("API endpoints available:")
	log.Println("  POST /api/auth/signup")
	log.Println("  POST /api/auth/login")
	log.Println("  GET  /api/auth/validate")
	log.Println("  POST /api/auth/logout")
	log.Println("  PUT  /api/auth/update-profile")
	log.Println("  POST /api/video/upload")
	log.Println("  POST /api/video/process")
	log.Println("  GET  /api/video/process (SSE)")
	log.Println("  GET  /api/video/status/:id")
	log.Println("  POST /api/video/update_subtitles/:id")
	log.Println("  GET  /api/video/regenerate/:id (SSE)")
	log.Println("  GET  /api/video/download/:id")

	if err := http.ListenAndServe(*addr, s.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

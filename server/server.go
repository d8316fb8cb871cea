// Package server is a development stand-in for the subtitle backend. It
// reproduces the wire contract — auth routes, multipart upload, the SSE
// progress streams, status polling and download — over in-memory storage,
// with a scripted pipeline in place of real transcription and encoding.
// It exists so the client, the workflow machine and the dashboard can be
// exercised end to end without the production service.
package server

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"subgen/types"
)

// Server holds the stub backend's in-memory state.
type Server struct {
	mu     sync.RWMutex
	users  map[string]*userRecord  // keyed by email
	tokens map[string]string       // token -> email
	videos map[string]*videoRecord // keyed by video id

	// StepDelay is the pause between scripted pipeline events. Tests set it
	// near zero; the default is slow enough to watch in the dashboard.
	StepDelay time.Duration
}

type userRecord struct {
	ID       string
	Name     string
	Email    string
	Password string
}

type videoRecord struct {
	Owner      string
	Filename   string
	Status     string
	Progress   int
	Error      string
	Segments   []types.Segment
	OutputPath string
	Data       []byte
}

// New creates an empty stub backend.
func New() *Server {
	return &Server{
		users:     make(map[string]*userRecord),
		tokens:    make(map[string]string),
		videos:    make(map[string]*videoRecord),
		StepDelay: 300 * time.Millisecond,
	}
}

// Router constructs a Gin engine with registered routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/signup", s.handleSignup)
		auth.POST("/login", s.handleLogin)
		auth.GET("/validate", s.requireAuth, s.handleValidate)
		auth.POST("/logout", s.requireAuth, s.handleLogout)
		auth.PUT("/update-profile", s.requireAuth, s.handleUpdateProfile)
	}

	video := api.Group("/video", s.requireAuth)
	{
		video.POST("/upload", s.handleUpload)
		video.POST("/process", s.handleStartProcessing)
		video.GET("/process", s.handleProcessStream)
		video.GET("/status/:id", s.handleStatus)
		video.POST("/update_subtitles/:id", s.handleUpdateSubtitles)
		video.GET("/regenerate/:id", s.handleRegenerateStream)
		video.GET("/download/:id", s.handleDownload)
	}

	return r
}

package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"subgen/types"
)

// The scripted pipeline walks the same stage labels the production service
// emits. No transcription or encoding happens here; the point is to exercise
// clients against a faithful event sequence.

func intp(v int) *int { return &v }

func sampleSegments() []types.Segment {
	return []types.Segment{
		{Start: 0, End: 2.4, Text: "Hello and welcome."},
		{Start: 2.4, End: 5.1, Text: "This video has subtitles."},
		{Start: 5.1, End: 8.0, Text: "Generated just for you."},
	}
}

// processingScript is the full pipeline: extract, detect, transcribe,
// translate, render.
func processingScript(videoID, targetLang string) []types.StreamEvent {
	segments := sampleSegments()
	return []types.StreamEvent{
		{Progress: intp(5), Step: "Initializing"},
		{Progress: intp(15), Step: "Extracting audio"},
		{Progress: intp(25), Step: "Detecting language", DetectedLanguage: "en"},
		{Progress: intp(45), Step: "Transcribing", Transcription: "Hello and welcome. This video has subtitles. Generated just for you.", Segments: segments},
		{Progress: intp(65), Step: "Translating", Segments: segments},
		{Progress: intp(75), Step: "Generating subtitles"},
		{Progress: intp(90), Step: "Adding subtitles"},
		{Progress: intp(95), Step: "Finalizing"},
		{Progress: intp(100), Step: "Completed", OutputPath: "/output/" + videoID + ".mp4", Segments: segments},
	}
}

// regenerateScript is the shorter re-render pipeline, mirroring the
// production service's 30/60/90/100 sequence.
func regenerateScript(videoID string, segments []types.Segment) []types.StreamEvent {
	if len(segments) == 0 {
		segments = sampleSegments()
	}
	return []types.StreamEvent{
		{Progress: intp(30), Step: "Generating subtitles"},
		{Progress: intp(60), Step: "Processing video"},
		{Progress: intp(90), Step: "Finalizing"},
		{Progress: intp(100), Step: "Completed", OutputPath: "/output/" + videoID + ".mp4", Segments: segments},
	}
}

// streamPipeline plays a script over SSE, mirroring each event into the
// video record so status polling agrees with the stream.
func (s *Server) streamPipeline(c *gin.Context, videoID string, script []types.StreamEvent) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}

	for i, ev := range script {
		if i > 0 {
			select {
			case <-c.Request.Context().Done():
				return
			case <-time.After(s.StepDelay):
			}
		}

		s.recordEvent(videoID, ev)

		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

// streamError emits a single terminal error frame, matching how the
// production service reports failures on SSE endpoints.
func (s *Server) streamError(c *gin.Context, msg string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	fmt.Fprintf(c.Writer, "data: %s\n\n", mustJSON(types.StreamEvent{Error: msg}))
}

func mustJSON(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return raw
}

// recordEvent mirrors a stream event into the stored video record.
func (s *Server) recordEvent(videoID string, ev types.StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[videoID]
	if !ok {
		return
	}
	if ev.Progress != nil {
		video.Progress = *ev.Progress
	}
	if ev.Segments != nil {
		video.Segments = append([]types.Segment(nil), ev.Segments...)
	}
	if ev.OutputPath != "" {
		video.OutputPath = ev.OutputPath
		video.Status = "completed"
	} else if ev.Error != "" {
		video.Status = "failed"
		video.Error = ev.Error
	} else {
		video.Status = "processing"
	}
}

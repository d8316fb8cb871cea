package server

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"subgen/config"
	"subgen/types"
)

func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video file provided"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !config.IsAllowedVideoExtension(ext) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type. Allowed types: mp4, mov, avi, mkv"})
		return
	}
	if file.Size > config.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File size exceeds maximum limit (500MB)"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process upload"})
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process upload"})
		return
	}

	videoID := uuid.NewString()
	s.mu.Lock()
	s.videos[videoID] = &videoRecord{
		Owner:    c.GetString("email"),
		Filename: file.Filename,
		Status:   "uploaded",
		Data:     data,
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"message":  "Video uploaded successfully",
		"video_id": videoID,
		"filename": file.Filename,
	})
}

func (s *Server) handleStartProcessing(c *gin.Context) {
	var req struct {
		VideoID        string `json:"video_id"`
		TargetLanguage string `json:"target_language"`
		FontSize       int    `json:"font_size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.VideoID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video ID format"})
		return
	}

	s.mu.RLock()
	_, ok := s.videos[req.VideoID]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processing_started"})
}

func (s *Server) handleProcessStream(c *gin.Context) {
	videoID := c.Query("video_id")
	targetLang := c.DefaultQuery("target_language", config.DefaultTargetLanguage)

	s.mu.RLock()
	_, ok := s.videos[videoID]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	s.streamPipeline(c, videoID, processingScript(videoID, targetLang))
}

func (s *Server) handleRegenerateStream(c *gin.Context) {
	videoID := c.Param("id")

	var segments []types.Segment
	if raw := c.Query("segments"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &segments); err != nil {
			s.streamError(c, "Invalid segments data")
			return
		}
	}

	s.mu.RLock()
	_, ok := s.videos[videoID]
	s.mu.RUnlock()
	if !ok {
		s.streamError(c, "Video not found")
		return
	}

	s.streamPipeline(c, videoID, regenerateScript(videoID, segments))
}

func (s *Server) handleStatus(c *gin.Context) {
	videoID := c.Param("id")

	s.mu.RLock()
	video, ok := s.videos[videoID]
	if !ok {
		s.mu.RUnlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}
	resp := types.StatusResponse{
		Status:   video.Status,
		Progress: video.Progress,
		Error:    video.Error,
		Segments: append([]types.Segment(nil), video.Segments...),
	}
	if video.Status == "completed" && video.OutputPath != "" {
		resp.OutputPath = video.OutputPath
		resp.DownloadURL = "/api/video/download/" + videoID
	}
	s.mu.RUnlock()

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleUpdateSubtitles(c *gin.Context) {
	videoID := c.Param("id")

	var req struct {
		Segments []types.Segment `json:"segments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Segments) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Segments data is required"})
		return
	}
	if err := types.ValidateSegments(req.Segments); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subtitle format: " + err.Error()})
		return
	}

	s.mu.Lock()
	video, ok := s.videos[videoID]
	if !ok {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}
	video.Segments = append([]types.Segment(nil), req.Segments...)
	video.Status = "processing"
	video.Progress = 0
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"message":  "Subtitles updated successfully",
		"video_id": videoID,
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	videoID := c.Param("id")

	s.mu.RLock()
	video, ok := s.videos[videoID]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}
	if video.Status != "completed" || video.OutputPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Video processing not completed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="subtitled_`+video.Filename+`"`)
	c.Header("Content-Length", strconv.Itoa(len(video.Data)))
	c.Data(http.StatusOK, "video/mp4", video.Data)
}

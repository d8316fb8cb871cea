package types

// StreamEvent is one decoded message from a processing or regenerate stream.
// The backend treats every field as optional, so consumers must merge
// defensively instead of assuming a fixed shape.
type StreamEvent struct {
	Progress         *int      `json:"progress,omitempty"`
	Step             string    `json:"step,omitempty"`
	Status           string    `json:"status,omitempty"`
	Error            string    `json:"error,omitempty"`
	DetectedLanguage string    `json:"detected_language,omitempty"`
	Transcription    string    `json:"transcription,omitempty"`
	Segments         []Segment `json:"segments,omitempty"`
	OutputPath       string    `json:"output_path,omitempty"`
}

// Completed reports whether this event is the backend's completion signal:
// full progress AND a confirmed artifact location. Progress hitting 100 on
// its own is not completion; the backend can report 100% before the output
// file is finalized.
func (e StreamEvent) Completed() bool {
	return e.Progress != nil && *e.Progress == 100 && e.OutputPath != ""
}

// StatusResponse is the backend's answer to a status poll.
type StatusResponse struct {
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	Error       string    `json:"error,omitempty"`
	Segments    []Segment `json:"segments,omitempty"`
	OutputPath  string    `json:"output_path,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
}

// UploadResult is returned after a successful video upload.
type UploadResult struct {
	VideoID  string `json:"video_id"`
	Filename string `json:"filename"`
	Message  string `json:"message,omitempty"`
}

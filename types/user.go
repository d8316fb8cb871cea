package types

import (
	"os"
	"path/filepath"
	"time"
)

// User is the profile the backend returns alongside a session token.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse is the body of a successful login or signup.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
	Message     string `json:"message,omitempty"`
}

// ProfileUpdate carries the fields a user may change. Empty fields are
// left untouched by the backend.
type ProfileUpdate struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// UploadDescriptor remembers the last uploaded video across restarts so the
// dashboard can offer regeneration without a fresh upload.
type UploadDescriptor struct {
	VideoID    string    `json:"video_id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// NewUploadDescriptor builds the descriptor for a just-uploaded file. Size is
// best-effort; a file removed since the upload records zero.
func NewUploadDescriptor(videoID, path string) UploadDescriptor {
	d := UploadDescriptor{
		VideoID:    videoID,
		Filename:   filepath.Base(path),
		UploadedAt: time.Now(),
	}
	if info, err := os.Stat(path); err == nil {
		d.Size = info.Size()
	}
	return d
}

// Package session owns the persisted authentication state: the bearer token,
// the user profile, and the descriptor of the last uploaded video. Everything
// that needs a credential receives a Provider explicitly; nothing reads the
// session ambiently.
package session

import "subgen/types"

// Provider is the capability handed to transport clients: read the current
// token, and invalidate the session when the backend rejects it.
type Provider interface {
	Token() string
	Invalidate()
}

// data is the on-disk session shape.
type data struct {
	Token      string                  `json:"token,omitempty"`
	User       *types.User             `json:"user,omitempty"`
	LastUpload *types.UploadDescriptor `json:"last_upload,omitempty"`
}

package workflow

import (
	"context"

	"subgen/client"
	"subgen/types"
)

// Stream is a live progress subscription as the machine sees it: an ordered,
// cancellable sequence of results whose channel closes when the connection
// ends.
type Stream interface {
	Events() <-chan client.StreamResult
	Close()
}

// Transport is the boundary the machine drives. *client.Client provides the
// real implementation via ClientTransport; tests substitute fakes.
type Transport interface {
	Upload(ctx context.Context, path string) (*types.UploadResult, error)
	StartProcessing(ctx context.Context, videoID, targetLanguage string, fontSize int) error
	OpenProcessingStream(ctx context.Context, videoID, targetLanguage string, fontSize int) (Stream, error)
	OpenRegenerateStream(ctx context.Context, videoID string, segments []types.Segment, fontSize int, targetLanguage string) (Stream, error)
	Status(ctx context.Context, videoID string) (*types.StatusResponse, error)
	DownloadURL(videoID string) string
}

// ClientTransport adapts *client.Client to the Transport interface. Only the
// stream constructors need wrapping; the other methods line up as-is.
type ClientTransport struct {
	*client.Client
}

func (t ClientTransport) OpenProcessingStream(ctx context.Context, videoID, targetLanguage string, fontSize int) (Stream, error) {
	return t.Client.OpenProcessingStream(ctx, videoID, targetLanguage, fontSize)
}

func (t ClientTransport) OpenRegenerateStream(ctx context.Context, videoID string, segments []types.Segment, fontSize int, targetLanguage string) (Stream, error) {
	return t.Client.OpenRegenerateStream(ctx, videoID, segments, fontSize, targetLanguage)
}

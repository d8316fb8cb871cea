package workflow

import (
	"context"
	"time"

	"subgen/types"
)

// poll is the status reconciliation poller. Some backends report 100%
// progress a beat before the artifact is actually fetchable, so after a
// stream completes we re-query status until the backend confirms an output
// location. It has no retry limit of its own; it stops on confirmation or
// when Reset or a new command cancels it.
func (m *Machine) poll(ctx context.Context, gen int, videoID string) {
	ticker := time.NewTicker(m.cfg.StatusPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, err := m.transport.Status(ctx, videoID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.log(gen, "Status poll failed: "+err.Error())
				continue
			}

			if status.OutputPath == "" {
				continue
			}

			m.confirmArtifact(gen, status.Segments)
			return
		}
	}
}

// confirmArtifact records the poller's confirmation: segments the stream
// never delivered are adopted, and the poller disarms itself.
func (m *Machine) confirmArtifact(gen int, segments []types.Segment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}

	if len(segments) > 0 && len(m.state.Segments) == 0 {
		m.state.Segments = append([]types.Segment(nil), segments...)
	}
	m.appendLogLocked("Output artifact confirmed")

	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
}

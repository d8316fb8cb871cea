// Package workflow owns the video processing state machine: the single
// source of truth for one upload-through-download lifecycle. It drives the
// transport, folds stream events into WorkflowState, applies the bounded
// reconnect policy, and runs the status reconciliation poller after
// completion. Presentation layers read snapshots and issue commands; they
// never mutate state directly.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"subgen/client"
	"subgen/config"
	"subgen/types"
)

// ErrConnectionLost is reported when the processing stream could not be kept
// alive within the reconnect budget.
var ErrConnectionLost = errors.New("connection to processing stream lost")

// ErrSuperseded is returned to a command whose workflow was torn down by a
// newer start, regenerate or reset.
var ErrSuperseded = errors.New("workflow superseded")

// errStreamInterrupted marks a retryable stream break internally; it never
// escapes to callers.
var errStreamInterrupted = errors.New("stream interrupted")

// Config tunes the machine's timing. Zero fields fall back to the package
// defaults in config.
type Config struct {
	MaxReconnectAttempts int
	ReconnectBackoff     time.Duration
	StatusPollInterval   time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = config.MaxReconnectAttempts
	}
	if c.ReconnectBackoff == 0 {
		c.ReconnectBackoff = config.ReconnectBackoff
	}
	if c.StatusPollInterval == 0 {
		c.StatusPollInterval = config.StatusPollInterval
	}
	return c
}

// Machine is the processing state machine. One machine coordinates at most
// one live workflow: starting a new one tears the previous stream and poller
// down before any new resource opens.
type Machine struct {
	transport Transport
	cfg       Config

	mu      sync.RWMutex
	state   types.WorkflowState
	logs    []types.LogEntry
	maxLogs int

	// gen guards against goroutines of a superseded workflow writing into
	// the state of the current one.
	gen        int
	stream     Stream
	pollCancel context.CancelFunc
	flowCancel context.CancelFunc
}

// NewMachine creates a machine over the given transport.
func NewMachine(transport Transport, cfg Config) *Machine {
	return &Machine{
		transport: transport,
		cfg:       cfg.withDefaults(),
		state:     types.WorkflowState{Status: types.StateIdle},
		maxLogs:   50,
	}
}

// Snapshot returns a copy of the current workflow state.
func (m *Machine) Snapshot() types.WorkflowState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := m.state
	if st.Segments != nil {
		st.Segments = append([]types.Segment(nil), st.Segments...)
	}
	return st
}

// Logs returns a copy of the machine's log ring.
func (m *Machine) Logs() []types.LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.LogEntry(nil), m.logs...)
}

// Start runs a full workflow: upload the file, kick off processing, then
// follow the progress stream until completion or failure. It blocks until
// the workflow reaches a terminal state and returns the download URL on
// success. State is updated on every inbound event, so reactive consumers
// polling Snapshot stay consistent with the returned result.
func (m *Machine) Start(ctx context.Context, path, targetLanguage string, fontSize int) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: video file is required", client.ErrValidation)
	}
	if !config.IsRecognizedLang(targetLanguage) {
		return "", fmt.Errorf("%w: unrecognized target language %q", client.ErrValidation, targetLanguage)
	}
	if !config.IsFontSizePreset(fontSize) {
		return "", fmt.Errorf("%w: font size %d is not a recognized preset", client.ErrValidation, fontSize)
	}
	lang := config.NormalizeLang(targetLanguage)

	gen, wctx := m.begin(ctx, types.StateUploading, "")
	m.log(gen, "Uploading "+filepath.Base(path))

	up, err := m.transport.Upload(wctx, path)
	if err != nil {
		return "", m.fail(gen, fmt.Errorf("upload: %w", err))
	}

	m.update(gen, func(st *types.WorkflowState) {
		st.VideoID = up.VideoID
		st.Status = types.StateProcessing
	})
	m.log(gen, fmt.Sprintf("Upload complete, video id %s", up.VideoID))

	if err := m.transport.StartProcessing(wctx, up.VideoID, lang, fontSize); err != nil {
		return "", m.fail(gen, fmt.Errorf("start processing: %w", err))
	}

	open := func(ctx context.Context) (Stream, error) {
		return m.transport.OpenProcessingStream(ctx, up.VideoID, lang, fontSize)
	}
	return m.runStream(wctx, gen, up.VideoID, open)
}

// Regenerate re-renders a previously processed video with an edited segment
// set. The source file is not re-uploaded; progress restarts from zero while
// the video ID is preserved. Same contract as Start otherwise.
func (m *Machine) Regenerate(ctx context.Context, videoID string, segments []types.Segment, fontSize int, targetLanguage string) (string, error) {
	if videoID == "" {
		return "", fmt.Errorf("%w: video id is required", client.ErrValidation)
	}
	if err := types.ValidateSegments(segments); err != nil {
		return "", fmt.Errorf("%w: %v", client.ErrValidation, err)
	}
	if !config.IsRecognizedLang(targetLanguage) {
		return "", fmt.Errorf("%w: unrecognized target language %q", client.ErrValidation, targetLanguage)
	}
	if !config.IsFontSizePreset(fontSize) {
		return "", fmt.Errorf("%w: font size %d is not a recognized preset", client.ErrValidation, fontSize)
	}
	lang := config.NormalizeLang(targetLanguage)

	gen, wctx := m.begin(ctx, types.StateProcessing, videoID)
	m.log(gen, "Regenerating video "+videoID)

	open := func(ctx context.Context) (Stream, error) {
		return m.transport.OpenRegenerateStream(ctx, videoID, segments, fontSize, lang)
	}
	return m.runStream(wctx, gen, videoID, open)
}

// Reset tears down any live stream and poller and returns the state to its
// empty idle form. Idempotent.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardownLocked()
	m.gen++
	m.state = types.WorkflowState{Status: types.StateIdle}
	m.appendLogLocked("Workflow reset")
}

// begin supersedes any live workflow and installs a fresh state record.
// The returned context is cancelled when this workflow is itself superseded.
func (m *Machine) begin(ctx context.Context, status types.State, videoID string) (int, context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardownLocked()
	m.gen++
	m.state = types.WorkflowState{Status: status, VideoID: videoID}

	wctx, cancel := context.WithCancel(ctx)
	m.flowCancel = cancel
	return m.gen, wctx
}

// teardownLocked closes the active stream and stops the poller before any
// new resource opens. Two live subscriptions must never write into the same
// state. Caller holds the write lock.
func (m *Machine) teardownLocked() {
	if m.flowCancel != nil {
		m.flowCancel()
		m.flowCancel = nil
	}
	if m.stream != nil {
		s := m.stream
		m.stream = nil
		s.Close()
		go drain(s)
	}
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
}

// runStream opens the progress stream and consumes it to a terminal state,
// reconnecting within the retry budget on transport-level breaks.
func (m *Machine) runStream(ctx context.Context, gen int, videoID string, open func(context.Context) (Stream, error)) (string, error) {
	attempts := 0
	for {
		stream, err := open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ErrSuperseded
			}
			// An auth rejection at open is authoritative, not a drop.
			if errors.Is(err, client.ErrUnauthorized) {
				return "", m.fail(gen, err)
			}
			var action Action
			attempts, action = retryStep(attempts, OutcomeStreamError, m.cfg.MaxReconnectAttempts)
			if action == ActionFail {
				return "", m.fail(gen, fmt.Errorf("%w: %v", ErrConnectionLost, err))
			}
			m.log(gen, fmt.Sprintf("Stream error, reconnecting (attempt %d/%d)", attempts, m.cfg.MaxReconnectAttempts))
			if err := m.backoff(ctx); err != nil {
				return "", err
			}
			continue
		}

		if !m.adopt(gen, stream) {
			stream.Close()
			go drain(stream)
			return "", ErrSuperseded
		}

		url, err := m.consume(gen, videoID, stream, &attempts)
		stream.Close()
		go drain(stream)
		m.release(gen, stream)

		if err == nil {
			return url, nil
		}
		if !errors.Is(err, errStreamInterrupted) {
			// Terminal: backend-reported failure, already folded into state.
			return "", err
		}
		if ctx.Err() != nil {
			return "", ErrSuperseded
		}

		var action Action
		attempts, action = retryStep(attempts, OutcomeStreamError, m.cfg.MaxReconnectAttempts)
		if action == ActionFail {
			return "", m.fail(gen, fmt.Errorf("%w: %v", ErrConnectionLost, err))
		}
		m.log(gen, fmt.Sprintf("Stream interrupted, reconnecting (attempt %d/%d)", attempts, m.cfg.MaxReconnectAttempts))
		if err := m.backoff(ctx); err != nil {
			return "", err
		}
	}
}

// consume folds stream events into the workflow state. It returns the
// download URL on clean completion, errStreamInterrupted on a retryable
// break, or the terminal error the backend reported.
func (m *Machine) consume(gen int, videoID string, stream Stream, attempts *int) (string, error) {
	for res := range stream.Events() {
		if res.Err != nil {
			return "", fmt.Errorf("%w: %v", errStreamInterrupted, res.Err)
		}

		ev := res.Event
		if ev.Error != "" || ev.Status == "failed" {
			msg := ev.Error
			if msg == "" {
				msg = "processing failed"
			}
			return "", m.fail(gen, errors.New(msg))
		}

		*attempts, _ = retryStep(*attempts, OutcomeParsed, m.cfg.MaxReconnectAttempts)
		m.apply(gen, ev)

		if ev.Completed() {
			url, ok := m.complete(gen, videoID)
			if !ok {
				return "", ErrSuperseded
			}
			return url, nil
		}
	}
	// The server closed the stream without a completion or failure event.
	return "", fmt.Errorf("%w: stream closed before completion", errStreamInterrupted)
}

// apply merges one event into the state: last-writer-wins per field, except
// segments which are always replaced wholesale, progress which never moves
// backwards within a workflow, and detected language which is set once.
func (m *Machine) apply(gen int, ev types.StreamEvent) {
	var stepChanged string
	m.update(gen, func(st *types.WorkflowState) {
		if ev.Progress != nil && *ev.Progress > st.Progress && *ev.Progress <= 100 {
			p := *ev.Progress
			// Full progress is published atomically with Completed in
			// complete; a snapshot must never see one without the other.
			if p == 100 {
				p = 99
			}
			if p > st.Progress {
				st.Progress = p
			}
		}
		if ev.Step != "" && ev.Step != st.CurrentStep {
			st.CurrentStep = ev.Step
			stepChanged = ev.Step
		}
		if ev.DetectedLanguage != "" && st.DetectedLanguage == "" {
			st.DetectedLanguage = ev.DetectedLanguage
		}
		if ev.Segments != nil {
			st.Segments = append([]types.Segment(nil), ev.Segments...)
		}
	})
	if stepChanged != "" {
		m.log(gen, stepChanged)
	}
}

// complete marks the workflow done, derives the download URL, and arms the
// reconciliation poller as a safety net for artifact finalization.
func (m *Machine) complete(gen int, videoID string) (string, bool) {
	url := m.transport.DownloadURL(videoID)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return "", false
	}
	m.state.Status = types.StateCompleted
	m.state.Progress = 100
	m.state.DownloadURL = url
	m.appendLogLocked("Processing completed")

	pctx, cancel := context.WithCancel(context.Background())
	m.pollCancel = cancel
	m.mu.Unlock()

	go m.poll(pctx, gen, videoID)
	return url, true
}

// fail transitions to the terminal failed state and reports the error to the
// caller, keeping reactive and imperative observers consistent.
func (m *Machine) fail(gen int, err error) error {
	m.update(gen, func(st *types.WorkflowState) {
		st.Status = types.StateFailed
		st.Err = err.Error()
	})
	m.log(gen, "Error: "+err.Error())
	return err
}

// adopt records the live stream so teardown can reach it. Returns false when
// the workflow has been superseded.
func (m *Machine) adopt(gen int, stream Stream) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.stream = stream
	return true
}

// release forgets the stream once its consume loop has finished.
func (m *Machine) release(gen int, stream Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.gen && m.stream == stream {
		m.stream = nil
	}
}

// update applies a mutation if the workflow is still current.
func (m *Machine) update(gen int, fn func(*types.WorkflowState)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	fn(&m.state)
	return true
}

// log appends to the ring if the workflow is still current.
func (m *Machine) log(gen int, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.appendLogLocked(msg)
}

// appendLogLocked adds a log entry. Caller holds the write lock.
func (m *Machine) appendLogLocked(msg string) {
	m.logs = append(m.logs, types.LogEntry{Timestamp: time.Now(), Message: msg})
	if len(m.logs) > m.maxLogs {
		m.logs = m.logs[len(m.logs)-m.maxLogs:]
	}
}

// backoff waits the fixed reconnect interval, aborting early on teardown.
func (m *Machine) backoff(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ErrSuperseded
	case <-time.After(m.cfg.ReconnectBackoff):
		return nil
	}
}

func drain(s Stream) {
	for range s.Events() {
	}
}

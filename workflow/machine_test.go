package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"subgen/client"
	"subgen/types"
)

// testConfig keeps reconnect and poll timing fast enough for unit tests.
func testConfig() Config {
	return Config{
		MaxReconnectAttempts: 3,
		ReconnectBackoff:     time.Millisecond,
		StatusPollInterval:   5 * time.Millisecond,
	}
}

func intp(v int) *int { return &v }

// scriptedStream plays a fixed sequence of results, then either closes its
// channel (server ended the stream) or stays open until Close.
type scriptedStream struct {
	events  chan client.StreamResult
	done    chan struct{}
	once    sync.Once
	onClose func()
}

func (s *scriptedStream) Events() <-chan client.StreamResult { return s.events }

func (s *scriptedStream) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose()
		}
	})
}

// streamScript describes one OpenProcessingStream / OpenRegenerateStream call.
type streamScript struct {
	openErr  error
	results  []client.StreamResult
	stayOpen bool
}

// fakeTransport hands out scripted streams in order and records the call
// sequence so tests can assert teardown ordering.
type fakeTransport struct {
	mu          sync.Mutex
	uploadErr   error
	startErr    error
	scripts     []streamScript
	opened      int
	statusResp  types.StatusResponse
	statusErr   error
	statusCalls int
	calls       []string
}

func (f *fakeTransport) Upload(ctx context.Context, path string) (*types.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upload")
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &types.UploadResult{VideoID: "v1", Filename: filepath.Base(path)}, nil
}

func (f *fakeTransport) StartProcessing(ctx context.Context, videoID, targetLanguage string, fontSize int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "start")
	return f.startErr
}

func (f *fakeTransport) OpenProcessingStream(ctx context.Context, videoID, targetLanguage string, fontSize int) (Stream, error) {
	return f.openStream()
}

func (f *fakeTransport) OpenRegenerateStream(ctx context.Context, videoID string, segments []types.Segment, fontSize int, targetLanguage string) (Stream, error) {
	return f.openStream()
}

func (f *fakeTransport) openStream() (Stream, error) {
	f.mu.Lock()
	if f.opened >= len(f.scripts) {
		f.mu.Unlock()
		return nil, errors.New("no more scripted streams")
	}
	script := f.scripts[f.opened]
	f.opened++
	n := f.opened
	f.calls = append(f.calls, fmt.Sprintf("open#%d", n))
	f.mu.Unlock()

	if script.openErr != nil {
		return nil, script.openErr
	}

	s := &scriptedStream{
		events: make(chan client.StreamResult),
		done:   make(chan struct{}),
		onClose: func() {
			f.mu.Lock()
			f.calls = append(f.calls, fmt.Sprintf("close#%d", n))
			f.mu.Unlock()
		},
	}
	go func() {
		defer close(s.events)
		for _, r := range script.results {
			select {
			case s.events <- r:
			case <-s.done:
				return
			}
		}
		if script.stayOpen {
			<-s.done
		}
	}()
	return s, nil
}

func (f *fakeTransport) Status(ctx context.Context, videoID string) (*types.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	resp := f.statusResp
	return &resp, nil
}

func (f *fakeTransport) DownloadURL(videoID string) string {
	return "http://backend/video/download/" + videoID + "?token=t"
}

func (f *fakeTransport) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

func (f *fakeTransport) statusCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

func (f *fakeTransport) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// tempVideo creates a small valid upload target.
func tempVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func completionEvent(segments ...types.Segment) client.StreamResult {
	return client.StreamResult{Event: types.StreamEvent{
		Progress:   intp(100),
		Step:       "Completed",
		OutputPath: "/out/v1.mp4",
		Segments:   segments,
	}}
}

func TestStartEndToEnd(t *testing.T) {
	transport := &fakeTransport{
		scripts: []streamScript{{
			results: []client.StreamResult{
				{Event: types.StreamEvent{Progress: intp(40), Step: "Transcribing", DetectedLanguage: "en"}},
				completionEvent(types.Segment{Start: 0, End: 2, Text: "Hola"}),
			},
		}},
		statusResp: types.StatusResponse{Status: "completed", Progress: 100, OutputPath: "/out/v1.mp4"},
	}
	m := NewMachine(transport, testConfig())

	url, err := m.Start(context.Background(), tempVideo(t), "es", 24)
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !strings.Contains(url, "v1") {
		t.Errorf("download URL %q does not reference the video id", url)
	}

	st := m.Snapshot()
	if st.Status != types.StateCompleted {
		t.Errorf("status = %s, want %s", st.Status, types.StateCompleted)
	}
	if st.Progress != 100 {
		t.Errorf("progress = %d, want 100", st.Progress)
	}
	if st.DownloadURL != url {
		t.Errorf("state download URL %q != returned %q", st.DownloadURL, url)
	}
	if st.DetectedLanguage != "en" {
		t.Errorf("detected language = %q, want en", st.DetectedLanguage)
	}
	if len(st.Segments) != 1 || st.Segments[0].Text != "Hola" {
		t.Errorf("segments = %+v, want the single Hola segment", st.Segments)
	}

	// The reconciliation poller confirms the artifact and then stops.
	eventually(t, func() bool { return transport.statusCount() >= 1 }, "poller never queried status")
	settled := transport.statusCount()
	time.Sleep(30 * time.Millisecond)
	if got := transport.statusCount(); got != settled {
		t.Errorf("poller kept polling after confirmation: %d -> %d", settled, got)
	}
}

func TestCompletionRequiresOutputPath(t *testing.T) {
	transport := &fakeTransport{
		scripts: []streamScript{{
			results: []client.StreamResult{
				{Event: types.StreamEvent{Progress: intp(100)}},
			},
			stayOpen: true,
		}},
	}
	m := NewMachine(transport, testConfig())

	errc := make(chan error, 1)
	go func() {
		_, err := m.Start(context.Background(), tempVideo(t), "es", 20)
		errc <- err
	}()

	eventually(t, func() bool { return m.Snapshot().Progress > 0 }, "progress event never applied")

	st := m.Snapshot()
	if st.Status != types.StateProcessing {
		t.Errorf("status = %s, want %s: bare 100%% must not complete", st.Status, types.StateProcessing)
	}
	if st.Progress == 100 {
		t.Error("published progress hit 100 without a confirmed artifact")
	}
	if st.DownloadURL != "" {
		t.Errorf("download URL %q set before completion", st.DownloadURL)
	}

	m.Reset()
	if err := <-errc; !errors.Is(err, ErrSuperseded) {
		t.Errorf("superseded Start returned %v, want ErrSuperseded", err)
	}
}

func TestSnapshotNeverShowsFullProgressBeforeCompleted(t *testing.T) {
	// Progress 100 and Status Completed must land in one critical section;
	// hot-polling snapshots across many workflows would catch a window where
	// the completion event is folded in two.
	for i := 0; i < 50; i++ {
		transport := &fakeTransport{
			scripts: []streamScript{{
				results: []client.StreamResult{
					{Event: types.StreamEvent{Progress: intp(50), Step: "Transcribing"}},
					{Event: types.StreamEvent{Progress: intp(95), Step: "Finalizing"}},
					completionEvent(),
				},
			}},
			statusResp: types.StatusResponse{Status: "completed", OutputPath: "/out/v1.mp4"},
		}
		m := NewMachine(transport, testConfig())

		done := make(chan struct{})
		violation := make(chan types.WorkflowState, 1)
		go func() {
			for {
				select {
				case <-done:
					return
				default:
				}
				st := m.Snapshot()
				if st.Progress == 100 && st.Status != types.StateCompleted {
					select {
					case violation <- st:
					default:
					}
					return
				}
			}
		}()

		if _, err := m.Start(context.Background(), tempVideo(t), "es", 20); err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
		close(done)

		select {
		case st := <-violation:
			t.Fatalf("snapshot observed progress=100 with status=%s", st.Status)
		default:
		}
	}
}

func TestUnauthorizedStreamOpenFailsFast(t *testing.T) {
	transport := &fakeTransport{
		scripts: []streamScript{
			{openErr: fmt.Errorf("%w: session expired, please log in again", client.ErrUnauthorized)},
			{stayOpen: true}, // must never be reached
		},
	}
	m := NewMachine(transport, testConfig())

	_, err := m.Start(context.Background(), tempVideo(t), "es", 20)
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("Start returned %v, want ErrUnauthorized", err)
	}
	if errors.Is(err, ErrConnectionLost) {
		t.Error("auth rejection reported as a lost connection")
	}
	if got := transport.openCount(); got != 1 {
		t.Errorf("opened %d streams, want 1: auth rejections must not reconnect", got)
	}
	if st := m.Snapshot(); st.Status != types.StateFailed {
		t.Errorf("status = %s, want %s", st.Status, types.StateFailed)
	}
}

func TestSingleFlight(t *testing.T) {
	transport := &fakeTransport{
		scripts: []streamScript{
			{stayOpen: true},
			{results: []client.StreamResult{completionEvent()}},
		},
		statusResp: types.StatusResponse{Status: "completed", OutputPath: "/out/v1.mp4"},
	}
	m := NewMachine(transport, testConfig())

	firstErr := make(chan error, 1)
	go func() {
		_, err := m.Start(context.Background(), tempVideo(t), "es", 20)
		firstErr <- err
	}()
	eventually(t, func() bool { return transport.openCount() == 1 }, "first stream never opened")

	if _, err := m.Start(context.Background(), tempVideo(t), "es", 20); err != nil {
		t.Fatalf("second Start returned error: %v", err)
	}

	if err := <-firstErr; !errors.Is(err, ErrSuperseded) {
		t.Errorf("first Start returned %v, want ErrSuperseded", err)
	}

	// The first stream must be closed before the second opens.
	var closed1, opened2 = -1, -1
	for i, c := range transport.callLog() {
		switch c {
		case "close#1":
			if closed1 == -1 {
				closed1 = i
			}
		case "open#2":
			opened2 = i
		}
	}
	if closed1 == -1 || opened2 == -1 {
		t.Fatalf("call log missing close#1 or open#2: %v", transport.callLog())
	}
	if closed1 > opened2 {
		t.Errorf("second stream opened before first closed: %v", transport.callLog())
	}
}

func TestReconnectBound(t *testing.T) {
	decodeErr := client.StreamResult{Err: errors.New("malformed stream message")}
	transport := &fakeTransport{
		scripts: []streamScript{
			{results: []client.StreamResult{decodeErr}, stayOpen: true},
			{results: []client.StreamResult{decodeErr}, stayOpen: true},
			{results: []client.StreamResult{decodeErr}, stayOpen: true},
			{stayOpen: true}, // must never be reached
		},
	}
	m := NewMachine(transport, testConfig())

	_, err := m.Start(context.Background(), tempVideo(t), "es", 20)
	if !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("Start returned %v, want ErrConnectionLost", err)
	}

	if got := transport.openCount(); got != 3 {
		t.Errorf("opened %d streams, want 3 (no reconnect past the budget)", got)
	}

	st := m.Snapshot()
	if st.Status != types.StateFailed {
		t.Errorf("status = %s, want %s", st.Status, types.StateFailed)
	}
	if !strings.Contains(st.Err, "connection") {
		t.Errorf("error %q does not mention the lost connection", st.Err)
	}
}

func TestReconnectCounterResetsOnParsedMessage(t *testing.T) {
	decodeErr := client.StreamResult{Err: errors.New("malformed stream message")}
	transport := &fakeTransport{
		scripts: []streamScript{
			{results: []client.StreamResult{decodeErr}, stayOpen: true},
			{results: []client.StreamResult{decodeErr}, stayOpen: true},
			{results: []client.StreamResult{
				{Event: types.StreamEvent{Progress: intp(10), Step: "Transcribing"}},
				decodeErr,
			}, stayOpen: true},
			{results: []client.StreamResult{decodeErr}, stayOpen: true},
			{results: []client.StreamResult{decodeErr}, stayOpen: true},
			{stayOpen: true}, // must never be reached
		},
	}
	m := NewMachine(transport, testConfig())

	_, err := m.Start(context.Background(), tempVideo(t), "es", 20)
	if !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("Start returned %v, want ErrConnectionLost", err)
	}

	// Streams 1-2 burn two attempts, stream 3's parsed message resets the
	// counter, streams 3-5 then re-exhaust it.
	if got := transport.openCount(); got != 5 {
		t.Errorf("opened %d streams, want 5", got)
	}
	if st := m.Snapshot(); st.Status != types.StateFailed {
		t.Errorf("status = %s, want %s", st.Status, types.StateFailed)
	}
}

func TestBackendErrorIsTerminal(t *testing.T) {
	transport := &fakeTransport{
		scripts: []streamScript{
			{results: []client.StreamResult{
				{Event: types.StreamEvent{Error: "translation model unavailable"}},
			}, stayOpen: true},
			{stayOpen: true}, // must never be reached
		},
	}
	m := NewMachine(transport, testConfig())

	_, err := m.Start(context.Background(), tempVideo(t), "es", 20)
	if err == nil || !strings.Contains(err.Error(), "translation model unavailable") {
		t.Fatalf("Start returned %v, want the backend's error", err)
	}
	if got := transport.openCount(); got != 1 {
		t.Errorf("opened %d streams, want 1: backend failures must not reconnect", got)
	}
	if st := m.Snapshot(); st.Status != types.StateFailed {
		t.Errorf("status = %s, want %s", st.Status, types.StateFailed)
	}
}

func TestSegmentsReplacedWholesale(t *testing.T) {
	first := []types.Segment{{Start: 0, End: 2, Text: "one"}, {Start: 2, End: 4, Text: "two"}}
	second := []types.Segment{{Start: 0, End: 3, Text: "uno"}}
	transport := &fakeTransport{
		scripts: []streamScript{{
			results: []client.StreamResult{
				{Event: types.StreamEvent{Progress: intp(50), Segments: first}},
				{Event: types.StreamEvent{Progress: intp(80), Segments: second}},
				completionEvent(),
			},
		}},
		statusResp: types.StatusResponse{Status: "completed", OutputPath: "/out/v1.mp4"},
	}
	m := NewMachine(transport, testConfig())

	if _, err := m.Start(context.Background(), tempVideo(t), "es", 20); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	st := m.Snapshot()
	if len(st.Segments) != 1 || st.Segments[0].Text != "uno" {
		t.Errorf("segments = %+v, want only the latest array", st.Segments)
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	transport := &fakeTransport{
		scripts: []streamScript{{
			results: []client.StreamResult{
				{Event: types.StreamEvent{Progress: intp(40)}},
				{Event: types.StreamEvent{Progress: intp(30)}},
			},
			stayOpen: true,
		}},
	}
	m := NewMachine(transport, testConfig())

	errc := make(chan error, 1)
	go func() {
		_, err := m.Start(context.Background(), tempVideo(t), "es", 20)
		errc <- err
	}()

	eventually(t, func() bool { return m.Snapshot().Progress == 40 }, "progress never reached 40")
	time.Sleep(10 * time.Millisecond)
	if got := m.Snapshot().Progress; got != 40 {
		t.Errorf("progress moved backwards to %d", got)
	}

	m.Reset()
	<-errc
}

func TestResetClearsEverything(t *testing.T) {
	transport := &fakeTransport{
		scripts: []streamScript{{
			results: []client.StreamResult{completionEvent(types.Segment{Start: 0, End: 2, Text: "Hola"})},
		}},
		// Status never confirms, so the poller keeps running until Reset.
		statusResp: types.StatusResponse{Status: "completed", Progress: 100},
	}
	m := NewMachine(transport, testConfig())

	if _, err := m.Start(context.Background(), tempVideo(t), "es", 20); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	eventually(t, func() bool { return transport.statusCount() >= 2 }, "poller never started")

	m.Reset()
	settled := transport.statusCount()
	time.Sleep(40 * time.Millisecond)
	if got := transport.statusCount(); got != settled {
		t.Errorf("poller survived reset: %d -> %d status calls", settled, got)
	}

	st := m.Snapshot()
	empty := types.WorkflowState{Status: types.StateIdle}
	if st.Status != empty.Status || st.Progress != 0 || st.VideoID != "" ||
		st.CurrentStep != "" || st.DetectedLanguage != "" || len(st.Segments) != 0 ||
		st.DownloadURL != "" || st.Err != "" {
		t.Errorf("state after reset = %+v, want empty idle state", st)
	}
}

func TestRegeneratePreservesVideoID(t *testing.T) {
	transport := &fakeTransport{
		scripts: []streamScript{{
			results: []client.StreamResult{
				{Event: types.StreamEvent{Progress: intp(30), Step: "Generating subtitles"}},
				completionEvent(),
			},
		}},
		statusResp: types.StatusResponse{Status: "completed", OutputPath: "/out/v1.mp4"},
	}
	m := NewMachine(transport, testConfig())

	segments := []types.Segment{{Start: 0, End: 2, Text: "edited"}}
	url, err := m.Regenerate(context.Background(), "v1", segments, 24, "es")
	if err != nil {
		t.Fatalf("Regenerate returned error: %v", err)
	}
	if !strings.Contains(url, "v1") {
		t.Errorf("download URL %q does not reference the video id", url)
	}

	st := m.Snapshot()
	if st.VideoID != "v1" {
		t.Errorf("video id = %q, want v1", st.VideoID)
	}
	if st.Status != types.StateCompleted {
		t.Errorf("status = %s, want %s", st.Status, types.StateCompleted)
	}

	// No upload or start-processing call for a regenerate.
	for _, c := range transport.callLog() {
		if c == "upload" || c == "start" {
			t.Errorf("regenerate performed %q", c)
		}
	}
}

func TestValidationRejectsBeforeTransport(t *testing.T) {
	transport := &fakeTransport{}
	m := NewMachine(transport, testConfig())
	ctx := context.Background()

	cases := []struct {
		name string
		run  func() error
	}{
		{"missing file", func() error { _, err := m.Start(ctx, "", "es", 20); return err }},
		{"bad language", func() error { _, err := m.Start(ctx, tempVideo(t), "klingon", 20); return err }},
		{"bad font size", func() error { _, err := m.Start(ctx, tempVideo(t), "es", 7); return err }},
		{"empty segments", func() error { _, err := m.Regenerate(ctx, "v1", nil, 20, "es"); return err }},
		{"missing video id", func() error {
			_, err := m.Regenerate(ctx, "", []types.Segment{{Start: 0, End: 1, Text: "x"}}, 20, "es")
			return err
		}},
	}
	for _, tc := range cases {
		if err := tc.run(); !errors.Is(err, client.ErrValidation) {
			t.Errorf("%s: got %v, want ErrValidation", tc.name, err)
		}
	}

	if calls := transport.callLog(); len(calls) != 0 {
		t.Errorf("validation failures reached the transport: %v", calls)
	}
}

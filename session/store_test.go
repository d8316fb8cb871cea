package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"subgen/types"
)

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.json")
}

func TestSessionRoundTrip(t *testing.T) {
	path := storePath(t)

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Token() != "" || s.User() != nil {
		t.Fatal("fresh store is not empty")
	}

	user := types.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}
	if err := s.SetSession("tok123", user); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Token() != "tok123" {
		t.Errorf("token = %q, want tok123", reopened.Token())
	}
	if got := reopened.User(); got == nil || got.Email != "ada@example.com" {
		t.Errorf("user = %+v", got)
	}
}

func TestInvalidatePersists(t *testing.T) {
	path := storePath(t)
	s, _ := Open(path)
	if err := s.SetSession("tok", types.User{ID: "u1"}); err != nil {
		t.Fatal(err)
	}

	s.Invalidate()
	if s.Token() != "" {
		t.Error("token survived Invalidate in memory")
	}

	reopened, _ := Open(path)
	if reopened.Token() != "" {
		t.Error("token survived Invalidate on disk")
	}
}

func TestLastUploadSurvivesInvalidate(t *testing.T) {
	path := storePath(t)
	s, _ := Open(path)

	desc := types.UploadDescriptor{
		VideoID:    "v1",
		Filename:   "clip.mp4",
		Size:       1024,
		UploadedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.SetLastUpload(desc); err != nil {
		t.Fatal(err)
	}
	s.Invalidate()

	reopened, _ := Open(path)
	got := reopened.LastUpload()
	if got == nil || got.VideoID != "v1" {
		t.Errorf("last upload = %+v, want the v1 descriptor", got)
	}
}

func TestClearWipesEverything(t *testing.T) {
	path := storePath(t)
	s, _ := Open(path)
	_ = s.SetSession("tok", types.User{ID: "u1"})
	_ = s.SetLastUpload(types.UploadDescriptor{VideoID: "v1"})

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}

	reopened, _ := Open(path)
	if reopened.Token() != "" || reopened.User() != nil || reopened.LastUpload() != nil {
		t.Error("Clear left data behind")
	}
}

func TestCorruptFileTreatedAsLoggedOut(t *testing.T) {
	path := storePath(t)
	if err := os.WriteFile(path, []byte("{{{"), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed on corrupt file: %v", err)
	}
	if s.Token() != "" {
		t.Error("corrupt file produced a token")
	}
}

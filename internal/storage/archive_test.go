package storage

import (
	"encoding/base64"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaveTranscription(t *testing.T) {
	root := t.TempDir()
	a, err := NewArchiver(root, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte(`{"type":"post_call_transcription"}`)
	path, err := a.SaveTranscription("conv_1", payload)
	if err != nil {
		t.Fatalf("SaveTranscription: %v", err)
	}

	want := filepath.Join(root, "conv_1", "conv_1_transcription.json")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("content mismatch: %s", data)
	}
}

func TestSaveAudio(t *testing.T) {
	a, err := NewArchiver(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	audio := []byte{0xFF, 0xFB, 0x90, 0x00}
	path, err := a.SaveAudio("conv_2", base64.StdEncoding.EncodeToString(audio))
	if err != nil {
		t.Fatalf("SaveAudio: %v", err)
	}
	if filepath.Base(path) != "conv_2_audio.mp3" {
		t.Errorf("filename = %q", filepath.Base(path))
	}
	data, _ := os.ReadFile(path)
	if len(data) != 4 || data[0] != 0xFF {
		t.Errorf("decoded audio mismatch: %v", data)
	}

	if _, err := a.SaveAudio("conv_2", "not base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestSaveFailure(t *testing.T) {
	a, err := NewArchiver(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	path, err := a.SaveFailure("conv_3", []byte(`{"reason":"no audio"}`))
	if err != nil {
		t.Fatalf("SaveFailure: %v", err)
	}
	if filepath.Base(path) != "conv_3_failure.json" {
		t.Errorf("filename = %q", filepath.Base(path))
	}
}

func TestNewArchiverCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "payloads")
	if _, err := NewArchiver(root, testLogger()); err != nil {
		t.Fatalf("NewArchiver: %v", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

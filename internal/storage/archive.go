// Package storage archives raw webhook payloads to disk, one directory per
// conversation. Archival is best-effort; callers log and continue on failure.
package storage

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Archiver writes conversation artifacts under a configured root directory:
//
//	{root}/{conversation_id}/{conversation_id}_transcription.json
//	{root}/{conversation_id}/{conversation_id}_audio.mp3
//	{root}/{conversation_id}/{conversation_id}_failure.json
type Archiver struct {
	root string
	log  *slog.Logger
}

// NewArchiver creates an archiver rooted at dir, creating it if needed.
func NewArchiver(dir string, log *slog.Logger) (*Archiver, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create payload storage root: %w", err)
	}
	return &Archiver{root: dir, log: log}, nil
}

// SaveTranscription stores the raw transcription payload as JSON.
func (a *Archiver) SaveTranscription(conversationID string, payload []byte) (string, error) {
	return a.write(conversationID, conversationID+"_transcription.json", payload)
}

// SaveAudio decodes base64 audio and stores it as an MP3 file.
func (a *Archiver) SaveAudio(conversationID, audioBase64 string) (string, error) {
	audio, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return "", fmt.Errorf("decode base64 audio: %w", err)
	}
	return a.write(conversationID, conversationID+"_audio.mp3", audio)
}

// SaveFailure stores a call-initiation failure record as JSON.
func (a *Archiver) SaveFailure(conversationID string, payload []byte) (string, error) {
	return a.write(conversationID, conversationID+"_failure.json", payload)
}

func (a *Archiver) write(conversationID, filename string, data []byte) (string, error) {
	dir := filepath.Join(a.root, conversationID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create conversation directory: %w", err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", filename, err)
	}

	a.log.Info("archived payload", "conversation_id", conversationID, "path", path)
	return path, nil
}

// SPDX-License-Identifier: MIT
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sdrfront/internal/audio"
)

// ErrRecording is returned by StartRecording while a recording is active.
var ErrRecording = errors.New("engine: already recording")

// StartRecording tees raw captured PCM at the hardware rate into a WAV file
// at path. The directory is created if needed.
func (e *Engine) StartRecording(path string) error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.recorder != nil {
		return ErrRecording
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("engine: recording directory: %w", err)
		}
	}

	rec, err := audio.NewRecorder(path, int(e.cfg.HardwareRate), e.cfg.Channels)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	e.recorder = rec
	e.deps.Source.SetRecorder(rec)
	e.logger.Infof("Recording to %s", path)
	return nil
}

// Recording reports whether a recording is active, and its path.
func (e *Engine) Recording() (string, bool) {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if e.recorder == nil {
		return "", false
	}
	return e.recorder.Path(), true
}

// StopRecording detaches and finalizes the active recording. It is a no-op
// when nothing is being recorded.
func (e *Engine) StopRecording() error {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.recorder == nil {
		return nil
	}
	rec := e.recorder
	e.recorder = nil
	e.deps.Source.SetRecorder(nil)

	if err := rec.Close(); err != nil {
		return fmt.Errorf("engine: finish recording: %w", err)
	}
	e.logger.Infof("Recording saved to %s (%d frames)", rec.Path(), rec.Frames())
	return nil
}

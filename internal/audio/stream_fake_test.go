// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var errAborted = errors.New("stream aborted")

type readStep struct {
	pcm []int16
	n   int // overrides len(pcm) when non-zero
	err error
}

// fakeCapture replays scripted reads. Once the script is exhausted, Read
// blocks until Abort when block is set, or fails otherwise.
type fakeCapture struct {
	mu      sync.Mutex
	steps   []readStep
	block   bool
	reading chan struct{}
	abortCh chan struct{}

	started, aborted, closed bool
}

func newFakeCapture(steps ...readStep) *fakeCapture {
	return &fakeCapture{
		steps:   steps,
		reading: make(chan struct{}, 1),
		abortCh: make(chan struct{}),
	}
}

func (f *fakeCapture) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeCapture) Read(dst []int16) (int, error) {
	f.mu.Lock()
	if len(f.steps) > 0 {
		step := f.steps[0]
		f.steps = f.steps[1:]
		f.mu.Unlock()
		n := copy(dst, step.pcm)
		if step.n != 0 {
			n = step.n
		}
		return n, step.err
	}
	block := f.block
	f.mu.Unlock()

	if !block {
		return 0, errors.New("script exhausted")
	}
	select {
	case f.reading <- struct{}{}:
	default:
	}
	<-f.abortCh
	return 0, errAborted
}

func (f *fakeCapture) Abort() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.aborted {
		f.aborted = true
		close(f.abortCh)
	}
	return nil
}

func (f *fakeCapture) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fakePlayback records every buffer handed to Write.
type fakePlayback struct {
	mu      sync.Mutex
	writes  [][]int16
	errs    []error
	block   bool
	writing chan struct{}
	abortCh chan struct{}

	aborted, closed bool
}

func newFakePlayback() *fakePlayback {
	return &fakePlayback{
		writing: make(chan struct{}, 1),
		abortCh: make(chan struct{}),
	}
}

func (f *fakePlayback) Start() error { return nil }

func (f *fakePlayback) Write(src []int16) error {
	f.mu.Lock()
	block := f.block
	if !block {
		f.writes = append(f.writes, append([]int16(nil), src...))
		var err error
		if len(f.errs) > 0 {
			err = f.errs[0]
			f.errs = f.errs[1:]
		}
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()

	select {
	case f.writing <- struct{}{}:
	default:
	}
	<-f.abortCh
	return errAborted
}

func (f *fakePlayback) Abort() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.aborted {
		f.aborted = true
		close(f.abortCh)
	}
	return nil
}

func (f *fakePlayback) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePlayback) Writes() [][]int16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func fakeDevice(int) (*portaudio.DeviceInfo, error) {
	return &portaudio.DeviceInfo{Name: "fake", MaxInputChannels: 2, MaxOutputChannels: 2}, nil
}

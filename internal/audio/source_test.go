// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, cfg SourceConfig, stream *fakeCapture) *Source {
	t.Helper()
	src, err := NewSource(cfg, nil)
	require.NoError(t, err)
	src.lookup = fakeDevice
	src.open = func(p StreamParams) (CaptureStream, error) {
		assert.Equal(t, cfg.Channels, p.Channels)
		assert.Equal(t, cfg.FramesPerBuffer, p.FramesPerBuffer)
		return stream, nil
	}
	return src
}

func TestNewSourceValidation(t *testing.T) {
	base := SourceConfig{SampleRate: 48000, Channels: 1, FramesPerBuffer: 64, Factor: 1}

	tests := []struct {
		name   string
		mutate func(*SourceConfig)
	}{
		{"zero channels", func(c *SourceConfig) { c.Channels = 0 }},
		{"zero frames", func(c *SourceConfig) { c.FramesPerBuffer = 0 }},
		{"zero rate", func(c *SourceConfig) { c.SampleRate = 0 }},
		{"zero factor", func(c *SourceConfig) { c.Factor = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := NewSource(cfg, nil)
			assert.Error(t, err)
		})
	}

	src, err := NewSource(SourceConfig{SampleRate: 48000, Channels: 1, FramesPerBuffer: 64, Factor: 6}, nil)
	require.NoError(t, err)
	assert.Equal(t, 8000.0, src.OutputRate())
	assert.Equal(t, defaultFilterTaps, src.decimator.Taps())
}

func TestSourceReadBeforeOpen(t *testing.T) {
	src := newTestSource(t, SourceConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 4, Factor: 1}, newFakeCapture())

	res, err := src.Read()
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.Equal(t, ReadFault, res.Status)
}

func TestSourceReadDownmixAndDecimate(t *testing.T) {
	stream := newFakeCapture(
		readStep{pcm: []int16{16384, 0, 16384, 16384, -16384, -16384, 0, 0}},
	)
	src := newTestSource(t, SourceConfig{
		SampleRate: 48000, Channels: 2, FramesPerBuffer: 4,
		Taps: []float64{1}, Factor: 2,
	}, stream)
	require.NoError(t, src.Open())
	assert.True(t, stream.started)

	res, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, ReadData, res.Status)
	assert.Equal(t, 4, res.Frames)
	// Mono frames are 0.25, 0.5, -0.5, 0; every second one survives.
	assert.InDeltaSlice(t, []float64{0.5, 0}, []float64(res.Block), 1e-12)
}

func TestSourceReadNoData(t *testing.T) {
	stream := newFakeCapture(
		readStep{pcm: []int16{1000, 1000}},
		readStep{pcm: []int16{1000, 1000}},
	)
	src := newTestSource(t, SourceConfig{
		SampleRate: 48000, Channels: 1, FramesPerBuffer: 2,
		Taps: []float64{1}, Factor: 4,
	}, stream)
	require.NoError(t, src.Open())

	res, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, ReadNoData, res.Status)
	assert.Empty(t, res.Block)

	res, err = src.Read()
	require.NoError(t, err)
	assert.Equal(t, ReadData, res.Status)
	assert.Len(t, res.Block, 1)
}

func TestSourceOverflowIsNotFatal(t *testing.T) {
	stream := newFakeCapture(readStep{pcm: []int16{3276, 3276}, err: ErrInputOverflow})
	src := newTestSource(t, SourceConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 2, Factor: 1}, stream)
	require.NoError(t, src.Open())

	res, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, ReadData, res.Status)
	assert.Len(t, res.Block, 2)
	assert.Equal(t, uint64(1), src.Overflows())
}

func TestSourceDeviceFault(t *testing.T) {
	hwErr := errors.New("device unplugged")
	stream := newFakeCapture(readStep{err: hwErr})
	src := newTestSource(t, SourceConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 2, Factor: 1}, stream)
	require.NoError(t, src.Open())

	res, err := src.Read()
	assert.Equal(t, ReadFault, res.Status)
	var fault *DeviceFaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "read", fault.Op)
	assert.ErrorIs(t, err, hwErr)
}

func TestSourceNegativeCountIsFault(t *testing.T) {
	stream := newFakeCapture(readStep{n: -1})
	src := newTestSource(t, SourceConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 2, Factor: 1}, stream)
	require.NoError(t, src.Open())

	res, err := src.Read()
	assert.Equal(t, ReadFault, res.Status)
	var fault *DeviceFaultError
	assert.ErrorAs(t, err, &fault)
}

func TestSourceOpenFailure(t *testing.T) {
	src, err := NewSource(SourceConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 2, Factor: 1}, nil)
	require.NoError(t, err)
	src.lookup = fakeDevice
	src.open = func(StreamParams) (CaptureStream, error) {
		return nil, portaudio.InvalidSampleRate
	}

	err = src.Open()
	var initErr *DeviceInitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "fake", initErr.Device)
	assert.ErrorIs(t, err, portaudio.InvalidSampleRate)

	src.lookup = func(int) (*portaudio.DeviceInfo, error) { return nil, errors.New("no such device") }
	err = src.Open()
	require.ErrorAs(t, err, &initErr)
	assert.Contains(t, initErr.Error(), "input device 0")
}

func TestSourceCloseIsTerminalAndIdempotent(t *testing.T) {
	stream := newFakeCapture()
	src := newTestSource(t, SourceConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 2, Factor: 1}, stream)
	require.NoError(t, src.Open())
	require.NoError(t, src.Open())

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	assert.True(t, stream.aborted)
	assert.True(t, stream.closed)

	assert.ErrorIs(t, src.Open(), ErrClosed)
	_, err := src.Read()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSourceCloseUnblocksRead(t *testing.T) {
	stream := newFakeCapture()
	stream.block = true
	src := newTestSource(t, SourceConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 2, Factor: 1}, stream)
	require.NoError(t, src.Open())

	done := make(chan error, 1)
	go func() {
		_, err := src.Read()
		done <- err
	}()

	select {
	case <-stream.reading:
	case <-time.After(time.Second):
		t.Fatal("read never started")
	}

	require.NoError(t, src.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("read did not return after close")
	}
	assert.True(t, stream.closed)
}

func TestSourceTeesToRecorder(t *testing.T) {
	stream := newFakeCapture(
		readStep{pcm: []int16{1, 2, 3, 4}},
		readStep{pcm: []int16{5, 6, 7, 8}},
	)
	src := newTestSource(t, SourceConfig{SampleRate: 8000, Channels: 2, FramesPerBuffer: 2, Factor: 1}, stream)
	require.NoError(t, src.Open())

	rec, err := NewRecorder(filepath.Join(t.TempDir(), "tee.wav"), 8000, 2)
	require.NoError(t, err)
	src.SetRecorder(rec)

	_, err = src.Read()
	require.NoError(t, err)
	src.SetRecorder(nil)
	_, err = src.Read()
	require.NoError(t, err)

	assert.Equal(t, int64(2), rec.Frames())
	require.NoError(t, rec.Close())
}

func TestReadStatusString(t *testing.T) {
	assert.Equal(t, "data", ReadData.String())
	assert.Equal(t, "no-data", ReadNoData.String())
	assert.Equal(t, "fault", ReadFault.String())
	assert.Equal(t, "closed", stateClosed.String())
}

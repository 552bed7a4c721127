// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T, cfg SinkConfig, stream *fakePlayback) *Sink {
	t.Helper()
	sink, err := NewSink(cfg, nil)
	require.NoError(t, err)
	sink.lookup = fakeDevice
	sink.open = func(StreamParams) (PlaybackStream, error) { return stream, nil }
	return sink
}

func constBlock(n int, v float64) SampleBlock {
	b := make(SampleBlock, n)
	for i := range b {
		b[i] = v
	}
	return b
}

func TestSinkStagesIntoHardwareBuffers(t *testing.T) {
	stream := newFakePlayback()
	sink := newTestSink(t, SinkConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 256, Factor: 1}, stream)
	require.NoError(t, sink.Open())

	for _, n := range []int{50, 30, 1000} {
		require.NoError(t, sink.WriteResampled(constBlock(n, 0.5)))
	}

	writes := stream.Writes()
	require.Len(t, writes, 4)
	for _, w := range writes {
		assert.Len(t, w, 256)
		assert.Equal(t, int16(16384), w[0])
	}
	assert.Equal(t, uint64(4), sink.Flushes())
	assert.Equal(t, 56, sink.Pending())
}

func TestSinkPendingFromAnotherGoroutine(t *testing.T) {
	stream := newFakePlayback()
	sink := newTestSink(t, SinkConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 256, Factor: 1}, stream)
	require.NoError(t, sink.Open())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 500 {
			if err := sink.WriteResampled(constBlock(37, 0.1)); err != nil {
				return
			}
		}
	}()

	for {
		p := sink.Pending()
		require.GreaterOrEqual(t, p, 0)
		require.Less(t, p, 256)
		select {
		case <-done:
			assert.Equal(t, 500*37%256, sink.Pending())
			return
		default:
		}
	}
}

func TestSinkZeroLengthIsNoop(t *testing.T) {
	stream := newFakePlayback()
	sink := newTestSink(t, SinkConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 4, Factor: 1}, stream)

	// Not even open yet: empty input never reaches the device.
	assert.NoError(t, sink.Write(nil))
	assert.NoError(t, sink.WriteResampled(SampleBlock{}))
}

func TestSinkWriteBeforeOpen(t *testing.T) {
	sink := newTestSink(t, SinkConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 4, Factor: 1}, newFakePlayback())
	assert.ErrorIs(t, sink.Write(SampleBlock{0.1}), ErrNotOpen)
}

func TestSinkClampsOutOfRange(t *testing.T) {
	stream := newFakePlayback()
	sink := newTestSink(t, SinkConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 4, Factor: 1}, stream)
	require.NoError(t, sink.Open())

	require.NoError(t, sink.WriteResampled(SampleBlock{2, -3, 1, -1}))
	writes := stream.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, []int16{32767, -32767, 32767, -32767}, writes[0])
}

func TestSinkInterpolatesToHardwareRate(t *testing.T) {
	stream := newFakePlayback()
	sink := newTestSink(t, SinkConfig{SampleRate: 48000, Channels: 1, FramesPerBuffer: 60, Factor: 6}, stream)
	require.NoError(t, sink.Open())

	// 10 samples at 8 kHz become exactly one 60-sample hardware buffer.
	require.NoError(t, sink.Write(constBlock(10, 0.25)))
	assert.Equal(t, uint64(1), sink.Flushes())
	assert.Equal(t, 0, sink.Pending())

	// Feed DC long enough for the filter to settle; the tail must sit at
	// the input level.
	for range 20 {
		require.NoError(t, sink.Write(constBlock(10, 0.25)))
	}
	writes := stream.Writes()
	last := writes[len(writes)-1]
	assert.InDelta(t, 8192, float64(last[len(last)-1]), 50)
}

func TestSinkUnderflowIsNotFatal(t *testing.T) {
	stream := newFakePlayback()
	stream.errs = []error{ErrOutputUnderflow}
	sink := newTestSink(t, SinkConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 2, Factor: 1}, stream)
	require.NoError(t, sink.Open())

	require.NoError(t, sink.WriteResampled(SampleBlock{0, 0, 0, 0}))
	assert.Equal(t, uint64(2), sink.Flushes())
	assert.Equal(t, uint64(1), sink.Underflows())
}

func TestSinkDeviceFault(t *testing.T) {
	hwErr := errors.New("device unplugged")
	stream := newFakePlayback()
	stream.errs = []error{hwErr}
	sink := newTestSink(t, SinkConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 2, Factor: 1}, stream)
	require.NoError(t, sink.Open())

	err := sink.WriteResampled(SampleBlock{0, 0})
	var fault *DeviceFaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "write", fault.Op)
	assert.ErrorIs(t, err, hwErr)
}

func TestSinkCloseDiscardsPartialBuffer(t *testing.T) {
	stream := newFakePlayback()
	sink := newTestSink(t, SinkConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 8, Factor: 1}, stream)
	require.NoError(t, sink.Open())

	require.NoError(t, sink.WriteResampled(constBlock(5, 0.1)))
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	assert.Empty(t, stream.Writes())
	assert.True(t, stream.aborted)
	assert.True(t, stream.closed)
	assert.ErrorIs(t, sink.Write(SampleBlock{0.1}), ErrClosed)
	assert.ErrorIs(t, sink.Open(), ErrClosed)
}

func TestSinkCloseUnblocksWrite(t *testing.T) {
	stream := newFakePlayback()
	stream.block = true
	sink := newTestSink(t, SinkConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 2, Factor: 1}, stream)
	require.NoError(t, sink.Open())

	done := make(chan error, 1)
	go func() { done <- sink.WriteResampled(SampleBlock{0, 0}) }()

	select {
	case <-stream.writing:
	case <-time.After(time.Second):
		t.Fatal("write never started")
	}
	require.NoError(t, sink.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("write did not return after close")
	}
}

func TestNewSinkValidation(t *testing.T) {
	_, err := NewSink(SinkConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 2, Factor: 0}, nil)
	assert.Error(t, err)
	_, err = NewSink(SinkConfig{SampleRate: 8000, Channels: 0, FramesPerBuffer: 2, Factor: 1}, nil)
	assert.Error(t, err)
	_, err = NewSink(SinkConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 2, Factor: 3, Taps: []float64{}}, nil)
	assert.NoError(t, err)
}

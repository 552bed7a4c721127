// SPDX-License-Identifier: MIT
//
// Package utils holds signal generators and fakes shared by the tests of
// the audio, analysis and transport packages.
package utils

import (
	"math"
	"sync"
)

// MockTransport implements transport.Transport for testing. It keeps every
// message it was handed.
type MockTransport struct {
	mu       sync.Mutex
	Messages []any
	Closed   bool
}

// Send records data instead of transmitting it. Float slices are copied
// because producers reuse their buffers.
func (m *MockTransport) Send(data any) error {
	if v, ok := data.([]float64); ok {
		cp := make([]float64, len(v))
		copy(cp, v)
		data = cp
	}
	m.mu.Lock()
	m.Messages = append(m.Messages, data)
	m.mu.Unlock()
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Len returns the number of recorded messages.
func (m *MockTransport) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}

// Last returns the most recent message, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Messages) == 0 {
		return nil
	}
	return m.Messages[len(m.Messages)-1]
}

// GenerateSineWave returns size samples of a sine at frequency Hz with the
// given peak amplitude, normalized to [-1, 1].
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = amplitude * math.Sin(2*math.Pi*frequency*t)
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental plus two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = (math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2) * 0.9
	}
	return buffer
}

// GeneratePCM16Sine is GenerateSineWave quantized to 16-bit PCM, the format
// capture devices deliver.
func GeneratePCM16Sine(size int, sampleRate, frequency, amplitude float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int16(math.Round(amplitude * math.Sin(2*math.Pi*frequency*t) * 32767))
	}
	return buffer
}

// FindPeakBin returns the index of the largest value in magnitudes[startBin:endBin+1].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}

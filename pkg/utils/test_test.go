// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 8000
	testFrequency  = 1000.0
)

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}

	data := []float64{0.1, 0.2, 0.3}
	if err := mt.Send(data); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	data[0] = 999.999

	got, ok := mt.Last().([]float64)
	if !ok {
		t.Fatalf("Last() = %T, want []float64", mt.Last())
	}
	if got[0] == 999.999 {
		t.Error("MockTransport stored a reference instead of a copy")
	}

	_ = mt.Send(map[string]any{"type": "row"})
	if mt.Len() != 2 {
		t.Errorf("Len() = %d, want 2", mt.Len())
	}

	_ = mt.Close()
	if !mt.Closed {
		t.Error("Close() did not mark transport closed")
	}
}

func TestGenerateSineWave(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		sampleRate float64
		frequency  float64
		amplitude  float64
	}{
		{"Processing rate", testSize, testSampleRate, testFrequency, 0.5},
		{"Hardware rate", 4096, 48000, 440, 1.0},
		{"Small", 16, 8000, 100, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSineWave(tt.size, tt.sampleRate, tt.frequency, tt.amplitude)
			if len(result) != tt.size {
				t.Fatalf("len = %d, want %d", len(result), tt.size)
			}
			for i, v := range result {
				if math.Abs(v) > tt.amplitude+1e-12 {
					t.Fatalf("sample %d = %f exceeds amplitude %f", i, v, tt.amplitude)
				}
			}
		})
	}
}

func TestGeneratePCM16Sine(t *testing.T) {
	pcm := GeneratePCM16Sine(testSize, testSampleRate, testFrequency, 0.5)
	// 1 kHz at 8 kHz has a period of 8 samples; sample 2 is the positive peak.
	if pcm[2] != 16384 && pcm[2] != 16383 {
		t.Errorf("peak sample = %d, want ~16384", pcm[2])
	}
	if pcm[0] != 0 {
		t.Errorf("first sample = %d, want 0", pcm[0])
	}
}

func TestFindPeakBin(t *testing.T) {
	mags := make([]float64, testSize)
	for i := range mags {
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-testSize/4), 2))
	}

	tests := []struct {
		name     string
		mags     []float64
		start    int
		end      int
		expected int
	}{
		{"Full range", mags, 0, testSize - 1, testSize / 4},
		{"Clamped range", mags, -5, testSize + 5, testSize / 4},
		{"Upper half", mags, testSize / 2, testSize - 1, testSize / 2},
		{"Empty", nil, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(tt.mags, tt.start, tt.end); got != tt.expected {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.expected)
			}
		})
	}

	allocs := testing.AllocsPerRun(100, func() {
		FindPeakBin(mags, 0, len(mags)-1)
	})
	if allocs > 0 {
		t.Errorf("FindPeakBin allocated memory: got %.1f allocs, want 0", allocs)
	}
}

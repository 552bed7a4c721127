// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"sdrfront/internal/analysis"
	"sdrfront/internal/dsp"
	"sdrfront/internal/log"
)

// ProcessingRate returns the sample rate after decimation.
func (c *Config) ProcessingRate() float64 {
	return c.Audio.SampleRate / float64(c.DSP.DecimationFactor)
}

// MaxFrequency returns the top of the displayed band, the Nyquist
// frequency of the processing rate.
func (c *Config) MaxFrequency() float64 {
	return c.ProcessingRate() / 2
}

// FilterTaps returns the configured coefficients, or designs a low-pass of
// the configured length for the decimation factor.
func (c *Config) FilterTaps() ([]float64, error) {
	if len(c.DSP.Taps) > 0 {
		return c.DSP.Taps, nil
	}
	if c.DSP.DecimationFactor == 1 {
		return []float64{1}, nil
	}
	taps, err := dsp.DecimationTaps(c.DSP.DecimationFactor, c.DSP.FilterTaps)
	if err != nil {
		return nil, fmt.Errorf("design filter: %w", err)
	}
	return taps, nil
}

// Window returns the parsed analyser window.
func (c *Config) Window() analysis.WindowFunc {
	w, _ := analysis.ParseWindowFunc(c.Spectrum.FFTWindow)
	return w
}

// Level returns the effective log level. Debug forces LevelDebug.
func (c *Config) Level() log.LogLevel {
	if c.Debug {
		return log.LevelDebug
	}
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// RecordingPath returns a timestamped file name in the recording directory.
func (c *Config) RecordingPath(now time.Time) string {
	name := fmt.Sprintf("capture-%s.wav", now.Format("20060102-150405"))
	return filepath.Join(c.Recording.OutputDir, name)
}

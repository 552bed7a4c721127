// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sdrfront/internal/analysis"
	"sdrfront/internal/log"
	"sdrfront/internal/transport/udp"
	"sdrfront/pkg/bitint"
)

// Hardware and processing limits.
const (
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable hardware rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported hardware rate (Hz)
	MinBufferFrames = 16
	MaxBufferFrames = 8192
	MaxChannels     = 32
	MinFilterTaps   = 3
	MaxFilterTaps   = 4095
	MinFFTSize      = 64
	MaxFFTSize      = 65536

	// Processing below this rate leaves nothing worth demodulating.
	MinProcessingRate = 2000
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (forces debug logging).
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	LogFile   string          `yaml:"log_file"`  // Log destination while the terminal viewer owns the screen.
	Headless  bool            `yaml:"headless"`  // Run without the terminal viewer.
	Audio     AudioConfig     `yaml:"audio"`
	DSP       DSPConfig       `yaml:"dsp"`
	Spectrum  SpectrumConfig  `yaml:"spectrum"`
	Waterfall WaterfallConfig `yaml:"waterfall"`
	Tuner     TunerConfig     `yaml:"tuner"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds settings related to audio input/output.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for capture (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index for playback (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Hardware sample rate in Hz for both directions.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per hardware buffer.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio.
	InputChannels   int     `yaml:"input_channels"`    // Captured channels, mixed down to mono.
	OutputChannels  int     `yaml:"output_channels"`   // Playback channels, mono duplicated.
	Playback        bool    `yaml:"playback"`          // Open the output device and play demodulated audio.
}

// DSPConfig holds the rate converter settings.
type DSPConfig struct {
	DecimationFactor int       `yaml:"decimation_factor"` // Hardware rate / processing rate.
	FilterTaps       int       `yaml:"filter_taps"`       // Length of the designed low-pass filter.
	Taps             []float64 `yaml:"taps,omitempty"`    // Explicit coefficients; overrides FilterTaps.
}

// SpectrumConfig holds the analyser settings.
type SpectrumConfig struct {
	FFTSize   int    `yaml:"fft_size"`   // Points per FFT frame (power of 2).
	FFTWindow string `yaml:"fft_window"` // Window function name (e.g., "Hann", "Blackman").
	Hop       int    `yaml:"hop"`        // New samples per frame; 0 means fft_size.
}

// WaterfallConfig holds the spectrogram geometry and intensity mapping.
type WaterfallConfig struct {
	Width           int           `yaml:"width"`
	Height          int           `yaml:"height"`
	Scale           float64       `yaml:"scale"`            // Palette steps per natural-log unit of power.
	Offset          float64       `yaml:"offset"`           // Palette index of unit power.
	RefreshInterval time.Duration `yaml:"refresh_interval"` // Render tick.
}

// TunerConfig holds the initial tuner state.
type TunerConfig struct {
	Frequency     float64 `yaml:"frequency"`      // Tuned frequency in Hz.
	PassbandWidth float64 `yaml:"passband_width"` // Passband width in Hz.
	TickStep      float64 `yaml:"tick_step"`      // Frequency axis tick spacing in Hz.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record raw capture to file.
	OutputDir string `yaml:"output_dir"` // Directory to save recorded audio files.
	Format    string `yaml:"format"`     // File format for recordings ("wav").
}

// TransportConfig holds settings related to sending rows and spectra over the network.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve waterfall rows on /ws.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address, e.g. ":8080".
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending FFT data over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between sending UDP packets.
}

// Default returns the built-in configuration: 48 kHz hardware decimated by
// 6 to an 8 kHz processing rate.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     MinDeviceID,
			OutputDevice:    MinDeviceID,
			SampleRate:      48000,
			FramesPerBuffer: 1024,
			InputChannels:   1,
			OutputChannels:  2,
		},
		DSP: DSPConfig{
			DecimationFactor: 6,
			FilterTaps:       63,
		},
		Spectrum: SpectrumConfig{
			FFTSize:   1024,
			FFTWindow: "Hann",
		},
		Waterfall: WaterfallConfig{
			Width:           512,
			Height:          256,
			Scale:           11.5,
			Offset:          115,
			RefreshInterval: 100 * time.Millisecond,
		},
		Tuner: TunerConfig{
			Frequency:     1000,
			PassbandWidth: 300,
			TickStep:      25,
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
			Format:    "wav",
		},
		Transport: TransportConfig{
			WebSocketAddress: ":8080",
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz
		},
	}
}

// configCandidates are searched, in order, when no path is given.
var configCandidates = []string{"config.yaml", "sdrfront.yaml"}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations. If no file is found, it uses built-in defaults.
// Variables from a .env file in the working directory are loaded first; ENV_*
// variables then override file values, and the result is validated.
func LoadConfig(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()

	if path == "" {
		for _, candidate := range configCandidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv exports the variables in file without overriding ones already
// set. A missing file is not an error.
func loadDotEnv(file string) error {
	if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load %s: %w", file, err)
	}
	return nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error, fatal", c.LogLevel))
	}

	a := c.Audio
	check(a.InputDevice >= MinDeviceID, "audio.input_device must be >= %d", MinDeviceID)
	check(a.OutputDevice >= MinDeviceID, "audio.output_device must be >= %d", MinDeviceID)
	check(a.SampleRate >= MinSampleRate && a.SampleRate <= MaxSampleRate,
		"audio.sample_rate %.0f outside [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	check(a.FramesPerBuffer >= MinBufferFrames && a.FramesPerBuffer <= MaxBufferFrames,
		"audio.frames_per_buffer %d outside [%d, %d]", a.FramesPerBuffer, MinBufferFrames, MaxBufferFrames)
	check(a.InputChannels >= 1 && a.InputChannels <= MaxChannels, "audio.input_channels %d outside [1, %d]", a.InputChannels, MaxChannels)
	check(a.OutputChannels >= 1 && a.OutputChannels <= MaxChannels, "audio.output_channels %d outside [1, %d]", a.OutputChannels, MaxChannels)

	d := c.DSP
	check(d.DecimationFactor >= 1, "dsp.decimation_factor must be >= 1, got %d", d.DecimationFactor)
	if d.DecimationFactor >= 1 {
		check(c.ProcessingRate() >= MinProcessingRate,
			"processing rate %.0f Hz (sample_rate / decimation_factor) below %d Hz", c.ProcessingRate(), MinProcessingRate)
	}
	if len(d.Taps) == 0 {
		check(d.FilterTaps >= MinFilterTaps && d.FilterTaps <= MaxFilterTaps,
			"dsp.filter_taps %d outside [%d, %d]", d.FilterTaps, MinFilterTaps, MaxFilterTaps)
	} else {
		check(len(d.Taps) <= MaxFilterTaps, "dsp.taps has %d coefficients, max %d", len(d.Taps), MaxFilterTaps)
	}

	s := c.Spectrum
	check(bitint.IsPowerOfTwo(s.FFTSize) && s.FFTSize >= MinFFTSize && s.FFTSize <= MaxFFTSize,
		"spectrum.fft_size %d must be a power of 2 in [%d, %d] (nearest above is %d)",
		s.FFTSize, MinFFTSize, MaxFFTSize, bitint.NextPowerOfTwo(s.FFTSize))
	if _, err := analysis.ParseWindowFunc(s.FFTWindow); err != nil {
		errs = append(errs, fmt.Errorf("spectrum.fft_window: %w", err))
	}
	check(s.Hop >= 0 && s.Hop <= s.FFTSize, "spectrum.hop %d outside [0, fft_size]", s.Hop)

	w := c.Waterfall
	check(w.Width > 0 && w.Height > 0, "waterfall geometry %dx%d must be positive", w.Width, w.Height)
	check(w.RefreshInterval > 0, "waterfall.refresh_interval must be positive")

	t := c.Tuner
	check(t.PassbandWidth >= 0, "tuner.passband_width must not be negative")
	check(t.TickStep > 0, "tuner.tick_step must be positive")
	if d.DecimationFactor >= 1 {
		check(t.Frequency >= 0 && t.Frequency <= c.MaxFrequency(),
			"tuner.frequency %.0f outside [0, %.0f]", t.Frequency, c.MaxFrequency())
	}

	if c.Recording.Enabled {
		check(strings.EqualFold(c.Recording.Format, "wav"), "recording.format %q is not supported (wav only)", c.Recording.Format)
		check(c.Recording.OutputDir != "", "recording.output_dir must be set when recording is enabled")
	}

	tr := c.Transport
	if tr.WebSocketEnabled {
		check(strings.Contains(tr.WebSocketAddress, ":"), "transport.websocket_address %q appears invalid (missing port?)", tr.WebSocketAddress)
	}
	if tr.UDPEnabled {
		check(strings.Contains(tr.UDPTargetAddress, ":"), "transport.udp_target_address %q appears invalid (missing port?)", tr.UDPTargetAddress)
		check(tr.UDPSendInterval > 0, "transport.udp_send_interval must be positive when UDP is enabled")
		check(s.FFTSize <= udp.MaxFFTSize,
			"spectrum.fft_size %d gives %d byte UDP packets (max %d); use %d or less with transport.udp_enabled",
			s.FFTSize, udp.PacketSize(s.FFTSize), udp.MaxPayload, bitint.PrevPowerOfTwo(udp.MaxFFTSize))
	}

	return errors.Join(errs...)
}

// envOverride binds one ENV_* variable to a config field.
type envOverride struct {
	name  string
	apply func(cfg *Config, val string) error
}

func boolEnv(set func(*Config, bool)) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		set(cfg, b)
		return nil
	}
}

func intEnv(set func(*Config, int)) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		set(cfg, n)
		return nil
	}
}

func floatEnv(set func(*Config, float64)) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return err
		}
		set(cfg, f)
		return nil
	}
}

func stringEnv(set func(*Config, string)) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		set(cfg, val)
		return nil
	}
}

var envOverrides = []envOverride{
	{"ENV_DEBUG", boolEnv(func(c *Config, v bool) { c.Debug = v })},
	{"ENV_LOG_LEVEL", stringEnv(func(c *Config, v string) { c.LogLevel = v })},
	{"ENV_LOG_FILE", stringEnv(func(c *Config, v string) { c.LogFile = v })},
	{"ENV_INPUT_DEVICE", intEnv(func(c *Config, v int) { c.Audio.InputDevice = v })},
	{"ENV_OUTPUT_DEVICE", intEnv(func(c *Config, v int) { c.Audio.OutputDevice = v })},
	{"ENV_SAMPLE_RATE", floatEnv(func(c *Config, v float64) { c.Audio.SampleRate = v })},
	{"ENV_DECIMATION_FACTOR", intEnv(func(c *Config, v int) { c.DSP.DecimationFactor = v })},
	{"ENV_FFT_SIZE", intEnv(func(c *Config, v int) { c.Spectrum.FFTSize = v })},
	{"ENV_TUNE_FREQUENCY", floatEnv(func(c *Config, v float64) { c.Tuner.Frequency = v })},
	{"ENV_PASSBAND_WIDTH", floatEnv(func(c *Config, v float64) { c.Tuner.PassbandWidth = v })},
	{"ENV_WS_ENABLED", boolEnv(func(c *Config, v bool) { c.Transport.WebSocketEnabled = v })},
	{"ENV_WS_ADDRESS", stringEnv(func(c *Config, v string) { c.Transport.WebSocketAddress = v })},
	{"ENV_UDP_ENABLED", boolEnv(func(c *Config, v bool) { c.Transport.UDPEnabled = v })},
	{"ENV_UDP_TARGET_ADDRESS", stringEnv(func(c *Config, v string) { c.Transport.UDPTargetAddress = v })},
	{"ENV_UDP_SEND_INTERVAL", func(c *Config, val string) error {
		dur, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		c.Transport.UDPSendInterval = dur
		return nil
	}},
}

// applyEnvOverrides applies every ENV_* variable that is set. A value that
// does not parse is an error rather than silently ignored.
func (c *Config) applyEnvOverrides() error {
	for _, o := range envOverrides {
		val, ok := os.LookupEnv(o.name)
		if !ok {
			continue
		}
		if err := o.apply(c, val); err != nil {
			return fmt.Errorf("%s=%q: %w", o.name, val, err)
		}
		log.Debugf("Config: overriding from %s=%s", o.name, val)
	}
	return nil
}

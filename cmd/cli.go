// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sdrfront/internal/config"
	"sdrfront/pkg/build"
)

// Commands that run instead of the receiver.
const (
	CommandRun  = ""
	CommandList = "list"
)

// Options is the result of parsing the command line.
type Options struct {
	Command    string
	Config     *config.Config
	Pick       bool      // choose the capture device interactively first
	RecordPath string    // non-empty when --record is set
	StartTime  time.Time // used to name recordings
}

// flagValues holds the raw flag targets. Only flags the user actually set
// are copied onto the loaded configuration.
type flagValues struct {
	configPath string

	inputDevice     int
	outputDevice    int
	sampleRate      float64
	channels        int
	framesPerBuffer int
	lowLatency      bool
	playback        bool

	decimation int
	fftSize    int
	window     string

	tune     float64
	passband float64

	record bool
	output string

	headless  bool
	websocket string
	udp       string

	logLevel string
	logFile  string
	verbose  bool
}

// ParseArgs parses args (without the program name), loads the configuration
// and applies the flags the user set on top of it.
func ParseArgs(args []string, out io.Writer) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	defaults := config.Default()
	opts := &Options{StartTime: time.Now()}
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(fv.configPath)
			if err != nil {
				return err
			}
			if err := fv.apply(cmd.Flags(), cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}
			opts.Config = cfg
			opts.Command = CommandRun
			if fv.record || cfg.Recording.Enabled {
				opts.RecordPath = fv.output
				if opts.RecordPath == "" {
					opts.RecordPath = cfg.RecordingPath(opts.StartTime)
				}
			}
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	// List command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandList
			return nil
		},
	})

	flags := rootCmd.Flags()
	flags.StringVarP(&fv.configPath, "config", "f", "",
		"YAML configuration file (default: ./config.yaml if present)")
	flags.BoolVar(&opts.Pick, "pick", false,
		"Choose the capture device and sample rate interactively")

	// Audio Device Configuration
	flags.IntVarP(&fv.inputDevice, "device", "d", defaults.Audio.InputDevice,
		"Capture device ID. Use 'list' command to see available devices.")
	flags.IntVar(&fv.outputDevice, "output-device", defaults.Audio.OutputDevice,
		"Playback device ID")
	flags.Float64VarP(&fv.sampleRate, "sample-rate", "s", defaults.Audio.SampleRate,
		"Hardware sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&fv.channels, "channels", "c", defaults.Audio.InputChannels,
		"Number of capture channels (mixed down to mono)")
	flags.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", defaults.Audio.FramesPerBuffer,
		"The number of frames per hardware buffer (affects latency)")
	flags.BoolVarP(&fv.lowLatency, "low-latency", "l", defaults.Audio.LowLatency,
		"Use low latency device settings")
	flags.BoolVar(&fv.playback, "playback", defaults.Audio.Playback,
		"Play the demodulated audio on the output device")

	// Processing
	flags.IntVarP(&fv.decimation, "decimation", "n", defaults.DSP.DecimationFactor,
		"Hardware rate / processing rate")
	flags.IntVar(&fv.fftSize, "fft-size", defaults.Spectrum.FFTSize,
		"Points per FFT frame (power of 2)")
	flags.StringVar(&fv.window, "window", defaults.Spectrum.FFTWindow,
		"FFT window function")

	// Tuner
	flags.Float64VarP(&fv.tune, "tune", "t", defaults.Tuner.Frequency,
		"Initial tuned frequency in Hz")
	flags.Float64VarP(&fv.passband, "passband", "p", defaults.Tuner.PassbandWidth,
		"Initial passband width in Hz")

	// Recording Configuration
	flags.BoolVarP(&fv.record, "record", "r", false,
		"Record raw captured audio to a WAV file")
	flags.StringVarP(&fv.output, "output", "o", "",
		"Recording file name. Default is <recording.output_dir>/capture-YYYYMMDD-HHMMSS.wav")

	// Outputs
	flags.BoolVar(&fv.headless, "headless", defaults.Headless,
		"Run without the terminal waterfall")
	flags.StringVar(&fv.websocket, "websocket", "",
		"Serve waterfall rows over WebSocket on this address (e.g. :8080)")
	flags.StringVar(&fv.udp, "udp", "",
		"Publish FFT magnitudes over UDP to this address (e.g. 127.0.0.1:9090)")

	// Debug Configuration
	flags.StringVar(&fv.logLevel, "log-level", defaults.LogLevel,
		"Log level: debug, info, warn, error")
	flags.StringVar(&fv.logFile, "log-file", "",
		"Write logs to this file instead of the terminal")
	flags.BoolVarP(&fv.verbose, "verbose", "v", false,
		"Show verbose output (debug logging)")

	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if opts.Config == nil && opts.Command == CommandRun {
		// --help or --version was handled by cobra.
		return nil, nil
	}
	return opts, nil
}

// apply copies every flag the user set onto cfg.
func (fv *flagValues) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
		}
	}

	set("device", func() { cfg.Audio.InputDevice = fv.inputDevice })
	set("output-device", func() { cfg.Audio.OutputDevice = fv.outputDevice })
	set("sample-rate", func() { cfg.Audio.SampleRate = fv.sampleRate })
	set("channels", func() { cfg.Audio.InputChannels = fv.channels })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = fv.framesPerBuffer })
	set("low-latency", func() { cfg.Audio.LowLatency = fv.lowLatency })
	set("playback", func() { cfg.Audio.Playback = fv.playback })
	set("decimation", func() { cfg.DSP.DecimationFactor = fv.decimation })
	set("fft-size", func() { cfg.Spectrum.FFTSize = fv.fftSize })
	set("window", func() { cfg.Spectrum.FFTWindow = fv.window })
	set("tune", func() { cfg.Tuner.Frequency = fv.tune })
	set("passband", func() { cfg.Tuner.PassbandWidth = fv.passband })
	set("headless", func() { cfg.Headless = fv.headless })
	set("log-level", func() { cfg.LogLevel = fv.logLevel })
	set("log-file", func() { cfg.LogFile = fv.logFile })
	set("verbose", func() { cfg.Debug = fv.verbose })
	set("websocket", func() {
		cfg.Transport.WebSocketEnabled = fv.websocket != ""
		cfg.Transport.WebSocketAddress = fv.websocket
	})
	set("udp", func() {
		cfg.Transport.UDPEnabled = fv.udp != ""
		cfg.Transport.UDPTargetAddress = fv.udp
	})

	if fs.Changed("output") && !fs.Changed("record") {
		return fmt.Errorf("--output requires --record")
	}
	return nil
}

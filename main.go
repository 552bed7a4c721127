// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"sdrfront/cmd"
	"sdrfront/internal/analysis"
	"sdrfront/internal/audio"
	"sdrfront/internal/config"
	"sdrfront/internal/engine"
	"sdrfront/internal/log"
	"sdrfront/internal/transport"
	"sdrfront/internal/transport/udp"
	"sdrfront/internal/tui"
	"sdrfront/internal/waterfall"
	"sdrfront/pkg/build"
)

// defaultLogFile receives log output while the terminal viewer owns the
// screen and no log file was configured.
const defaultLogFile = "sdrfront.log"

// main is the entry point of the receiver front end.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Initialize PortAudio
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Open capture (and playback) devices
//   - Run the audio goroutine and the render ticker
//   - Show the terminal waterfall unless headless
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals or the viewer quitting
//   - Finish any recording
//   - Release devices and transports
func main() {
	os.Exit(run())
}

func run() int {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	opts, err := cmd.ParseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if opts == nil {
		return 0 // --help or --version
	}

	// One thread for the audio goroutine, which locks its OS thread, and
	// one for rendering and I/O.
	runtime.GOMAXPROCS(max(2, runtime.GOMAXPROCS(0)))

	if err := audio.Initialize(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer audio.Terminate()

	if opts.Command == cmd.CommandList {
		if err := audio.ListDevices(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	if err := receive(opts); err != nil {
		log.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// receive builds the pipeline from the configuration and runs it until
// the user quits, a signal arrives or a device fails.
func receive(opts *cmd.Options) error {
	cfg := opts.Config
	log.SetLevel(cfg.Level())

	if opts.Pick {
		sel, ok, err := tui.PickDevice(audio.HostDevices)
		if err != nil {
			return fmt.Errorf("device picker: %w", err)
		}
		if !ok {
			return nil
		}
		cfg.Audio.InputDevice = sel.Device.ID
		cfg.Audio.SampleRate = sel.SampleRate
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%s at %.0f Hz: %w", sel.Device.Name, sel.SampleRate, err)
		}
	}

	logFile := cfg.LogFile
	if logFile == "" && !cfg.Headless {
		logFile = defaultLogFile
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
		defer log.SetOutput(os.Stderr)
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.close()

	if opts.RecordPath != "" {
		if err := p.engine.StartRecording(opts.RecordPath); err != nil {
			return err
		}
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineDone := make(chan error, 1)
	viewerStop := make(chan error, 1)
	go func() {
		err := p.engine.Run(ctx)
		engineDone <- err
		viewerStop <- err
	}()

	if cfg.Headless {
		log.Infof("Running headless, press Ctrl+C to stop")
		return <-engineDone
	}

	viewErr := tui.RunViewer(p.engine, cfg.Waterfall.RefreshInterval, viewerStop)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	stop()
	if err := <-engineDone; err != nil {
		return err
	}
	return viewErr
}

// pipeline holds everything receive has to release.
type pipeline struct {
	engine    *engine.Engine
	publisher *udp.UDPPublisher
	sender    *udp.UDPSender
}

func (p *pipeline) close() {
	if p.publisher != nil {
		p.publisher.Close()
	}
	if p.sender != nil {
		p.sender.Close()
	}
	if path, ok := p.engine.Recording(); ok {
		fmt.Printf("\nRecording saved to: %s\n", path)
	}
	if err := p.engine.Close(); err != nil {
		log.Errorf("Error closing engine: %v", err)
	}
}

func buildPipeline(cfg *config.Config) (*pipeline, error) {
	taps, err := cfg.FilterTaps()
	if err != nil {
		return nil, err
	}

	source, err := audio.NewSource(audio.SourceConfig{
		DeviceID:        cfg.Audio.InputDevice,
		SampleRate:      cfg.Audio.SampleRate,
		Channels:        cfg.Audio.InputChannels,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		LowLatency:      cfg.Audio.LowLatency,
		Taps:            taps,
		Factor:          cfg.DSP.DecimationFactor,
	}, log.New("Source"))
	if err != nil {
		return nil, err
	}

	var sink engine.Sink
	if cfg.Audio.Playback {
		s, err := audio.NewSink(audio.SinkConfig{
			DeviceID:        cfg.Audio.OutputDevice,
			SampleRate:      cfg.Audio.SampleRate,
			Channels:        cfg.Audio.OutputChannels,
			FramesPerBuffer: cfg.Audio.FramesPerBuffer,
			LowLatency:      cfg.Audio.LowLatency,
			Taps:            taps,
			Factor:          cfg.DSP.DecimationFactor,
		}, log.New("Sink"))
		if err != nil {
			return nil, err
		}
		sink = s
	}

	spec, err := waterfall.NewSpectrogram(waterfall.SpectrogramConfig{
		Width:  cfg.Waterfall.Width,
		Height: cfg.Waterfall.Height,
		Scale:  cfg.Waterfall.Scale,
		Offset: cfg.Waterfall.Offset,
	}, log.New("Spectrogram"))
	if err != nil {
		return nil, err
	}

	fft, err := analysis.NewFFTProcessor(analysis.FFTConfig{
		Size:       cfg.Spectrum.FFTSize,
		SampleRate: cfg.ProcessingRate(),
		Window:     cfg.Window(),
		Hop:        cfg.Spectrum.Hop,
	}, spec, log.New("FFT"))
	if err != nil {
		return nil, err
	}

	var transports transport.Multi
	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, log.New("WebSocket"))
		if err != nil {
			return nil, err
		}
		transports = append(transports, ws)
	}
	if cfg.Debug {
		transports = append(transports, transport.NewLoggingTransport(log.New("Rows")))
	}

	p := &pipeline{}
	deps := engine.Deps{
		Source:      source,
		Sink:        sink,
		Analyzer:    fft,
		Spectrogram: spec,
	}
	if len(transports) > 0 {
		deps.Transport = transports
	}
	p.engine, err = engine.New(engine.Config{
		HardwareRate:    cfg.Audio.SampleRate,
		Channels:        cfg.Audio.InputChannels,
		MaxFrequency:    cfg.MaxFrequency(),
		TickStep:        cfg.Tuner.TickStep,
		RefreshInterval: cfg.Waterfall.RefreshInterval,
		Tuning: engine.Tuning{
			Frequency:     cfg.Tuner.Frequency,
			PassbandWidth: cfg.Tuner.PassbandWidth,
		},
	}, deps, log.New("Engine"))
	if err != nil {
		return nil, errors.Join(err, transports.Close())
	}

	if cfg.Transport.UDPEnabled {
		p.sender, err = udp.NewUDPSender(cfg.Transport.UDPTargetAddress, log.New("UDPSender"))
		if err != nil {
			p.close()
			return nil, err
		}
		p.publisher, err = udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, p.sender, fft, log.New("UDPPublisher"))
		if err != nil {
			p.close()
			return nil, err
		}
		p.publisher.Start()
	}
	return p, nil
}

// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"sdrfront/internal/log"
)

// MagnitudeSource is the part of the analyser the publisher reads from.
type MagnitudeSource interface {
	GetMagnitudesInto(dest []float64) error
	GetFFTSize() int
}

// PacketSender delivers one datagram.
type PacketSender interface {
	Send(data []byte) error
}

const (
	headerSize      = 4 + 8 + 2
	defaultInterval = 16 * time.Millisecond

	// MaxPayload is the largest IPv4 UDP payload.
	MaxPayload = 65507
	// MaxFFTSize is the largest FFT size whose packet fits in MaxPayload.
	// It need not be a power of two.
	MaxFFTSize = 2 * ((MaxPayload-headerSize)/4 - 1)
)

// PacketSize returns the datagram length for an FFT of fftSize points.
func PacketSize(fftSize int) int {
	return headerSize + 4*(fftSize/2+1)
}

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("udp: short packet")

/*
UDP Packet Structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |   Magnitude   |       Magnitudes        |
|      (uint32)     |  (int64, ns of epoch) |  Count (N)    |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+
*/

// Packet is a decoded magnitude datagram.
type Packet struct {
	Sequence   uint32
	Timestamp  time.Time
	Magnitudes []float32
}

// DecodePacket parses a datagram produced by UDPPublisher.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, ErrShortPacket
	}
	count := int(binary.BigEndian.Uint16(b[12:14]))
	if len(b) < headerSize+4*count {
		return Packet{}, fmt.Errorf("%w: want %d magnitudes, have %d bytes", ErrShortPacket, count, len(b)-headerSize)
	}

	p := Packet{
		Sequence:   binary.BigEndian.Uint32(b[0:4]),
		Timestamp:  time.Unix(0, int64(binary.BigEndian.Uint64(b[4:12]))),
		Magnitudes: make([]float32, count),
	}
	for i := range p.Magnitudes {
		off := headerSize + 4*i
		p.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(b[off : off+4]))
	}
	return p, nil
}

// UDPPublisher periodically fetches FFT magnitudes, packs them into the
// binary format above and sends them with a PacketSender. It runs in a
// separate goroutine managed by Start and Stop.
type UDPPublisher struct {
	logger   *log.Logger
	sender   PacketSender
	source   MagnitudeSource
	interval time.Duration
	now      func() time.Time

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	sequenceNum uint32

	// Pre-allocated buffers so a tick does not allocate.
	magBuffer []float64
	packet    []byte
}

// NewUDPPublisher creates and initializes a new UDPPublisher. A
// non-positive interval defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender PacketSender, source MagnitudeSource, logger *log.Logger) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("UDPPublisher: magnitude source cannot be nil")
	}

	if interval <= 0 {
		interval = defaultInterval
		logger.Warnf("Invalid interval provided, defaulting to %s", interval)
	}

	fftSize := source.GetFFTSize()
	if size := PacketSize(fftSize); size > MaxPayload {
		return nil, fmt.Errorf("UDPPublisher: FFT size %d needs %d byte packets, max %d", fftSize, size, MaxPayload)
	}
	bins := fftSize/2 + 1
	logger.Infof("Initializing (Interval: %s, FFT Bins: %d)", interval, bins)

	return &UDPPublisher{
		logger:    logger,
		sender:    sender,
		source:    source,
		interval:  interval,
		now:       time.Now,
		magBuffer: make([]float64, bins),
		packet:    make([]byte, 0, PacketSize(fftSize)),
	}, nil
}

// Start begins the periodic publishing process.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		p.logger.Warnf("Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies so the goroutine never reads p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.logger.Debugf("Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Infof("Publisher stopped after %d packets", p.sequenceNum)
	return nil
}

// buildPacket fetches the latest magnitudes and encodes them into p.packet.
func (p *UDPPublisher) buildPacket() error {
	if err := p.source.GetMagnitudesInto(p.magBuffer); err != nil {
		return fmt.Errorf("get magnitudes: %w", err)
	}

	p.sequenceNum++
	b := p.packet[:0]
	b = binary.BigEndian.AppendUint32(b, p.sequenceNum)
	b = binary.BigEndian.AppendUint64(b, uint64(p.now().UnixNano()))
	b = binary.BigEndian.AppendUint16(b, uint16(len(p.magBuffer)))
	for _, v := range p.magBuffer {
		b = binary.BigEndian.AppendUint32(b, math.Float32bits(float32(v)))
	}
	p.packet = b
	return nil
}

// publish runs on every tick.
func (p *UDPPublisher) publish() {
	if err := p.buildPacket(); err != nil {
		p.logger.Errorf("Skipping packet: %v", err)
		return
	}
	// The sender logs its own errors.
	if err := p.sender.Send(p.packet); err == nil {
		p.logger.Debugf("Sent packet %d (%d bytes)", p.sequenceNum, len(p.packet))
	}
}

// Close implements the io.Closer interface. It gracefully stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)

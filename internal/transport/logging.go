// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"sdrfront/internal/log"
)

// LoggingTransport implements the Transport interface by logging a summary
// of each message at debug level. It is the fallback when no network
// transport is configured.
type LoggingTransport struct {
	logger *log.Logger
	sent   atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport(logger *log.Logger) *LoggingTransport {
	logger.Infof("Using LoggingTransport")
	return &LoggingTransport{logger: logger}
}

// Send logs the received data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	switch msg := data.(type) {
	case RowMessage:
		lt.logger.Debugf("row %d: %d px, tune %.0f Hz, passband %.0f Hz, level %.1f dB",
			msg.Row, msg.Width, msg.TuneHz, msg.PassbandHz, msg.LevelDB)
	default:
		lt.logger.Debugf("message %d (%T)", n, data)
	}
	return nil
}

// Sent returns the number of messages passed to Send.
func (lt *LoggingTransport) Sent() uint64 {
	return lt.sent.Load()
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	lt.logger.Infof("Close called after %d messages", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)

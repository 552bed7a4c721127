// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"sdrfront/internal/log"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("udp sender is closed")

// UDPSender handles sending data packets over UDP.
type UDPSender struct {
	logger *log.Logger
	conn   *net.UDPConn
	mu     sync.Mutex // Protects conn during Close
	closed bool
}

// NewUDPSender creates a new UDPSender targeting the specified address.
// The address should be in the format "host:port", e.g., "127.0.0.1:9090".
func NewUDPSender(targetAddress string, logger *log.Logger) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}

	// No local port is needed for sending.
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	logger.Infof("Connection established to %s", conn.RemoteAddr())
	return &UDPSender{logger: logger, conn: conn}, nil
}

// Send transmits the given byte slice as one UDP datagram.
// It is safe for concurrent use, although typically called sequentially by the publisher.
func (s *UDPSender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSenderClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		s.logger.Warnf("Error sending packet: %v", err)
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Close closes the underlying UDP connection.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.logger.Infof("Closing connection to %s", s.conn.RemoteAddr())
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}

var _ interface{ Close() error } = (*UDPSender)(nil)

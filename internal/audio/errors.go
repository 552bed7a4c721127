// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a handle after Close, including
	// a Read or Write that was in flight when Close aborted the stream.
	ErrClosed = errors.New("audio: device closed")

	// ErrNotOpen is returned by Read and Write before Open succeeded.
	ErrNotOpen = errors.New("audio: device not open")

	// ErrInputOverflow reports that the hardware dropped input because it
	// was not read in time. The samples that were read are still valid.
	ErrInputOverflow = errors.New("audio: input overflowed")

	// ErrOutputUnderflow reports that playback ran dry before the last
	// write. The write itself succeeded.
	ErrOutputUnderflow = errors.New("audio: output underflowed")
)

// DeviceInitError means a device could not be opened: the hardware is
// missing or rejects the requested format. It is not retried.
type DeviceInitError struct {
	Device string
	Err    error
}

func (e *DeviceInitError) Error() string {
	return fmt.Sprintf("audio: failed to open %s: %v", e.Device, e.Err)
}

func (e *DeviceInitError) Unwrap() error { return e.Err }

// DeviceFaultError is a runtime read or write failure reported by the
// hardware. The caller decides whether to close and reopen.
type DeviceFaultError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *DeviceFaultError) Error() string {
	return fmt.Sprintf("audio: %s fault: %v", e.Op, e.Err)
}

func (e *DeviceFaultError) Unwrap() error { return e.Err }

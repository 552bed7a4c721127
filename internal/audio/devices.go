// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"
)

// DefaultDeviceID selects the host's default input or output device.
const DefaultDeviceID = -1

// PortAudio entry points, swapped out in tests.
var (
	paLibInitialize              = portaudio.Initialize
	paLibTerminate               = portaudio.Terminate
	paLibDevicesFunc             = portaudio.Devices
	paLibDefaultInputDeviceFunc  = portaudio.DefaultInputDevice
	paLibDefaultOutputDeviceFunc = portaudio.DefaultOutputDevice
	paLibIsFormatSupported       = portaudio.IsFormatSupported
	paLibOpenStream              = portaudio.OpenStream

	paDevicesFunc = paDevices
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
// This should be deferred immediately after Initialize().
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// InputDevice retrieves the capture device for the given device ID.
// DefaultDeviceID (-1) selects the system default input device.
func InputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	return lookupDevice(deviceID, "input", paLibDefaultInputDeviceFunc, func(d *portaudio.DeviceInfo) int {
		return d.MaxInputChannels
	})
}

// OutputDevice retrieves the playback device for the given device ID.
// DefaultDeviceID (-1) selects the system default output device.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	return lookupDevice(deviceID, "output", paLibDefaultOutputDeviceFunc, func(d *portaudio.DeviceInfo) int {
		return d.MaxOutputChannels
	})
}

func lookupDevice(
	deviceID int,
	direction string,
	defaultDevice func() (*portaudio.DeviceInfo, error),
	channels func(*portaudio.DeviceInfo) int,
) (*portaudio.DeviceInfo, error) {
	devices, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	if deviceID == DefaultDeviceID {
		device, err := defaultDevice()
		if err != nil {
			return nil, err
		}
		return device, nil
	}

	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}

	device := devices[deviceID]
	if channels(device) == 0 {
		return nil, fmt.Errorf("device %d (%s) does not support %s", deviceID, device.Name, direction)
	}
	return device, nil
}

// ListDevices writes a description of every available audio device to w:
// ID and name, direction, channel counts, default sample rate and latency range.
func ListDevices(w io.Writer) error {
	devices, err := paDevicesFunc()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for i, device := range devices {
		inputChannels := device.MaxInputChannels
		outputChannels := device.MaxOutputChannels

		deviceType := ""
		if inputChannels > 0 && outputChannels > 0 {
			deviceType = "Input/Output"
		} else if inputChannels > 0 {
			deviceType = "Input"
		} else if outputChannels > 0 {
			deviceType = "Output"
		}

		fmt.Fprintf(w, "[%d] %s (%s)\n", i, device.Name, deviceType)
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", inputChannels, outputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			device.DefaultLowInputLatency.Seconds()*1000,
			device.DefaultHighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}

	return nil
}

// paDevices returns all available PortAudio devices, never a nil slice on success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}

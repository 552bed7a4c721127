// SPDX-License-Identifier: MIT
package audio

// Device is a host audio device as shown to users.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// SampleBlock is a run of normalized samples in [-1, 1]. Blocks returned by
// Source.Read are reused on the next call; use Clone to keep one.
type SampleBlock []float64

// Clone returns a copy of b.
func (b SampleBlock) Clone() SampleBlock {
	if b == nil {
		return nil
	}
	out := make(SampleBlock, len(b))
	copy(out, b)
	return out
}

// HostDevices returns all available audio devices. PortAudio must already
// be initialized.
func HostDevices() ([]Device, error) {
	paDeviceInfos, err := paDevicesFunc()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(paDeviceInfos))
	for i, info := range paDeviceInfos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		}
	}

	return devices, nil
}

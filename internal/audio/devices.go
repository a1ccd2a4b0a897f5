package audio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Device describes a PortAudio capture device in a Go-friendly way.
type Device struct {
	Name            string
	Channels        int
	DefaultSampleHz float64
	HostAPI         string
	IsDefault       bool
}

// ListInputs returns every device that can capture audio, sorted by host and name.
func ListInputs() ([]Device, error) {
	hosts, err := portaudio.HostApis()
	if err != nil {
		return nil, fmt.Errorf("host apis: %w", err)
	}

	defaultIndex := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultIndex = def.Index
	}

	var devices []Device
	for _, host := range hosts {
		for _, d := range host.Devices {
			if d.MaxInputChannels <= 0 {
				continue
			}
			devices = append(devices, Device{
				Name:            d.Name,
				Channels:        d.MaxInputChannels,
				DefaultSampleHz: d.DefaultSampleRate,
				HostAPI:         host.Name,
				IsDefault:       d.Index == defaultIndex,
			})
		}
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].HostAPI == devices[j].HostAPI {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].HostAPI < devices[j].HostAPI
	})

	return devices, nil
}

// AutoDetectDevice returns the input device NewCapture picks when no name is given.
func AutoDetectDevice() (*portaudio.DeviceInfo, error) {
	return findDevice("")
}

// findDevice resolves name as a case-insensitive substring of a device name.
// An empty name picks the best scoring microphone.
func findDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	if name != "" {
		want := strings.ToLower(name)
		for _, d := range devices {
			if d != nil && d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), want) {
				return d, nil
			}
		}
		return nil, fmt.Errorf("audio device %q not found", name)
	}

	defaultIndex := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultIndex = def.Index
	}

	var (
		best      *portaudio.DeviceInfo
		bestScore int
	)
	for _, d := range devices {
		if d == nil || d.MaxInputChannels <= 0 {
			continue
		}
		score := scoreInput(d.Name, d.Index == defaultIndex)
		if best == nil || score > bestScore ||
			(score == bestScore && strings.ToLower(d.Name) < strings.ToLower(best.Name)) {
			best, bestScore = d, score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no audio input device found")
	}
	return best, nil
}

// scoreInput ranks capture devices for breath input: the system default and
// anything that looks like a microphone first, loopback and monitor sources last.
func scoreInput(name string, isDefault bool) int {
	lower := strings.ToLower(name)
	score := 0
	if isDefault {
		score += 50
	}
	for _, kw := range []string{"mic", "headset", "webcam", "input"} {
		if strings.Contains(lower, kw) {
			score += 20
			break
		}
	}
	for _, kw := range []string{"monitor", "loopback", "stereo mix", "what u hear"} {
		if strings.Contains(lower, kw) {
			score -= 40
			break
		}
	}
	return score
}

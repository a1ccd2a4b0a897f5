package audio

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// ErrPermissionDenied means no input stream could be opened: there is no
// usable capture device, or the system refused access to it.
var ErrPermissionDenied = errors.New("microphone unavailable or access denied")

// Capture wraps a PortAudio input stream and exposes thread-safe access to the latest samples.
type Capture struct {
	stream     *portaudio.Stream
	sampleRate float64
	channels   int
	window     int
	device     *portaudio.DeviceInfo

	mu      sync.RWMutex
	buffer  []float32
	index   int
	bytes   []uint8
	scratch []float32 // mono mixdown, reused across callbacks
}

// Config controls how a Capture instance is created.
type Config struct {
	DeviceName string
	BufferSize int
	Channels   int
	// Window is the number of samples Read returns. It must be a power of two.
	Window int
}

const (
	defaultBufferSize = 4096
	defaultWindow     = 128
)

// NewCapture opens a PortAudio stream using the provided configuration.
func NewCapture(cfg Config) (*Capture, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if !IsPow2(cfg.Window) {
		return nil, fmt.Errorf("window %d is not a power of two", cfg.Window)
	}
	if cfg.BufferSize < cfg.Window {
		cfg.BufferSize = cfg.Window
	}

	device, err := findDevice(cfg.DeviceName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if cfg.Channels > device.MaxInputChannels {
		cfg.Channels = device.MaxInputChannels
	}

	inParams := portaudio.StreamDeviceParameters{
		Device:   device,
		Channels: cfg.Channels,
		Latency:  device.DefaultLowInputLatency,
	}

	sampleRate := device.DefaultSampleRate

	capture := &Capture{
		sampleRate: sampleRate,
		buffer:     make([]float32, cfg.BufferSize),
		channels:   cfg.Channels,
		window:     cfg.Window,
		device:     device,
		bytes:      make([]uint8, cfg.Window),
	}

	framesPerBuffer := len(capture.buffer) / cfg.Channels
	if framesPerBuffer < 64 {
		framesPerBuffer = portaudio.FramesPerBufferUnspecified
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input:           inParams,
		Output:          portaudio.StreamDeviceParameters{},
		SampleRate:      sampleRate,
		FramesPerBuffer: framesPerBuffer,
	}, capture.process)
	if err != nil {
		return nil, fmt.Errorf("%w: open stream: %v", ErrPermissionDenied, err)
	}

	capture.stream = stream

	if err := capture.stream.Start(); err != nil {
		_ = capture.stream.Close()
		return nil, fmt.Errorf("%w: start stream: %v", ErrPermissionDenied, err)
	}

	return capture, nil
}

// Close stops and closes the underlying PortAudio stream.
func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil && !alreadyStopped(err) {
		return err
	}
	return c.stream.Close()
}

// SampleRate returns the stream sample rate.
func (c *Capture) SampleRate() float64 {
	return c.sampleRate
}

// Device returns the PortAudio device associated with the capture stream.
func (c *Capture) Device() *portaudio.DeviceInfo {
	return c.device
}

// Read returns the latest window of samples as unsigned bytes centred at 128,
// newest last. The returned slice is reused by the next call, so Read is
// meant for a single consumer (the frame loop).
func (c *Capture) Read() []uint8 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := len(c.buffer)
	start := c.index - c.window
	if start < 0 {
		start += n
	}
	for i := range c.bytes {
		c.bytes[i] = ToByte(c.buffer[(start+i)%n])
	}
	return c.bytes
}

// ToByte encodes a sample in [-1,1] as an unsigned byte with bias 128.
func ToByte(s float32) uint8 {
	v := math.Round(128 + float64(s)*128)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func (c *Capture) process(in []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channels > 1 {
		frames := len(in) / c.channels
		if cap(c.scratch) < frames {
			c.scratch = make([]float32, frames)
		}
		mono := c.scratch[:frames]
		for i := range mono {
			sum := float32(0)
			base := i * c.channels
			for ch := 0; ch < c.channels; ch++ {
				sum += in[base+ch]
			}
			mono[i] = sum / float32(c.channels)
		}
		c.mixIntoBuffer(mono)
		return
	}

	c.mixIntoBuffer(in)
}

// mixIntoBuffer writes in at the ring's write index, keeping only the
// newest len(buffer) samples when in is longer than the ring.
func (c *Capture) mixIntoBuffer(in []float32) {
	n := len(c.buffer)
	if len(in) > n {
		in = in[len(in)-n:]
	}
	for len(in) > 0 {
		k := copy(c.buffer[c.index:], in)
		in = in[k:]
		c.index = (c.index + k) % n
	}
}

// alreadyStopped reports whether err comes from stopping a stream that is not running.
func alreadyStopped(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Stream is stopped")
}

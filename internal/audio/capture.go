// Package audio implements the Audio Source (C1) and Frame Assembler (C2).
// Capturer opens the input device and delivers raw float32 buffers on a
// bounded channel without ever blocking its device callback; Framer
// accumulates those buffers into fixed-duration AudioChunks on exact sample
// boundaries.
package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	perr "github.com/michaelneale/goose-perception/internal/errors"
	"github.com/michaelneale/goose-perception/internal/logger"
)

const (
	// SampleRate is the fixed capture rate required by spec §4.1.
	SampleRate = 16000
)

// RawBuffer is one delivery from the device callback: contiguous float32
// samples plus the sequence number of this delivery (for drop accounting).
type RawBuffer struct {
	Samples    []float32
	SequenceID uint64
	CapturedAt time.Time
}

// Capturer opens a mono 16kHz float32 input device and streams RawBuffers
// over a bounded channel. The device callback itself never blocks: on
// channel overflow the buffer is dropped and counted, never queued.
type Capturer struct {
	ctx         *malgo.AllocatedContext
	device      *malgo.Device
	deviceName  string
	deviceIndex int
	channels    int

	mu         sync.Mutex
	running    bool
	buffers    chan RawBuffer
	sequenceID uint64
	dropped    uint64

	log *logger.ContextLogger
}

// Config selects the device and channel buffer depth for a Capturer.
type Config struct {
	DeviceName      string // empty selects by DeviceIndex instead
	DeviceIndex     int    // < 0 selects the default device; used when DeviceName is empty
	ChannelCapacity int
	Channels        int
}

// New allocates the malgo context and prepares (but does not start) capture.
func New(cfg Config, log *logger.ContextLogger) (*Capturer, error) {
	if cfg.ChannelCapacity <= 0 {
		cfg.ChannelCapacity = 32
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		log.Debugf("malgo: %s", msg)
	})
	if err != nil {
		return nil, perr.New(perr.DeviceError, "audio", fmt.Errorf("init context: %w", err))
	}

	return &Capturer{
		ctx:         ctx,
		deviceName:  cfg.DeviceName,
		deviceIndex: cfg.DeviceIndex,
		channels:    cfg.Channels,
		buffers:     make(chan RawBuffer, cfg.ChannelCapacity),
		log:         log,
	}, nil
}

// ListDevices returns the human-readable names of available capture
// devices, for --list-devices.
func ListDevices(log *logger.ContextLogger) ([]string, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) { log.Debugf("malgo: %s", msg) })
	if err != nil {
		return nil, perr.New(perr.DeviceError, "audio", fmt.Errorf("init context: %w", err))
	}
	defer ctx.Uninit() //nolint:errcheck

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, perr.New(perr.DeviceError, "audio", fmt.Errorf("enumerate devices: %w", err))
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

// Start opens and begins the capture device. The data callback converts
// each delivery to float32 and attempts a non-blocking send on Buffers();
// on overflow it drops the delivery and increments Dropped().
func (c *Capturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(c.channels)
	deviceConfig.SampleRate = SampleRate
	deviceConfig.Alsa.NoMMap = 1

	infos, infoErr := c.ctx.Devices(malgo.Capture)
	switch {
	case c.deviceName != "" && infoErr == nil:
		for _, info := range infos {
			if info.Name() == c.deviceName {
				deviceConfig.Capture.DeviceID = info.ID.Pointer()
				break
			}
		}
	case c.deviceName == "" && c.deviceIndex >= 0 && infoErr == nil && c.deviceIndex < len(infos):
		deviceConfig.Capture.DeviceID = infos[c.deviceIndex].ID.Pointer()
		c.deviceName = infos[c.deviceIndex].Name()
	}

	onRecv := func(_, in []byte, frameCount uint32) {
		samples := bytesToFloat32(in)
		seq := c.sequenceID
		c.sequenceID++
		select {
		case c.buffers <- RawBuffer{Samples: samples, SequenceID: seq, CapturedAt: time.Now()}:
		default:
			c.dropped++
			c.log.Warnf("capture channel full, dropped buffer %d (%d total)", seq, c.dropped)
		}
	}

	callbacks := malgo.DeviceCallbacks{Data: onRecv}
	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return perr.New(perr.DeviceError, "audio", fmt.Errorf("init device: %w", err))
	}
	c.device = device

	if err := device.Start(); err != nil {
		return perr.New(perr.DeviceError, "audio", fmt.Errorf("start device: %w", err))
	}
	c.running = true
	c.log.Infof("capture started on %q at %d Hz", c.deviceName, SampleRate)
	return nil
}

// Stop halts the device but keeps the Capturer reusable via Start again.
func (c *Capturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.running = false
	return nil
}

// Close releases the malgo context. After Close the Capturer cannot be
// restarted.
func (c *Capturer) Close() error {
	_ = c.Stop()
	close(c.buffers)
	if c.ctx != nil {
		return c.ctx.Uninit() //nolint:errcheck
	}
	return nil
}

// Buffers exposes the receive-only raw buffer channel.
func (c *Capturer) Buffers() <-chan RawBuffer { return c.buffers }

// Dropped returns the count of buffers dropped due to channel overflow.
func (c *Capturer) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// IsRunning reports whether the device is currently capturing.
func (c *Capturer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func bytesToFloat32(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

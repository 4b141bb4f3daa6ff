//go:build linux

package display

import (
	fb "github.com/gonutz/framebuffer"
)

const DefaultDevice = "/dev/fb0"

// Framebuffer is an open Linux framebuffer device.
type Framebuffer struct {
	dev *fb.Device
}

func OpenFramebuffer(path string) (*Framebuffer, error) {
	if path == "" {
		path = DefaultDevice
	}
	dev, err := fb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Framebuffer{dev: dev}, nil
}

func (f *Framebuffer) Screen() Screen { return f.dev }

func (f *Framebuffer) Close() {
	if f.dev != nil {
		f.dev.Close()
		f.dev = nil
	}
}

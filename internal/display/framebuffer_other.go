//go:build !linux

package display

import "errors"

const DefaultDevice = "/dev/fb0"

var errNoFramebuffer = errors.New("framebuffer output requires linux")

type Framebuffer struct{}

func OpenFramebuffer(string) (*Framebuffer, error) { return nil, errNoFramebuffer }

func (f *Framebuffer) Screen() Screen { return nil }

func (f *Framebuffer) Close() {}

//go:build !linux

package system

import "context"

const (
	KeyEsc = 1
	KeyF4  = 62
)

// StartExitOnKeys is a no-op without Linux evdev.
func StartExitOnKeys(ctx context.Context, l logger, onExit func(), keys ...uint16) {}

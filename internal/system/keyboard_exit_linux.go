//go:build linux

package system

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const (
	evKey = 0x01

	// Linux input-event-codes.h
	KeyEsc = 1
	KeyF4  = 62
)

// inputEventLayout returns the timeval size and the full input_event size.
// input_event = timeval + u16 type + u16 code + s32 value.
func inputEventLayout() (tvSize, eventSize int) {
	tvSize = binary.Size(unix.Timeval{})
	return tvSize, tvSize + 2 + 2 + 4
}

// keyPressed scans a read buffer of input_event records for a press of any
// of keys.
func keyPressed(buf []byte, tvSize, eventSize int, keys map[uint16]bool) bool {
	for off := 0; off+eventSize <= len(buf); off += eventSize {
		rec := buf[off : off+eventSize]
		typ := binary.LittleEndian.Uint16(rec[tvSize : tvSize+2])
		code := binary.LittleEndian.Uint16(rec[tvSize+2 : tvSize+4])
		value := int32(binary.LittleEndian.Uint32(rec[tvSize+4 : tvSize+8]))
		if typ == evKey && value == 1 && keys[code] {
			return true
		}
	}
	return false
}

// StartExitOnKeys watches Linux evdev devices under /dev/input/event* and
// invokes onExit once when one of keys is pressed.
//
// It is best-effort: if no input devices are available, it logs and returns.
func StartExitOnKeys(ctx context.Context, l logger, onExit func(), keys ...uint16) {
	if onExit == nil || len(keys) == 0 {
		return
	}
	want := make(map[uint16]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	tvSize, eventSize := inputEventLayout()

	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil || len(paths) == 0 {
		if l != nil {
			l.Infof("input", "no evdev devices found for exit keys")
		}
		return
	}

	var once sync.Once
	triggerExit := func() {
		once.Do(func() {
			if l != nil {
				l.Infof("input", "exit key pressed")
			}
			onExit()
		})
	}

	for _, path := range paths {
		p := path
		go func() {
			fd, err := unix.Open(p, unix.O_RDONLY|unix.O_NONBLOCK, 0)
			if err != nil {
				return
			}
			f := os.NewFile(uintptr(fd), p)
			defer func() {
				_ = f.Close()
			}()

			buf := make([]byte, 4096)
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
				if _, err := unix.Poll(pollFds, 250); err != nil {
					if err == unix.EINTR {
						continue
					}
					// Device might have gone away.
					return
				}
				if pollFds[0].Revents&unix.POLLIN == 0 {
					continue
				}

				n, err := unix.Read(fd, buf)
				if err != nil {
					if err == unix.EAGAIN || err == unix.EINTR {
						continue
					}
					return
				}
				if keyPressed(buf[:n], tvSize, eventSize, want) {
					triggerExit()
					// Give the app a moment to unwind; then stop reading.
					time.Sleep(50 * time.Millisecond)
					return
				}
			}
		}()
	}
}

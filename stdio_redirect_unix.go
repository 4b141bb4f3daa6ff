//go:build unix

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// redirectStdIO points fds 1 and 2 at path so panics from any goroutine land
// in the file even while the console is in graphics mode.
func redirectStdIO(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, std := range []*os.File{os.Stdout, os.Stderr} {
		if err := unix.Dup2(int(f.Fd()), int(std.Fd())); err != nil {
			return fmt.Errorf("dup2 %s: %w", std.Name(), err)
		}
	}
	fmt.Printf("--- covermaker pid %d started %s ---\n", os.Getpid(), time.Now().Format(time.RFC3339))
	return nil
}

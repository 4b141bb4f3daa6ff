//go:build !linux

package system

// EnterGraphicsConsole is a no-op without a Linux VT.
func EnterGraphicsConsole(l logger) (restore func()) { return func() {} }

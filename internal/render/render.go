package render

// Executor runs callbacks on the goroutine that owns drawing. Decode
// completions are posted through it so they interleave with scheduler
// flushes instead of racing them.
type Executor interface {
	Post(fn func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func())

func (f ExecutorFunc) Post(fn func()) { f(fn) }

// Inline runs callbacks immediately on the posting goroutine.
var Inline Executor = ExecutorFunc(func(fn func()) { fn() })

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

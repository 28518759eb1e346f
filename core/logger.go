package core

// Logger is implemented by any service that can log and report application
// events. Implementations may inspect args for well-known types (errors,
// the acting user) and forward them to an external reporter.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

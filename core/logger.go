package core

// Logger is the logging surface shared by every layer.
// args may hold an error, a map[string]interface{} of extra fields, or an Actor.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies the instructor behind an operation.
type Actor struct {
	ID    string
	Name  string
	Email string
}

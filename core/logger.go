package core

// Logger is any leveled logger.
// args may hold errors, extra data (map[string]interface{}) or request metadata.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Operator identifies the admin behind a request, as forwarded by the authenticating proxy.
// Loggers attach it to reported errors.
type Operator struct {
	Username string
	Email    string
}

func (o Operator) IsZero() bool { return o.Username == "" && o.Email == "" }

package protolog

// MultiLogger fans one Event out to several Loggers, e.g. a console
// SlogAdapter alongside a FileLogger.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger builds a MultiLogger over loggers, in call order.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Log(e Event) {
	for _, l := range m.loggers {
		l.Log(e)
	}
}

var _ Logger = (*MultiLogger)(nil)

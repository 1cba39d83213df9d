package log_service

import "time"

// InfoLevel is the default minimum level configs pass to zaplog.New.
const InfoLevel = "INFO"

type LogEvent struct {
	Timestamp time.Time
	NodeID    string
	Message   string
	Metadata  map[string]any
}

type LogService interface {
	Debug(event LogEvent)
	Info(event LogEvent)
	Warn(event LogEvent)
	Error(event LogEvent)
}

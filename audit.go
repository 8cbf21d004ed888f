package goAccount

import (
	"io"

	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/rs/zerolog"
)

// AuditEvent is one account lifecycle record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the Engine's dispatcher.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel, mostly for tests.
type ChannelSink = audit.ChannelSink

// LogSink writes one structured log line per audit event.
type LogSink = audit.LogSink

// NewChannelSink returns a sink buffering up to buffer events.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON object per event to w.
func NewJSONWriterSink(w io.Writer) *LogSink {
	return audit.NewJSONWriterSink(w)
}

// NewLogSink writes audit events through logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return audit.NewLogSink(logger)
}

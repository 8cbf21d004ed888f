package mailer

import (
	"context"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/rs/zerolog"
)

// LogMailer logs verification codes instead of sending them. Never use it
// in production: the code is written in clear.
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer returns a Mailer that logs instead of sending.
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the recipient and code at info level.
func (m *LogMailer) Send(_ context.Context, msg goAccount.Message) error {
	m.logger.Info().
		Str("recipient", msg.Recipient).
		Str("subject", msg.Subject).
		Str("code", msg.Code).
		Msg("verification mail")
	return nil
}

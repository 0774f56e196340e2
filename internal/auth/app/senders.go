package app

import (
	"context"
	"log/slog"
)

// logCodeSender writes verification codes to the log instead of delivering
// them. It stands in for an SMS or email provider outside of prod; the code
// itself is only emitted at debug level.
type logCodeSender struct {
	logger  *slog.Logger
	channel string
}

func (s *logCodeSender) Send(ctx context.Context, destination, code string) error {
	s.logger.Info("verification code dispatched",
		"channel", s.channel,
		"destination", destination,
	)
	s.logger.Debug("verification code", "channel", s.channel, "code", code)
	return nil
}

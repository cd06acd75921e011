package notify

import "github.com/dropDatabas3/triplog/internal/observability/logger"

// LogSender loguea el mensaje en lugar de enviarlo. Para dev sin SMTP:
// el código de recovery aparece en el log del server.
type LogSender struct{}

func (LogSender) Send(to, subject, _, textBody string) error {
	logger.L().Info("notify (log only)",
		logger.Component("LogSender"),
		logger.String("to", to),
		logger.String("subject", subject),
		logger.String("body", textBody),
	)
	return nil
}

package notify

import (
	"context"
	"fmt"

	"github.com/scratchieapp/booking-agent/pkg/logging"
)

// OpsAlerter delivers operational alerts to a fixed ops mailbox. It satisfies
// the booking saga's Alerter contract.
type OpsAlerter struct {
	sender  EmailSender
	toEmail string
	logger  *logging.Logger
}

// NewOpsAlerter creates an alerter, or nil when there is no sender or no
// destination so callers can skip wiring the side channel.
func NewOpsAlerter(sender EmailSender, toEmail string, logger *logging.Logger) *OpsAlerter {
	if sender == nil || toEmail == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &OpsAlerter{sender: sender, toEmail: toEmail, logger: logger}
}

// Alert sends one ops email.
func (a *OpsAlerter) Alert(ctx context.Context, subject, body string) error {
	err := a.sender.Send(ctx, EmailMessage{
		To:      a.toEmail,
		ToName:  "Operations",
		Subject: fmt.Sprintf("[booking-agent] %s", subject),
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("notify: ops alert: %w", err)
	}
	a.logger.Info("ops alert sent", "subject", subject)
	return nil
}

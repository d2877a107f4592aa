// Package notify holds the downstream collaborators triggered after a
// booking confirms. Document rendering and delivery live in another system;
// these implementations only record that the trigger fired.
package notify

import (
	"context"
	"log/slog"

	"github.com/mgurran/servicebay/internal/domain"
)

type LogDocumentIssuer struct {
	log *slog.Logger
}

func NewLogDocumentIssuer(log *slog.Logger) *LogDocumentIssuer {
	return &LogDocumentIssuer{log: log}
}

func (d *LogDocumentIssuer) IssueConfirmation(ctx context.Context, summary domain.ConfirmationSummary) error {
	d.log.Info("confirmation document requested",
		"booking_id", summary.BookingID.String(),
		"reference", summary.Reference,
		"gross_pence", summary.GrossPence,
	)
	return nil
}

type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) BookingConfirmed(ctx context.Context, summary domain.ConfirmationSummary) error {
	n.log.Info("booking confirmed notification",
		"booking_id", summary.BookingID.String(),
		"reference", summary.Reference,
		"slot_date", summary.SlotDate.Format(domain.DateLayout),
		"slot_time", summary.SlotTime,
	)
	return nil
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

var (
	appointmentLabels = []string{"WhatsApp", "Nombre", "Tipo de auto", "Tipo de visita", "Fecha preferida", "Registrado"}
	saleLabels        = []string{"WhatsApp", "Intención", "Vehículo", "Registrado"}
)

// LeadNotifier e-mails completed flow records to the sales team. It is
// used as an additional sink next to the spreadsheet.
type LeadNotifier struct {
	sender     EmailSender
	recipients []string
	logger     *logging.Logger
}

// NewLeadNotifier returns nil when there is nothing to send to.
func NewLeadNotifier(sender EmailSender, recipients []string, logger *logging.Logger) *LeadNotifier {
	var to []string
	for _, r := range recipients {
		if r = strings.TrimSpace(r); r != "" {
			to = append(to, r)
		}
	}
	if sender == nil || len(to) == 0 {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadNotifier{sender: sender, recipients: to, logger: logger}
}

// Append sends one e-mail per recipient describing the record.
func (n *LeadNotifier) Append(ctx context.Context, destination string, fields []string) error {
	msg := EmailMessage{
		Subject: fmt.Sprintf("Nuevo registro en %s", destination),
		Body:    formatLead(destination, fields),
	}

	var errs []error
	for _, to := range n.recipients {
		msg.To = to
		if err := n.sender.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("notify: lead email to %s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

func formatLead(destination string, fields []string) string {
	labels := saleLabels
	if len(fields) == len(appointmentLabels) {
		labels = appointmentLabels
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hoja: %s\n\n", destination)
	for i, f := range fields {
		label := fmt.Sprintf("Campo %d", i+1)
		if i < len(labels) && len(fields) == len(labels) {
			label = labels[i]
		}
		fmt.Fprintf(&b, "%s: %s\n", label, f)
	}
	return b.String()
}

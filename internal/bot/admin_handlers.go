package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/pkg/api"
)

func (b *Bot) handleAdminCommand(ctx context.Context, chatID int64, cmd string, args []string) {
	if !b.isAdmin(chatID) {
		b.handleDefault(ctx, chatID)
		return
	}

	switch cmd {
	case "lookup":
		if len(args) == 0 {
			b.sendError(chatID, "Usage: /lookup <submission_id>")
			return
		}
		b.handleLookup(ctx, chatID, args[0])
	default:
		b.sendError(chatID, "Unknown admin command")
	}
}

func (b *Bot) handleLookup(ctx context.Context, chatID int64, id string) {
	sub, err := b.orders.Submission(ctx, id)
	if err != nil {
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			b.sendError(chatID, "Submission not found")
			return
		}
		b.logger.Error("Failed to look up submission",
			zap.String("submission_id", id),
			zap.Error(err))
		b.sendError(chatID, "Failed to load the submission")
		return
	}

	b.sendText(chatID, b.formatSubmission(sub))
}

func (b *Bot) formatSubmission(sub api.Submission) string {
	c := sub.CustomerInfo
	m := sub.Measurements

	lines := []string{
		fmt.Sprintf("📄 Submission %s", sub.ID),
		fmt.Sprintf("Status: %s", sub.OrderStatus),
		fmt.Sprintf("Created: %s", sub.CreatedAt.Format("02.01.2006 15:04")),
		"",
		fmt.Sprintf("Customer: %s %s", c.FirstName, c.LastName),
		"Email: " + c.Email,
	}
	if c.Phone != nil {
		lines = append(lines, "Phone: "+FormatPhoneNumber(*c.Phone))
	}

	lines = append(lines, "", fmt.Sprintf("Height: %g cm, weight: %g kg", m.Height, m.Weight))
	for _, opt := range []struct {
		label string
		value *float64
	}{
		{"Outseam", m.Outseam},
		{"Waist", m.Waist},
		{"Hip/Seat", m.HipSeat},
		{"Thigh", m.Thigh},
		{"Crotch/Rise", m.CrotchRise},
		{"Bottom opening", m.BottomOpening},
	} {
		if opt.value != nil {
			lines = append(lines, fmt.Sprintf("%s: %g cm", opt.label, *opt.value))
		}
	}

	lines = append(lines, "", fmt.Sprintf("%s × %d", sub.FabricChoice, sub.Quantity))
	if total, err := b.catalog.TotalPrice(sub.FabricChoice, sub.Quantity); err == nil {
		lines = append(lines, "Total: "+catalog.Format(total))
	}
	if sub.StylePreference != nil {
		lines = append(lines, "Style: "+*sub.StylePreference)
	}
	if sub.Notes != nil {
		lines = append(lines, "Notes: "+*sub.Notes)
	}

	var photos []string
	for _, p := range []*string{sub.Images.FrontView, sub.Images.SideView, sub.Images.ReferenceFit} {
		if p != nil {
			photos = append(photos, *p)
		}
	}
	if len(photos) > 0 {
		lines = append(lines, "Photos: "+strings.Join(photos, ", "))
	}
	return strings.Join(lines, "\n")
}

package bot

import (
	"fmt"
	"strings"
	"unicode"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/internal/events"
)

func NormalizePhoneNumber(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	// Indian mobile numbers get +91 when no country code is given.
	if len(cleaned) == 10 && strings.ContainsRune("6789", rune(cleaned[0])) {
		return "+91" + cleaned
	}
	if len(cleaned) == 11 && strings.HasPrefix(cleaned, "0") {
		return "+91" + cleaned[1:]
	}
	if len(cleaned) == 12 && strings.HasPrefix(cleaned, "91") {
		return "+" + cleaned
	}

	if strings.HasPrefix(strings.TrimSpace(phone), "+") {
		return "+" + cleaned
	}
	return cleaned
}

func IsValidPhoneNumber(phone string) bool {
	phone = NormalizePhoneNumber(phone)

	badNumbers := map[string]bool{
		"+910000000000": true,
		"+911111111111": true,
		"1234567890":    true,
	}
	if badNumbers[phone] || !strings.HasPrefix(phone, "+") {
		return false
	}

	digits := strings.TrimPrefix(phone, "+")
	return len(digits) >= 10 && len(digits) <= 15
}

func FormatPhoneNumber(phone string) string {
	// +91 XXXXX XXXXX
	if strings.HasPrefix(phone, "+91") && len(phone) == 13 {
		return fmt.Sprintf("%s %s %s", phone[:3], phone[3:8], phone[8:])
	}
	return phone
}

func FormatOrderNotification(ev events.OrderConfirmed) string {
	amount := catalog.FromMinorUnits(ev.Amount)
	text := fmt.Sprintf(
		"🧵 New paid order\n\n"+
			"Customer: %s\n"+
			"Email: %s\n"+
			"Phone: %s\n"+
			"──────────────────\n"+
			"Fabric: %s × %d\n"+
			"Amount: %s %s\n"+
			"──────────────────\n"+
			"Submission: %s\n"+
			"Payment: %s\n"+
			"Date: %s",
		ev.CustomerName,
		ev.CustomerEmail,
		orDash(FormatPhoneNumber(ev.CustomerPhone)),
		ev.Fabric, ev.Quantity,
		amount.StringFixed(2), ev.Currency,
		ev.SubmissionID,
		ev.PaymentID,
		ev.ConfirmedAt.Format("02.01.2006 15:04"),
	)
	if ev.Mock {
		text += "\n⚠️ Test payment"
	}
	return text
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tailoring-bot/internal/fitting"
)

// startFitting begins a virtual fitting booking, prefilling contact
// details from an order in progress.
func (b *Bot) startFitting(ctx context.Context, chatID int64) {
	sess, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get user state", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendError(chatID, "Something went wrong while reading your session. Please try again.")
		return
	}

	booking := fitting.NewBooking()
	if w, err := b.wizardFor(chatID, sess); err == nil {
		c := w.Form().Customer
		booking.FirstName, booking.LastName = c.FirstName, c.LastName
		booking.Email, booking.Phone = c.Email, c.Phone
	}
	sess.Fitting = &booking

	b.sendText(chatID, "📅 Let's book a virtual fitting with our tailor.")
	b.askFittingFirstName(ctx, chatID, &sess)
}

func (b *Bot) fittingSession(ctx context.Context, chatID int64) (Session, bool) {
	sess, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get user state", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendError(chatID, "Something went wrong while reading your session. Please try again.")
		return Session{}, false
	}
	if sess.Fitting == nil {
		b.sendText(chatID, "Use /fitting to book a virtual fitting.")
		return Session{}, false
	}
	return sess, true
}

func (b *Bot) setFittingStep(ctx context.Context, chatID int64, sess *Session, step string) bool {
	sess.Step = step
	if err := b.state.Save(ctx, chatID, *sess); err != nil {
		b.logger.Error("Failed to save fitting state",
			zap.Int64("chat_id", chatID),
			zap.String("step", step),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong. Please try again.")
		return false
	}
	return true
}

func (b *Bot) askFittingFirstName(ctx context.Context, chatID int64, sess *Session) {
	if !b.setFittingStep(ctx, chatID, sess, StepFittingFirstName) {
		return
	}
	b.askWithDefault(chatID, "Your first name?", sess.Fitting.FirstName)
}

// askWithDefault offers the known value as a one-tap reply.
func (b *Bot) askWithDefault(chatID int64, prompt, current string) {
	msg := tgbotapi.NewMessage(chatID, prompt)
	if current != "" {
		msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(current)))
	} else {
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	}
	b.sendMessage(msg)
}

func (b *Bot) handleFittingFirstName(ctx context.Context, chatID int64, text string) {
	sess, ok := b.fittingSession(ctx, chatID)
	if !ok {
		return
	}
	if text == "" {
		b.sendError(chatID, "First name is required.")
		return
	}
	sess.Fitting.FirstName = text
	if !b.setFittingStep(ctx, chatID, &sess, StepFittingLastName) {
		return
	}
	b.askWithDefault(chatID, "Your last name?", sess.Fitting.LastName)
}

func (b *Bot) handleFittingLastName(ctx context.Context, chatID int64, text string) {
	sess, ok := b.fittingSession(ctx, chatID)
	if !ok {
		return
	}
	if text == "" {
		b.sendError(chatID, "Last name is required.")
		return
	}
	sess.Fitting.LastName = text
	if !b.setFittingStep(ctx, chatID, &sess, StepFittingEmail) {
		return
	}
	b.askWithDefault(chatID, "Email address for the meeting link?", sess.Fitting.Email)
}

func (b *Bot) handleFittingEmail(ctx context.Context, chatID int64, text string) {
	sess, ok := b.fittingSession(ctx, chatID)
	if !ok {
		return
	}
	if !fitting.ValidEmail(text) {
		b.sendError(chatID, "Please enter a valid email address.")
		return
	}
	sess.Fitting.Email = text
	if !b.setFittingStep(ctx, chatID, &sess, StepFittingPhone) {
		return
	}

	msg := tgbotapi.NewMessage(chatID, "Phone number? Share your contact, type it, or skip.")
	msg.ReplyMarkup = b.createContactRequestKeyboard()
	b.sendMessage(msg)
}

func (b *Bot) handleFittingPhone(ctx context.Context, chatID int64, text string) {
	sess, ok := b.fittingSession(ctx, chatID)
	if !ok {
		return
	}
	switch {
	case text == btnSkip:
		sess.Fitting.Phone = ""
	case IsValidPhoneNumber(text):
		sess.Fitting.Phone = NormalizePhoneNumber(text)
	default:
		b.sendError(chatID, "Please enter a valid phone number, e.g. +91 98765 43210.")
		return
	}
	if !b.setFittingStep(ctx, chatID, &sess, StepDateSelection) {
		return
	}

	msg := tgbotapi.NewMessage(chatID, "When would you like the fitting?")
	msg.ReplyMarkup = b.createDateSelectionKeyboard()
	b.sendMessage(msg)
}

func (b *Bot) handleDateSelection(ctx context.Context, chatID int64, text string) {
	now := b.now()

	switch text {
	case btnToday:
		b.setFittingDate(ctx, chatID, now)
	case btnTomorrow:
		b.setFittingDate(ctx, chatID, now.AddDate(0, 0, 1))
	case btnManualDate:
		sess, ok := b.fittingSession(ctx, chatID)
		if !ok || !b.setFittingStep(ctx, chatID, &sess, StepManualDateInput) {
			return
		}
		msg := tgbotapi.NewMessage(chatID, "Enter the date as DD.MM.YYYY")
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
		b.sendMessage(msg)
	default:
		b.sendError(chatID, "Please choose one of the options.")
	}
}

func (b *Bot) handleManualDateInput(ctx context.Context, chatID int64, text string) {
	date, err := fitting.ParseDate(text, b.now())
	switch {
	case errors.Is(err, fitting.ErrDatePast):
		b.sendError(chatID, "Please choose a date in the future.")
		return
	case err != nil:
		b.sendError(chatID, "Invalid date format. Please enter the date as DD.MM.YYYY.")
		return
	}
	b.setFittingDate(ctx, chatID, date)
}

func (b *Bot) setFittingDate(ctx context.Context, chatID int64, date time.Time) {
	sess, ok := b.fittingSession(ctx, chatID)
	if !ok {
		return
	}
	now := b.now()
	sess.Fitting.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, now.Location())
	if !b.setFittingStep(ctx, chatID, &sess, StepFittingTime) {
		return
	}

	days := fitting.WorkingDaysUntil(sess.Fitting.Date, now)
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Date: %s (%d working days from now).",
		sess.Fitting.Date.Format(fitting.DateLayout), days))
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	b.sendMessage(msg)

	slots := tgbotapi.NewMessage(chatID, "Pick a time:")
	slots.ReplyMarkup = b.createTimeSlotKeyboard()
	b.sendMessage(slots)
}

func (b *Bot) handleFittingTime(ctx context.Context, chatID int64, value string) {
	sess, ok := b.fittingSession(ctx, chatID)
	if !ok {
		return
	}
	if sess.Step != StepFittingTime {
		return
	}
	i, err := strconv.Atoi(value)
	if err != nil || i < 0 || i >= len(fitting.TimeSlots) {
		b.sendError(chatID, "Please pick one of the time slots.")
		return
	}
	sess.Fitting.Time = fitting.TimeSlots[i]
	if !b.setFittingStep(ctx, chatID, &sess, StepFittingType) {
		return
	}

	msg := tgbotapi.NewMessage(chatID, "What would you like help with?")
	msg.ReplyMarkup = b.createFittingTypeKeyboard()
	b.sendMessage(msg)
}

func (b *Bot) handleFittingTimeText(ctx context.Context, chatID int64, text string) {
	for i, slot := range fitting.TimeSlots {
		if strings.EqualFold(slot, text) {
			b.handleFittingTime(ctx, chatID, strconv.Itoa(i))
			return
		}
	}
	b.sendError(chatID, "Please pick one of the time slots.")
}

func (b *Bot) handleFittingType(ctx context.Context, chatID int64, value string) {
	sess, ok := b.fittingSession(ctx, chatID)
	if !ok {
		return
	}
	if sess.Step != StepFittingType {
		return
	}
	t, ok := fitting.ParseType(value)
	if !ok {
		b.sendError(chatID, "Please choose one of the fitting types.")
		return
	}
	sess.Fitting.Type = t
	if !b.setFittingStep(ctx, chatID, &sess, StepFittingNotes) {
		return
	}

	msg := tgbotapi.NewMessage(chatID, "Anything the tailor should know beforehand? (optional)")
	msg.ReplyMarkup = b.createSkipKeyboard()
	b.sendMessage(msg)
}

func (b *Bot) handleFittingNotes(ctx context.Context, chatID int64, text string) {
	sess, ok := b.fittingSession(ctx, chatID)
	if !ok {
		return
	}
	if text == btnSkip {
		text = ""
	}
	sess.Fitting.Notes = text
	if err := sess.Fitting.Validate(); err != nil {
		b.sendError(chatID, capitalize(err.Error())+".")
		return
	}
	if !b.setFittingStep(ctx, chatID, &sess, StepFittingConfirm) {
		return
	}
	b.showFittingSummary(chatID, sess)
}

func (b *Bot) showFittingSummary(chatID int64, sess Session) {
	f := sess.Fitting
	lines := []string{
		"🧾 Please confirm your booking",
		"",
		f.Summary(),
		fmt.Sprintf("Name: %s %s", f.FirstName, f.LastName),
		"Email: " + f.Email,
	}
	if f.Phone != "" {
		lines = append(lines, "Phone: "+FormatPhoneNumber(f.Phone))
	}
	if f.Notes != "" {
		lines = append(lines, "Notes: "+f.Notes)
	}

	msg := tgbotapi.NewMessage(chatID, strings.Join(lines, "\n"))
	msg.ReplyMarkup = b.createConfirmationKeyboard()
	b.sendMessage(msg)
}

func (b *Bot) handleFittingConfirmation(ctx context.Context, chatID int64, text string) {
	sess, ok := b.fittingSession(ctx, chatID)
	if !ok {
		return
	}

	switch text {
	case btnChangeDate:
		if !b.setFittingStep(ctx, chatID, &sess, StepDateSelection) {
			return
		}
		msg := tgbotapi.NewMessage(chatID, "When would you like the fitting?")
		msg.ReplyMarkup = b.createDateSelectionKeyboard()
		b.sendMessage(msg)
		return
	case btnConfirm:
	default:
		b.sendError(chatID, "Please use the buttons to continue.")
		return
	}

	if err := sess.Fitting.Validate(); err != nil {
		b.sendError(chatID, capitalize(err.Error())+".")
		return
	}

	resp, err := b.orders.BookFitting(ctx, sess.Fitting.Request())
	if err != nil {
		b.logger.Error("Failed to book fitting",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "We could not book your fitting. Please try again.")
		return
	}

	b.logger.Info("Fitting booked",
		zap.Int64("chat_id", chatID),
		zap.String("booking_id", resp.BookingID))

	summary := sess.Fitting.Summary()
	sess.Fitting = nil
	sess.Step = StepIdle
	if sess.Wizard != nil {
		sess.Step = StepOrder
	}
	if err := b.state.Save(ctx, chatID, sess); err != nil {
		b.logger.Error("Failed to save user state", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"✅ Fitting booked: %s.\nBooking reference: %s\nWe will email the meeting link to %s.",
		summary, resp.BookingID, resp.CustomerEmail))
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	b.sendMessage(msg)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

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

	"tailoring-bot/internal/catalog"
	"tailoring-bot/internal/checkout"
	"tailoring-bot/internal/selection"
	"tailoring-bot/internal/wizard"
)

const paymentTimeout = 15 * time.Minute

var errNoOrder = errors.New("no order in progress")

func selectionKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// startOrder opens the order wizard, resuming an unfinished one if present.
func (b *Bot) startOrder(ctx context.Context, chatID int64) {
	sess, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get user state", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendError(chatID, "Something went wrong while reading your session. Please try again.")
		return
	}

	sel, err := b.selections.Read(ctx, selectionKey(chatID))
	if err != nil {
		b.logger.Warn("Failed to read product selection",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}

	w, err := b.wizardFor(chatID, sess)
	switch {
	case err == nil && w.Phase() != wizard.PhaseConfirmed:
		if sel != nil && w.SubmissionID() == "" {
			b.applySelection(w, selection.SeedFrom(sel, b.catalog))
		}
		b.sendText(chatID, "Picking up your order where you left off.")
	default:
		if err != nil && !errors.Is(err, errNoOrder) {
			b.logger.Warn("Discarding unreadable order session",
				zap.Int64("chat_id", chatID),
				zap.Error(err))
		}
		w, err = b.newWizard(chatID, selection.SeedFrom(sel, b.catalog))
		if err != nil {
			b.logger.Error("Failed to create order wizard", zap.Int64("chat_id", chatID), zap.Error(err))
			b.sendError(chatID, "We could not start your order. Please try again later.")
			return
		}
		sess = Session{}
		form := w.Form()
		b.sendText(chatID, fmt.Sprintf("🧵 New order: %s in %s × %d.\nLet's take your details and measurements.",
			catalog.ProductName, form.Order.Fabric, form.Order.Quantity))
	}

	sess.Step = StepOrder
	b.wizards[chatID] = w
	b.saveOrder(ctx, chatID, &sess, w)
	b.promptCurrent(chatID, w, sess)
}

func (b *Bot) applySelection(w *wizard.Wizard, seed selection.Seed) {
	if err := w.ApplySelection(seed); err != nil {
		b.logger.Warn("Failed to apply product selection",
			zap.String("fabric", seed.Fabric),
			zap.Int("quantity", seed.Quantity),
			zap.Error(err))
	}
}

func (b *Bot) wizardOptions(chatID int64, seed selection.Seed) wizard.Options {
	return wizard.Options{
		Flow:     b.flow,
		Catalog:  b.catalog,
		Orders:   b.orders,
		Checkout: checkout.FromCallbacks(b.invoiceLauncher(chatID)),
		Seed:     seed,
		Logger:   b.logger.With(zap.Int64("chat_id", chatID)),
	}
}

func (b *Bot) newWizard(chatID int64, seed selection.Seed) (*wizard.Wizard, error) {
	return wizard.New(b.wizardOptions(chatID, seed))
}

// wizardFor returns the live wizard for a chat, rebuilding it from the
// session after a restart.
func (b *Bot) wizardFor(chatID int64, sess Session) (*wizard.Wizard, error) {
	if w, ok := b.wizards[chatID]; ok {
		return w, nil
	}
	if sess.Wizard == nil {
		return nil, errNoOrder
	}
	w, err := wizard.Restore(b.wizardOptions(chatID, selection.Seed{}), *sess.Wizard)
	if err != nil {
		return nil, err
	}
	b.wizards[chatID] = w
	return w, nil
}

func (b *Bot) saveOrder(ctx context.Context, chatID int64, sess *Session, w *wizard.Wizard) {
	snap := w.Snapshot()
	sess.Wizard = &snap
	if err := b.state.Save(ctx, chatID, *sess); err != nil {
		b.logger.Error("Failed to save order state",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

// refreshOrder re-reads the session and stores the wizard's latest
// snapshot. It is used by background work, which holds no session.
func (b *Bot) refreshOrder(ctx context.Context, chatID int64, w *wizard.Wizard) (Session, bool) {
	if b.wizards[chatID] != w {
		return Session{}, false
	}
	sess, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get user state", zap.Int64("chat_id", chatID), zap.Error(err))
		return Session{}, false
	}
	b.saveOrder(ctx, chatID, &sess, w)
	return sess, true
}

func (b *Bot) dropOrder(ctx context.Context, chatID int64) {
	delete(b.wizards, chatID)
	b.cancelCheckout(chatID)
	if err := b.state.Clear(ctx, chatID); err != nil {
		b.logger.Error("Failed to clear user state", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) handleOrderInput(ctx context.Context, chatID int64, text string) {
	sess, w, ok := b.loadOrder(ctx, chatID)
	if !ok {
		return
	}

	step := w.CurrentStep()
	switch {
	case step.Kind == wizard.StepPhotos:
		b.sendText(chatID, "Send a photo, or use the buttons below.")
		return
	case step.Kind == wizard.StepPayment:
		b.sendText(chatID, "Your order is submitted. Use the Pay button to complete it.")
		return
	case sess.Field >= len(step.Fields):
		b.sendText(chatID, "Use the buttons below to continue.")
		return
	}

	field := step.Fields[sess.Field]
	if err := w.SetField(field, text); err != nil {
		b.sendError(chatID, wizard.Notice(err))
		return
	}
	if err := w.ValidateField(field); err != nil {
		b.sendError(chatID, wizard.Notice(err))
		return
	}
	b.advance(ctx, chatID, w, &sess)
}

func (b *Bot) handleOrderCallback(ctx context.Context, chatID int64, prefix, value string) {
	sess, w, ok := b.loadOrder(ctx, chatID)
	if !ok {
		return
	}

	switch prefix {
	case cbPrefixChoice:
		b.handleChoice(ctx, chatID, w, &sess, value)
		return
	case cbPrefixPhoto:
		b.handlePhotoSlot(ctx, chatID, w, &sess, value)
		return
	}

	switch prefix + ":" + value {
	case cbNext:
		b.handleNext(ctx, chatID, w, &sess)
	case cbBack:
		b.handleBack(ctx, chatID, w, &sess)
	case cbSkip:
		b.handleSkip(ctx, chatID, w, &sess)
	case cbSubmit:
		b.handleSubmit(ctx, chatID, w)
	case cbPay:
		b.handlePay(ctx, chatID, w)
	}
}

func (b *Bot) loadOrder(ctx context.Context, chatID int64) (Session, *wizard.Wizard, bool) {
	sess, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get user state", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendError(chatID, "Something went wrong while reading your session. Please try again.")
		return Session{}, nil, false
	}
	w, err := b.wizardFor(chatID, sess)
	if err != nil {
		b.sendText(chatID, "You have no order in progress. Use /order to start one.")
		return Session{}, nil, false
	}
	return sess, w, true
}

func (b *Bot) handleChoice(ctx context.Context, chatID int64, w *wizard.Wizard, sess *Session, value string) {
	name, idx, _ := strings.Cut(value, ":")
	field := wizard.Field(name)

	step := w.CurrentStep()
	if step.Kind != wizard.StepData || sess.Field >= len(step.Fields) || step.Fields[sess.Field] != field {
		b.promptCurrent(chatID, w, *sess)
		return
	}

	options := b.choices(w, field)
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 || i >= len(options) {
		b.promptCurrent(chatID, w, *sess)
		return
	}

	if err := w.SetField(field, options[i]); err != nil {
		b.sendError(chatID, wizard.Notice(err))
		return
	}
	if err := w.ValidateField(field); err != nil {
		b.sendError(chatID, wizard.Notice(err))
		return
	}
	b.advance(ctx, chatID, w, sess)
}

func (b *Bot) handleSkip(ctx context.Context, chatID int64, w *wizard.Wizard, sess *Session) {
	step := w.CurrentStep()
	if step.Kind != wizard.StepData || sess.Field >= len(step.Fields) {
		return
	}
	if err := w.ValidateField(step.Fields[sess.Field]); err != nil {
		b.sendError(chatID, wizard.Notice(err))
		return
	}
	b.advance(ctx, chatID, w, sess)
}

// advance moves the cursor past the current field and leaves the step
// once every field has been answered.
func (b *Bot) advance(ctx context.Context, chatID int64, w *wizard.Wizard, sess *Session) {
	sess.Field++
	if sess.Field >= len(w.CurrentStep().Fields) && !w.OnLastDataStep() {
		b.handleNext(ctx, chatID, w, sess)
		return
	}
	b.saveOrder(ctx, chatID, sess, w)
	b.promptCurrent(chatID, w, *sess)
}

func (b *Bot) handleNext(ctx context.Context, chatID int64, w *wizard.Wizard, sess *Session) {
	before := w.StepIndex()
	if err := w.Next(); err != nil {
		b.sendError(chatID, wizard.Notice(err))
		b.focus(w, sess, err)
	} else if w.StepIndex() != before {
		sess.Field = 0
	}
	b.saveOrder(ctx, chatID, sess, w)
	b.promptCurrent(chatID, w, *sess)
}

func (b *Bot) handleBack(ctx context.Context, chatID int64, w *wizard.Wizard, sess *Session) {
	step := w.CurrentStep()
	if step.Kind == wizard.StepPayment {
		return
	}
	if step.Kind == wizard.StepData && sess.Field > 0 {
		sess.Field--
	} else {
		if err := w.Previous(); err != nil {
			if !errors.Is(err, wizard.ErrFirstStep) {
				b.sendError(chatID, wizard.Notice(err))
			}
			return
		}
		sess.Field = max(len(w.CurrentStep().Fields)-1, 0)
	}
	b.saveOrder(ctx, chatID, sess, w)
	b.promptCurrent(chatID, w, *sess)
}

// focus walks the wizard back to the field a validation error points at.
func (b *Bot) focus(w *wizard.Wizard, sess *Session, err error) {
	var validationErr *wizard.ValidationError
	if !errors.As(err, &validationErr) {
		return
	}
	target := w.Flow().StepOf(validationErr.Field)
	if target < 0 {
		return
	}
	for w.StepIndex() > target {
		if err := w.Previous(); err != nil {
			break
		}
	}
	for i, f := range w.CurrentStep().Fields {
		if f == validationErr.Field {
			sess.Field = i
			return
		}
	}
}

func (b *Bot) handleSubmit(ctx context.Context, chatID int64, w *wizard.Wizard) {
	if w.Busy(wizard.ActionSubmit) {
		b.sendText(chatID, wizard.Notice(wizard.ErrBusy))
		return
	}
	if !w.OnLastDataStep() {
		b.sendError(chatID, wizard.Notice(wizard.ErrNotReady))
		return
	}

	allowed, err := b.state.Allow(ctx, chatID, "submit", b.cfg.Wizard.SubmitRateLimit, b.cfg.Wizard.SubmitRateWindow)
	if err != nil {
		b.logger.Warn("Failed to check submit rate limit", zap.Int64("chat_id", chatID), zap.Error(err))
	} else if !allowed {
		b.sendError(chatID, "Too many submissions. Please try again later.")
		return
	}

	b.sendMarkup(chatID, "⏳ Sending your order...", tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(styledButton(buttonSubmit, buttonState{Busy: true})),
	))

	b.background(func() {
		resp, err := w.SubmitOrder(ctx)

		b.mu.Lock()
		finished := b.afterSubmit(ctx, chatID, w, resp.SubmissionID, err)
		b.mu.Unlock()

		if finished {
			b.after(b.cfg.Wizard.ConfirmDelay, func() { b.closeOrder(ctx, chatID, w) })
		}
	})
}

// afterSubmit reports the submission outcome. It returns true when the
// flow has no payment step and the order is complete.
func (b *Bot) afterSubmit(ctx context.Context, chatID int64, w *wizard.Wizard, submissionID string, err error) bool {
	sess, live := b.refreshOrder(ctx, chatID, w)

	if err != nil {
		b.sendError(chatID, wizard.Notice(err))
		if live {
			b.focus(w, &sess, err)
			b.saveOrder(ctx, chatID, &sess, w)
			b.promptCurrent(chatID, w, sess)
		}
		return false
	}

	if err := b.state.BindOrder(ctx, w.Snapshot().SessionToken, chatID); err != nil {
		b.logger.Error("Failed to bind order to chat",
			zap.Int64("chat_id", chatID),
			zap.String("submission_id", submissionID),
			zap.Error(err))
	}

	b.sendText(chatID, fmt.Sprintf("✅ Order received! Your reference is %s.", submissionID))

	if w.Phase() == wizard.PhaseSubmitted {
		b.sendText(chatID, "We will be in touch about your fitting and payment. Thank you!")
		return true
	}
	if live {
		sess.Field = 0
		b.saveOrder(ctx, chatID, &sess, w)
		b.promptCurrent(chatID, w, sess)
	}
	return false
}

func (b *Bot) handlePay(ctx context.Context, chatID int64, w *wizard.Wizard) {
	switch {
	case w.Phase() == wizard.PhaseConfirmed:
		b.sendText(chatID, wizard.Notice(wizard.ErrOrderClosed))
		return
	case w.Busy(wizard.ActionPay):
		b.sendText(chatID, wizard.Notice(wizard.ErrBusy))
		return
	}

	b.sendMarkup(chatID, "⏳ Preparing your payment...", tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(styledButton(buttonPay, buttonState{Busy: true})),
	))

	b.background(func() {
		payCtx, cancel := context.WithTimeout(ctx, paymentTimeout)
		err := w.InitiatePayment(payCtx)
		cancel()

		b.mu.Lock()
		confirmed := b.afterPayment(ctx, chatID, w, err)
		b.mu.Unlock()

		if confirmed {
			b.after(b.cfg.Wizard.ConfirmDelay, func() { b.closeOrder(ctx, chatID, w) })
		}
	})
}

func (b *Bot) afterPayment(ctx context.Context, chatID int64, w *wizard.Wizard, err error) bool {
	sess, live := b.refreshOrder(ctx, chatID, w)

	switch {
	case err == nil:
		submissionID := w.SubmissionID()
		if first, ferr := b.state.FirstNotice(ctx, submissionID); ferr != nil || first {
			b.sendText(chatID, fmt.Sprintf("🎉 Payment received! Order %s is confirmed. We will start tailoring right away.", submissionID))
		}
		return true
	case errors.Is(err, wizard.ErrPaymentCancelled):
		b.sendText(chatID, wizard.Notice(err))
	default:
		b.sendError(chatID, wizard.Notice(err))
	}
	if live {
		b.promptCurrent(chatID, w, sess)
	}
	return false
}

// closeOrder resets the chat once the order is complete, unless a new order
// was started in the meantime.
func (b *Bot) closeOrder(ctx context.Context, chatID int64, w *wizard.Wizard) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.wizards[chatID] != w {
		return
	}
	b.dropOrder(ctx, chatID)
	if err := b.selections.Clear(ctx, selectionKey(chatID)); err != nil {
		b.logger.Warn("Failed to clear product selection", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.sendText(chatID, "Use /order to place another order or /fitting to book a virtual fitting.")
}

func (b *Bot) choices(w *wizard.Wizard, field wizard.Field) []string {
	switch field {
	case wizard.FieldBodyType:
		return w.Flow().BodyTypes
	case wizard.FieldFabric:
		var names []string
		for _, f := range b.catalog.Fabrics() {
			names = append(names, f.Name)
		}
		return names
	case wizard.FieldQuantity:
		return []string{"1", "2", "3", "4", "5"}
	}
	return nil
}

// promptCurrent renders whatever the wizard is waiting for.
func (b *Bot) promptCurrent(chatID int64, w *wizard.Wizard, sess Session) {
	step := w.CurrentStep()
	idx := w.StepIndex()
	header := fmt.Sprintf("Step %d of %d · %s", idx+1, w.Flow().Len(), step.Title)

	switch step.Kind {
	case wizard.StepPhotos:
		text := header
		if step.Hint != "" {
			text += "\n" + step.Hint
		}
		text += "\n\nSend a photo, or tap a slot first to choose where it goes."
		if w.OnLastDataStep() {
			text += "\n\n" + b.review(w)
		}
		b.sendMarkup(chatID, text, photoKeyboard(w, idx > 0))

	case wizard.StepPayment:
		total, err := w.TotalPrice()
		if err != nil {
			b.logger.Error("Failed to price order", zap.Int64("chat_id", chatID), zap.Error(err))
			b.sendError(chatID, "We could not price your order.")
			return
		}
		text := fmt.Sprintf("%s\n\n%s\nTotal: %s", header, b.review(w), catalog.Format(total))
		b.sendMarkup(chatID, text, tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			styledButton(buttonPay, buttonState{Busy: w.Busy(wizard.ActionPay)}, catalog.Format(total)),
		)))

	default:
		canBack := idx > 0 || sess.Field > 0
		if sess.Field >= len(step.Fields) {
			text := header + "\n\n" + b.review(w) + "\n\nPlease check your details and submit."
			b.sendMarkup(chatID, text, tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
				styledButton(buttonBack, buttonState{Disabled: !canBack}),
				styledButton(buttonSubmit, buttonState{Busy: w.Busy(wizard.ActionSubmit)}),
			)))
			return
		}

		field := step.Fields[sess.Field]
		info, _ := wizard.Info(field)
		text := header
		if sess.Field == 0 && step.Hint != "" {
			text += "\n" + step.Hint
		}
		text += "\n\n" + info.Prompt
		current := w.Form().Value(field)
		if current != "" {
			text += fmt.Sprintf("\nCurrent: %s", current)
		}
		canSkip := !info.Required || current != ""

		if options := b.choices(w, field); len(options) > 0 {
			b.sendMarkup(chatID, text, choiceKeyboard(field, options, canBack, canSkip))
			return
		}
		b.sendMarkup(chatID, text, tgbotapi.NewInlineKeyboardMarkup(navRow(canBack, canSkip)))
	}
}

func (b *Bot) review(w *wizard.Wizard) string {
	form := w.Form()
	var sb strings.Builder
	sb.WriteString("📋 Your order\n")
	for _, step := range w.Flow().Steps {
		for _, field := range step.Fields {
			v := form.Value(field)
			if v == "" {
				continue
			}
			info, _ := wizard.Info(field)
			fmt.Fprintf(&sb, "%s: %s\n", info.Label, v)
		}
	}
	if total, err := w.TotalPrice(); err == nil {
		fmt.Fprintf(&sb, "Price: %s", catalog.Format(total))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) sendMarkup(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	b.sendMessage(msg)
}

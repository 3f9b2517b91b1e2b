package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/internal/fitting"
	"tailoring-bot/internal/wizard"
	"tailoring-bot/pkg/api"
)

// Callback data. Parametrised callbacks are "<prefix>:<value>".
const (
	cbNext        = "wz:next"
	cbBack        = "wz:back"
	cbSkip        = "wz:skip"
	cbSubmit      = "wz:submit"
	cbPay         = "wz:pay"
	cbCancelPay   = "pay:cancel"
	cbOrderStart  = "order:start"
	cbFittingBook = "fitting:book"

	cbPrefixChoice  = "wzset"
	cbPrefixPhoto   = "photo"
	cbPrefixFabric  = "fabric"
	cbPrefixQty     = "qty"
	cbPrefixSlot    = "slot"
	cbPrefixFitType = "fittype"
)

const (
	btnToday      = "Today"
	btnTomorrow   = "Tomorrow"
	btnManualDate = "Enter date manually"
	btnSkip       = "Skip"
	btnConfirm    = "✅ Confirm booking"
	btnChangeDate = "🔁 Change date"
)

func (b *Bot) createDateSelectionKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnToday),
			tgbotapi.NewKeyboardButton(btnTomorrow),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnManualDate),
		),
	)
}

func (b *Bot) createConfirmationKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnChangeDate),
			tgbotapi.NewKeyboardButton(btnConfirm),
		),
	)
}

func (b *Bot) createContactRequestKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact("📱 Share contact"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
	)
}

func (b *Bot) createSkipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
	)
}

func (b *Bot) createTimeSlotKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, slot := range fitting.TimeSlots {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(slot, cbPrefixSlot+":"+strconv.Itoa(i)))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) createFittingTypeKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range fitting.Types {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t.Label(), cbPrefixFitType+":"+string(t)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) createFabricKeyboard(prefix string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, f := range b.catalog.Fabrics() {
		label := fmt.Sprintf("%s · %s", f.Name, catalog.Format(f.Price))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, prefix+":"+strconv.Itoa(i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) createQuantityKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for q := 1; q <= 5; q++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(q), cbPrefixQty+":"+strconv.Itoa(q)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// navRow is Back plus Skip for optional fields.
func navRow(canGoBack, canSkip bool) []tgbotapi.InlineKeyboardButton {
	row := []tgbotapi.InlineKeyboardButton{
		styledButton(buttonBack, buttonState{Disabled: !canGoBack}),
	}
	if canSkip {
		row = append(row, styledButton(buttonSkip, buttonState{}))
	}
	return row
}

func choiceKeyboard(field wizard.Field, options []string, canGoBack, canSkip bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, opt := range options {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(opt, fmt.Sprintf("%s:%s:%d", cbPrefixChoice, field, i)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, navRow(canGoBack, canSkip))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func photoKeyboard(w *wizard.Wizard, canGoBack bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, slot := range photoSlots {
		state := w.Image(slot)
		label := slotLabel(slot)
		switch state.Status {
		case wizard.ImageUploaded:
			label += " ✅"
		case wizard.ImageUploading:
			label += " ⏳"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📷 "+label, cbPrefixPhoto+":"+string(slot)),
		))
	}

	last := []tgbotapi.InlineKeyboardButton{styledButton(buttonBack, buttonState{Disabled: !canGoBack})}
	if w.OnLastDataStep() {
		last = append(last, styledButton(buttonSubmit, buttonState{Busy: w.Busy(wizard.ActionSubmit)}))
	} else {
		last = append(last, styledButton(buttonNext, buttonState{}))
	}
	rows = append(rows, last)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

var photoSlots = []api.ImageType{api.ImageFrontView, api.ImageSideView, api.ImageReferenceFit}

func slotLabel(t api.ImageType) string {
	switch t {
	case api.ImageFrontView:
		return "Front view"
	case api.ImageSideView:
		return "Side view"
	case api.ImageReferenceFit:
		return "Reference fit"
	}
	return string(t)
}

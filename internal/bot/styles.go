package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type buttonKind int

const (
	buttonSubmit buttonKind = iota
	buttonPay
	buttonNext
	buttonBack
	buttonSkip
)

type buttonState struct {
	Busy     bool
	Disabled bool
}

type buttonStyle struct {
	Label string
	Data  string
}

const callbackNoop = "noop"

// buttonStyles is the single place a button's look is decided.
var buttonStyles = map[buttonKind]map[buttonState]buttonStyle{
	buttonSubmit: {
		{}:               {Label: "✅ Submit order", Data: cbSubmit},
		{Busy: true}:     {Label: "⏳ Submitting...", Data: callbackNoop},
		{Disabled: true}: {Label: "Submit order", Data: callbackNoop},
	},
	buttonPay: {
		{}:               {Label: "💳 Pay %s", Data: cbPay},
		{Busy: true}:     {Label: "⏳ Processing payment...", Data: callbackNoop},
		{Disabled: true}: {Label: "Pay %s", Data: callbackNoop},
	},
	buttonNext: {
		{}:               {Label: "Next ➡️", Data: cbNext},
		{Disabled: true}: {Label: "Next", Data: callbackNoop},
	},
	buttonBack: {
		{}:               {Label: "⬅️ Back", Data: cbBack},
		{Disabled: true}: {Label: "·", Data: callbackNoop},
	},
	buttonSkip: {
		{}: {Label: "Skip ⏭", Data: cbSkip},
	},
}

// styleFor looks up a style; busy wins over disabled.
func styleFor(kind buttonKind, st buttonState) buttonStyle {
	if st.Busy {
		st.Disabled = false
	}
	styles := buttonStyles[kind]
	if s, ok := styles[st]; ok {
		return s
	}
	return styles[buttonState{}]
}

func styledButton(kind buttonKind, st buttonState, args ...any) tgbotapi.InlineKeyboardButton {
	s := styleFor(kind, st)
	label := s.Label
	if len(args) > 0 && strings.Contains(label, "%") {
		label = fmt.Sprintf(label, args...)
	}
	return tgbotapi.NewInlineKeyboardButtonData(label, s.Data)
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/internal/config"
	"tailoring-bot/internal/selection"
	"tailoring-bot/internal/wizard"
)

type Bot struct {
	api        Sender
	logger     *zap.Logger
	state      *SessionStore
	selections selection.Store
	orders     OrderAPI
	catalog    *catalog.Catalog
	flow       wizard.Flow
	cfg        *config.Config
	http       *http.Client
	now        func() time.Time

	mu       sync.Mutex
	handlers map[string]func(context.Context, int64, string)
	wizards  map[int64]*wizard.Wizard

	pendingMu sync.Mutex
	pending   map[int64]*pendingCheckout

	wg sync.WaitGroup

	// after runs delayed work; tests replace it to run synchronously.
	after func(d time.Duration, f func())
}

type Deps struct {
	API        Sender
	Sessions   *SessionStore
	Selections selection.Store
	Orders     OrderAPI
	Catalog    *catalog.Catalog
	Config     *config.Config
	Logger     *zap.Logger
}

// New connects to Telegram and builds the bot.
func New(token string, deps Deps) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	botAPI.Debug = deps.Config.Telegram.Debug

	deps.Logger.Info("Bot authorized",
		zap.String("username", botAPI.Self.UserName),
		zap.Int64("id", botAPI.Self.ID))

	deps.API = botAPI
	return NewWithAPI(deps)
}

// NewWithAPI builds the bot on top of an existing Sender.
func NewWithAPI(deps Deps) (*Bot, error) {
	flow, err := wizard.FlowByName(deps.Config.Wizard.Flow)
	if err != nil {
		return nil, err
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	b := &Bot{
		api:        deps.API,
		logger:     deps.Logger,
		state:      deps.Sessions,
		selections: deps.Selections,
		orders:     deps.Orders,
		catalog:    deps.Catalog,
		flow:       flow,
		cfg:        deps.Config,
		http:       &http.Client{Timeout: deps.Config.API.RequestTimeout},
		now:        time.Now,
		wizards:    make(map[int64]*wizard.Wizard),
		pending:    make(map[int64]*pendingCheckout),
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}

	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerHandlers() {
	b.handlers = map[string]func(context.Context, int64, string){
		StepOrder:            b.handleOrderInput,
		StepFabricQuantity:   b.handleFabricQuantity,
		StepFittingFirstName: b.handleFittingFirstName,
		StepFittingLastName:  b.handleFittingLastName,
		StepFittingEmail:     b.handleFittingEmail,
		StepFittingPhone:     b.handleFittingPhone,
		StepDateSelection:    b.handleDateSelection,
		StepManualDateInput:  b.handleManualDateInput,
		StepFittingTime:      b.handleFittingTimeText,
		StepFittingType:      b.handleFittingType,
		StepFittingNotes:     b.handleFittingNotes,
		StepFittingConfirm:   b.handleFittingConfirmation,
	}
}

// Start polls Telegram until ctx is cancelled.
func (b *Bot) Start(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	b.logger.Info("Starting bot")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down bot")
			b.Wait()
			return nil

		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// Updates opens the long-polling channel. It needs a bot built with New.
func (b *Bot) Updates() (tgbotapi.UpdatesChannel, error) {
	botAPI, ok := b.api.(*tgbotapi.BotAPI)
	if !ok {
		return nil, errors.New("bot is not connected to Telegram")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	return botAPI.GetUpdatesChan(u), nil
}

// HandleUpdate processes one update; updates are handled one at a time.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case update.PreCheckoutQuery != nil:
		b.processPreCheckout(update.PreCheckoutQuery)
	case update.Message != nil:
		b.processMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.processCallback(ctx, update.CallbackQuery)
	}
}

// Wait blocks until background submissions, payments and uploads finish.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// background runs f outside the update loop. f must take b.mu itself
// before touching sessions or wizards.
func (b *Bot) background(f func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		f()
	}()
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	b.logger.Debug("Processing message",
		zap.Int64("chat_id", chatID),
		zap.String("text", msg.Text))

	if msg.SuccessfulPayment != nil {
		b.handleSuccessfulPayment(chatID, msg.SuccessfulPayment)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, chatID, msg.Command(), strings.Fields(msg.CommandArguments()))
		return
	}

	sess, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get user state",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.sendError(chatID, "Something went wrong while reading your session. Please try again.")
		return
	}

	if len(msg.Photo) > 0 || (msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/")) {
		if sess.Step == StepOrder {
			b.handlePhoto(ctx, chatID, msg)
			return
		}
	}

	if msg.Contact != nil && sess.Step == StepFittingPhone {
		b.handleFittingPhone(ctx, chatID, NormalizePhoneNumber(msg.Contact.PhoneNumber))
		return
	}

	if handler, exists := b.handlers[sess.Step]; exists {
		handler(ctx, chatID, strings.TrimSpace(msg.Text))
	} else {
		b.handleDefault(ctx, chatID)
	}
}

func (b *Bot) processCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	data := callback.Data

	b.logger.Debug("Processing callback",
		zap.Int64("chat_id", chatID),
		zap.String("data", data))

	b.answerCallback(callback.ID)

	prefix, value, _ := strings.Cut(data, ":")
	switch {
	case data == callbackNoop:
	case data == cbCancelPay:
		b.handlePaymentDismissed(chatID)
	case data == cbOrderStart:
		b.startOrder(ctx, chatID)
	case data == cbFittingBook:
		b.startFitting(ctx, chatID)
	case prefix == "wz" || prefix == cbPrefixChoice || prefix == cbPrefixPhoto:
		b.handleOrderCallback(ctx, chatID, prefix, value)
	case prefix == cbPrefixFabric:
		b.handleFabricSelection(ctx, chatID, value)
	case prefix == cbPrefixQty:
		b.handleFabricQuantity(ctx, chatID, value)
	case prefix == cbPrefixSlot:
		b.handleFittingTime(ctx, chatID, value)
	case prefix == cbPrefixFitType:
		b.handleFittingType(ctx, chatID, value)
	default:
		b.logger.Warn("Unknown callback", zap.Int64("chat_id", chatID), zap.String("data", data))
	}
}

func (b *Bot) answerCallback(id string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, "")); err != nil {
		b.logger.Debug("Failed to answer callback", zap.Error(err))
	}
}

func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.String("text", msg.Text),
			zap.Error(err))
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendError(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, "❌ "+text))
}

func (b *Bot) isAdmin(chatID int64) bool {
	for _, id := range b.cfg.Telegram.AdminIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/internal/selection"
	"tailoring-bot/pkg/api"
)

const maxQuantity = 50

// handleFabrics shows the catalog and lets the customer preselect a fabric
// and quantity for the next order.
func (b *Bot) handleFabrics(ctx context.Context, chatID int64) {
	products, err := b.orders.Products(ctx)
	if err != nil || len(products) == 0 {
		b.logger.Warn("Failed to load products, using local catalog",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		products = []api.Product{b.localProduct()}
	}

	var sb strings.Builder
	for _, p := range products {
		fmt.Fprintf(&sb, "👖 %s\n%s\n", p.Name, p.Description)
		if !p.Available {
			sb.WriteString("Currently unavailable.\n")
		}
		for _, f := range p.Fabrics {
			fmt.Fprintf(&sb, "\n• %s · %s\n  %s", f.Name, catalog.Format(catalog.FromMinorUnits(f.Price)), f.Description)
			if len(f.Features) > 0 {
				fmt.Fprintf(&sb, "\n  %s", strings.Join(f.Features, " · "))
			}
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString("Choose a fabric:")

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = b.createFabricKeyboard(cbPrefixFabric)
	b.sendMessage(msg)
}

func (b *Bot) localProduct() api.Product {
	p := api.Product{
		ID:          catalog.ProductID,
		Name:        catalog.ProductName,
		Description: "Made to your measurements.",
		Currency:    catalog.Currency,
		Available:   true,
	}
	for i, f := range b.catalog.Fabrics() {
		price := catalog.ToMinorUnits(f.Price)
		if i == 0 {
			p.Price = price
		}
		p.Fabrics = append(p.Fabrics, api.Fabric{
			Name:        f.Name,
			Price:       price,
			Description: f.Description,
			Features:    f.Features,
		})
	}
	return p
}

func (b *Bot) handleFabricSelection(ctx context.Context, chatID int64, value string) {
	fabrics := b.catalog.Fabrics()
	i, err := strconv.Atoi(value)
	if err != nil || i < 0 || i >= len(fabrics) {
		b.sendError(chatID, "Unknown fabric. Use /fabrics to see the list.")
		return
	}

	sess, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get user state", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendError(chatID, "Something went wrong while reading your session. Please try again.")
		return
	}
	sess.Fabric = fabrics[i].Name
	sess.Step = StepFabricQuantity
	if err := b.state.Save(ctx, chatID, sess); err != nil {
		b.logger.Error("Failed to save user state", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendError(chatID, "Something went wrong. Please try again.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s selected. How many pairs? Tap a number or type one up to %d.",
		fabrics[i].Name, maxQuantity))
	msg.ReplyMarkup = b.createQuantityKeyboard()
	b.sendMessage(msg)
}

func (b *Bot) handleFabricQuantity(ctx context.Context, chatID int64, value string) {
	sess, err := b.state.Get(ctx, chatID)
	if err != nil {
		b.logger.Error("Failed to get user state", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendError(chatID, "Something went wrong while reading your session. Please try again.")
		return
	}
	if sess.Fabric == "" {
		b.sendText(chatID, "Please choose a fabric first with /fabrics.")
		return
	}

	qty, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || qty < 1 || qty > maxQuantity {
		b.sendError(chatID, fmt.Sprintf("Please enter a whole number between 1 and %d.", maxQuantity))
		return
	}

	unit, err := b.catalog.UnitPrice(sess.Fabric)
	if err != nil {
		b.logger.Error("Selected fabric missing from catalog",
			zap.String("fabric", sess.Fabric),
			zap.Error(err))
		b.sendError(chatID, "That fabric is no longer available. Use /fabrics to choose again.")
		return
	}

	sel := selection.ProductSelection{
		Fabric:   sess.Fabric,
		Price:    catalog.ToMinorUnits(unit),
		Quantity: qty,
	}
	if err := b.selections.Write(ctx, selectionKey(chatID), sel); err != nil {
		b.logger.Error("Failed to save product selection", zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendError(chatID, "We could not save your selection. Please try again.")
		return
	}

	fabric := sess.Fabric
	sess.Fabric = ""
	if sess.Step == StepFabricQuantity {
		sess.Step = StepIdle
		if sess.Wizard != nil {
			sess.Step = StepOrder
		}
	}
	if err := b.state.Save(ctx, chatID, sess); err != nil {
		b.logger.Error("Failed to save user state", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	total, _ := b.catalog.TotalPrice(fabric, qty)
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("🛒 %s × %d = %s", fabric, qty, catalog.Format(total)))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🧵 Order now", cbOrderStart),
	))
	b.sendMessage(msg)
}

package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tailoring-bot/internal/wizard"
	"tailoring-bot/pkg/api"
)

func (b *Bot) handlePhotoSlot(ctx context.Context, chatID int64, w *wizard.Wizard, sess *Session, value string) {
	slot := api.ImageType(value)
	if !slot.Valid() {
		b.promptCurrent(chatID, w, *sess)
		return
	}
	sess.Slot = slot
	b.saveOrder(ctx, chatID, sess, w)
	b.sendText(chatID, fmt.Sprintf("📷 Send the %s photo now.", slotLabel(slot)))
}

// handlePhoto uploads a photo into the chosen slot, or the first empty one.
func (b *Bot) handlePhoto(ctx context.Context, chatID int64, msg *tgbotapi.Message) {
	sess, w, ok := b.loadOrder(ctx, chatID)
	if !ok {
		return
	}
	if !w.Flow().HasPhotos() {
		b.sendText(chatID, "This order does not take photos.")
		return
	}

	fileID, name, contentType, size := photoFile(msg)
	if size > wizard.MaxImageSize {
		b.sendError(chatID, "Photos must be 10 MB or smaller.")
		return
	}

	slot := sess.Slot
	if slot == "" {
		for _, s := range photoSlots {
			if w.Image(s).Status == wizard.ImageNotUploaded {
				slot = s
				break
			}
		}
	}
	if slot == "" {
		b.sendText(chatID, "All photo slots are filled. Tap a slot to replace its photo.")
		return
	}
	sess.Slot = ""
	b.saveOrder(ctx, chatID, &sess, w)
	b.sendText(chatID, fmt.Sprintf("⏳ Uploading %s photo...", slotLabel(slot)))

	b.background(func() {
		content, err := b.downloadFile(ctx, fileID)
		if err == nil {
			err = w.SelectImage(ctx, api.ImageUpload{
				Type:        slot,
				FileName:    name,
				ContentType: contentType,
				Content:     content,
			})
		} else {
			b.logger.Error("Failed to download photo",
				zap.Int64("chat_id", chatID),
				zap.String("file_id", fileID),
				zap.Error(err))
			err = &wizard.UploadError{Slot: slot, Err: err}
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		if err != nil {
			b.sendError(chatID, wizard.Notice(err))
			return
		}
		sess, live := b.refreshOrder(ctx, chatID, w)
		if w.Image(slot).Status != wizard.ImageUploaded {
			return
		}
		b.sendText(chatID, fmt.Sprintf("✅ %s photo saved.", slotLabel(slot)))
		if live && w.CurrentStep().Kind == wizard.StepPhotos {
			b.promptCurrent(chatID, w, sess)
		}
	})
}

func photoFile(msg *tgbotapi.Message) (fileID, name, contentType string, size int) {
	if len(msg.Photo) > 0 {
		p := msg.Photo[len(msg.Photo)-1]
		return p.FileID, p.FileUniqueID + ".jpg", "image/jpeg", p.FileSize
	}
	d := msg.Document
	name = d.FileName
	if name == "" {
		name = d.FileUniqueID + "." + strings.TrimPrefix(d.MimeType, "image/")
	}
	return d.FileID, name, d.MimeType, d.FileSize
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, wizard.MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > wizard.MaxImageSize {
		return nil, wizard.ErrImageTooLarge
	}
	return data, nil
}

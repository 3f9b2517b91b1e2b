package wizard

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"tailoring-bot/pkg/api"
)

const MaxImageSize = 10 << 20

var (
	ErrNotAnImage    = errors.New("file is not an image")
	ErrImageTooLarge = errors.New("image exceeds 10 MB")
	ErrEmptyImage    = errors.New("image is empty")
	ErrUnknownSlot   = errors.New("unknown image slot")
)

type ImageStatus int

const (
	ImageNotUploaded ImageStatus = iota
	ImageUploading
	ImageUploaded
)

type ImageState struct {
	Status ImageStatus
	URL    string
}

// imageSlot orders uploads by sequence: a response is applied only when it
// is newer than the last one applied.
type imageSlot struct {
	ImageState
	seq     uint64
	applied uint64
}

func (w *Wizard) slot(t api.ImageType) *imageSlot {
	s, ok := w.images[t]
	if !ok {
		s = &imageSlot{}
		w.images[t] = s
	}
	return s
}

// Image returns the state of one slot.
func (w *Wizard) Image(t api.ImageType) ImageState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.images[t]; ok {
		return s.ImageState
	}
	return ImageState{}
}

// SelectImage uploads a photo for a slot right away. Selecting again while
// an earlier upload is pending supersedes it.
func (w *Wizard) SelectImage(ctx context.Context, img api.ImageUpload) error {
	if !img.Type.Valid() {
		return &UploadError{Slot: img.Type, Err: ErrUnknownSlot}
	}
	if len(img.Content) == 0 {
		return &UploadError{Slot: img.Type, Err: ErrEmptyImage}
	}
	if len(img.Content) > MaxImageSize {
		return &UploadError{Slot: img.Type, Err: ErrImageTooLarge}
	}
	if img.ContentType != "" && !strings.HasPrefix(img.ContentType, "image/") {
		return &UploadError{Slot: img.Type, Err: ErrNotAnImage}
	}

	w.mu.Lock()
	if w.phase == PhaseConfirmed {
		w.mu.Unlock()
		return ErrOrderClosed
	}
	s := w.slot(img.Type)
	s.seq++
	mine := s.seq
	s.Status = ImageUploading
	w.mu.Unlock()

	resp, err := w.orders.UploadImage(ctx, img)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.logger.Error("Failed to upload image",
			zap.String("slot", string(img.Type)),
			zap.Uint64("seq", mine),
			zap.Error(err))
		if mine != s.seq {
			return nil
		}
		s.ImageState = ImageState{}
		s.applied = mine
		return &UploadError{Slot: img.Type, Err: err}
	}

	if mine != s.seq || mine <= s.applied {
		w.logger.Debug("Discarding superseded upload",
			zap.String("slot", string(img.Type)),
			zap.Uint64("seq", mine))
		return nil
	}
	s.applied = mine
	s.ImageState = ImageState{Status: ImageUploaded, URL: resp.FileURL}
	return nil
}

// uploadedImages lists settled slots only. A slot with a newer photo still in
// flight is left out rather than sending the photo it replaces.
func (w *Wizard) uploadedImages() map[api.ImageType]string {
	out := make(map[api.ImageType]string)
	for t, s := range w.images {
		if s.Status == ImageUploaded && s.URL != "" {
			out[t] = s.URL
		}
	}
	return out
}

func (s ImageStatus) String() string {
	switch s {
	case ImageUploading:
		return "uploading"
	case ImageUploaded:
		return "uploaded"
	}
	return "not uploaded"
}

package orderapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"tailoring-bot/internal/storage"
	"tailoring-bot/pkg/api"
)

func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.MaxUploadSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "image exceeds the upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "expected a multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	imageType := api.ImageType(r.FormValue("image_type"))
	if !imageType.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "image_type must be front_view, side_view or reference_fit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "file is required")
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "image exceeds the upload limit")
		return
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "could not read file")
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") {
		contentType = header.Header.Get("Content-Type")
	}
	if !strings.HasPrefix(contentType, "image/") || n == 0 {
		writeError(w, http.StatusUnprocessableEntity, "not_an_image", "file must be an image")
		return
	}

	name, err := s.uploads.Save(string(imageType), header.Filename, contentType,
		io.MultiReader(bytes.NewReader(head), file))
	if errors.Is(err, storage.ErrUploadTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "image exceeds the upload limit")
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to store upload", err, zap.String("image_type", string(imageType)))
		return
	}

	fileURL, err := url.JoinPath(s.cfg.PublicURL, "uploads", name)
	if err != nil || s.cfg.PublicURL == "" {
		fileURL = "/uploads/" + name
	}

	s.logger.Info("Image uploaded",
		zap.String("image_type", string(imageType)),
		zap.String("file", name),
		zap.Int64("size", header.Size))

	writeJSON(w, http.StatusOK, api.UploadResponse{Status: "success", FileURL: fileURL})
}

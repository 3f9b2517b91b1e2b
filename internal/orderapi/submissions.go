package orderapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tailoring-bot/internal/catalog"
	"tailoring-bot/internal/storage"
	"tailoring-bot/pkg/api"
)

func (s *Server) submitMeasurements(w http.ResponseWriter, r *http.Request) {
	var req api.SubmissionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	fabric, ok := s.catalog.Lookup(req.FabricChoice)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "unknown_fabric", "fabric_choice is not in the catalog")
		return
	}

	customer := s.cleanCustomer(req.CustomerInfo)
	measurements, err := json.Marshal(req.Measurements)
	if err != nil {
		s.internalError(w, r, "Failed to encode measurements", err)
		return
	}
	var images []byte
	if req.Images != nil {
		if images, err = json.Marshal(req.Images); err != nil {
			s.internalError(w, r, "Failed to encode images", err)
			return
		}
	}
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	sub := &storage.Submission{
		ID:                    uuid.NewString(),
		SessionID:             req.SessionID,
		FirstName:             customer.FirstName,
		LastName:              customer.LastName,
		Email:                 customer.Email,
		Phone:                 customer.Phone,
		Age:                   customer.Age,
		BodyType:              customer.BodyType,
		SpecialConsiderations: customer.SpecialConsiderations,
		Measurements:          measurements,
		ProductSelected:       catalog.ProductName,
		FabricChoice:          fabric.Name,
		StylePreferences:      s.cleanPtr(req.StylePreferences),
		Notes:                 s.cleanPtr(req.Notes),
		Quantity:              quantity,
		Images:                images,
		OrderStatus:           storage.StatusPendingPayment,
	}

	id, err := s.store.SaveSubmission(r.Context(), sub)
	if err != nil {
		s.internalError(w, r, "Failed to save submission", err, zap.String("session_id", req.SessionID))
		return
	}

	s.logger.Info("Measurements received",
		zap.String("submission_id", id),
		zap.String("fabric", fabric.Name),
		zap.Int("quantity", quantity))

	writeJSON(w, http.StatusOK, api.SubmissionResponse{
		Status:        "success",
		Message:       "Measurements submitted successfully",
		SubmissionID:  id,
		Timestamp:     s.now().UTC(),
		CustomerEmail: customer.Email,
	})
}

func (s *Server) getSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "submission not found")
		return
	}

	sub, err := s.store.GetSubmission(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "submission not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "Failed to load submission", err, zap.String("submission_id", id))
		return
	}

	out, err := toAPISubmission(sub)
	if err != nil {
		s.internalError(w, r, "Failed to decode submission", err, zap.String("submission_id", id))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) bookFitting(w http.ResponseWriter, r *http.Request) {
	var req api.FittingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	date, err := time.Parse("2006-01-02", req.PreferredDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "preferred_date must be YYYY-MM-DD")
		return
	}

	customer := s.cleanCustomer(req.CustomerInfo)
	f := &storage.Fitting{
		ID:            uuid.NewString(),
		FirstName:     customer.FirstName,
		LastName:      customer.LastName,
		Email:         customer.Email,
		Phone:         customer.Phone,
		PreferredDate: date,
		PreferredTime: req.PreferredTime,
		FittingType:   req.FittingType,
		Notes:         s.cleanPtr(req.Notes),
		Status:        storage.FittingScheduled,
	}
	if err := s.store.SaveFitting(r.Context(), f); err != nil {
		s.internalError(w, r, "Failed to save fitting", err)
		return
	}

	s.logger.Info("Virtual fitting booked",
		zap.String("booking_id", f.ID),
		zap.String("fitting_type", f.FittingType),
		zap.String("date", req.PreferredDate))

	writeJSON(w, http.StatusOK, api.FittingResponse{
		Status:        "success",
		Message:       "Virtual fitting booked successfully",
		BookingID:     f.ID,
		Timestamp:     s.now().UTC(),
		CustomerEmail: customer.Email,
	})
}

func (s *Server) cleanCustomer(c api.CustomerInfo) api.CustomerInfo {
	c.FirstName = s.clean(c.FirstName)
	c.LastName = s.clean(c.LastName)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = s.cleanPtr(c.Phone)
	c.BodyType = s.cleanPtr(c.BodyType)
	c.SpecialConsiderations = s.cleanPtr(c.SpecialConsiderations)
	return c
}

func toAPISubmission(sub *storage.Submission) (api.Submission, error) {
	out := api.Submission{
		ID: sub.ID,
		CustomerInfo: api.CustomerInfo{
			FirstName:             sub.FirstName,
			LastName:              sub.LastName,
			Email:                 sub.Email,
			Phone:                 sub.Phone,
			Age:                   sub.Age,
			BodyType:              sub.BodyType,
			SpecialConsiderations: sub.SpecialConsiderations,
		},
		ProductSelected: sub.ProductSelected,
		FabricChoice:    sub.FabricChoice,
		StylePreference: sub.StylePreferences,
		Notes:           sub.Notes,
		Quantity:        sub.Quantity,
		SessionID:       sub.SessionID,
		OrderStatus:     sub.OrderStatus,
		CreatedAt:       sub.CreatedAt,
	}
	if len(sub.Measurements) > 0 {
		if err := json.Unmarshal(sub.Measurements, &out.Measurements); err != nil {
			return api.Submission{}, err
		}
	}
	if len(sub.Images) > 0 {
		if err := json.Unmarshal(sub.Images, &out.Images); err != nil {
			return api.Submission{}, err
		}
	}
	return out, nil
}

// Package fitting holds the virtual fitting booking form.
package fitting

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"tailoring-bot/pkg/api"
)

const (
	DateLayout     = "02.01.2006"
	wireDateLayout = "2006-01-02"
	maxNotesLength = 500
)

type Type string

const (
	VirtualConsultation Type = "virtual_consultation"
	MeasurementGuidance Type = "measurement_guidance"
	FabricSelection     Type = "fabric_selection"
	StylingAdvice       Type = "styling_advice"
)

var Types = []Type{VirtualConsultation, MeasurementGuidance, FabricSelection, StylingAdvice}

func (t Type) Label() string {
	switch t {
	case VirtualConsultation:
		return "Virtual consultation"
	case MeasurementGuidance:
		return "Measurement guidance"
	case FabricSelection:
		return "Fabric selection"
	case StylingAdvice:
		return "Styling advice"
	}
	return string(t)
}

// ParseType accepts either the identifier or its label.
func ParseType(s string) (Type, bool) {
	s = strings.TrimSpace(s)
	for _, t := range Types {
		if string(t) == s || strings.EqualFold(t.Label(), s) {
			return t, true
		}
	}
	return "", false
}

var TimeSlots = []string{
	"09:00 AM", "10:00 AM", "11:00 AM", "12:00 PM",
	"02:00 PM", "03:00 PM", "04:00 PM", "05:00 PM",
}

func ValidSlot(s string) bool {
	for _, slot := range TimeSlots {
		if slot == s {
			return true
		}
	}
	return false
}

var (
	ErrDateFormat = errors.New("date must be in DD.MM.YYYY format")
	ErrDatePast   = errors.New("date must not be in the past")

	emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
)

// ParseDate reads a DD.MM.YYYY date (DD.MM.YY is widened) and rejects days
// before today.
func ParseDate(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if len(text) == 8 {
		text = text[:6] + "20" + text[6:]
	}
	d, err := time.ParseInLocation(DateLayout, text, now.Location())
	if err != nil {
		return time.Time{}, ErrDateFormat
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if d.Before(today) {
		return time.Time{}, ErrDatePast
	}
	return d, nil
}

// WorkingDaysUntil counts weekdays from now up to the given date.
func WorkingDaysUntil(date, now time.Time) int {
	days := 0
	for d := now; d.Before(date); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			days++
		}
	}
	return days
}

// Booking is the in-progress fitting request.
type Booking struct {
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Date      time.Time `json:"date"`
	Time      string    `json:"time"`
	Type      Type      `json:"fitting_type"`
	Notes     string    `json:"notes"`
}

func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

func NewBooking() Booking {
	return Booking{Type: VirtualConsultation}
}

func (b Booking) Validate() error {
	switch {
	case strings.TrimSpace(b.FirstName) == "":
		return errors.New("first name is required")
	case strings.TrimSpace(b.LastName) == "":
		return errors.New("last name is required")
	case !ValidEmail(b.Email):
		return errors.New("please enter a valid email address")
	case b.Date.IsZero():
		return errors.New("please choose a date")
	case !ValidSlot(b.Time):
		return fmt.Errorf("please choose one of the time slots: %s", strings.Join(TimeSlots, ", "))
	case b.Type == "":
		return errors.New("please choose a fitting type")
	case utf8.RuneCountInString(b.Notes) > maxNotesLength:
		return errors.New("notes must be at most 500 characters")
	}
	if _, ok := ParseType(string(b.Type)); !ok {
		return fmt.Errorf("unknown fitting type %q", b.Type)
	}
	return nil
}

// Request converts a valid booking to the wire format.
func (b Booking) Request() api.FittingRequest {
	req := api.FittingRequest{
		CustomerInfo: api.CustomerInfo{
			FirstName: strings.TrimSpace(b.FirstName),
			LastName:  strings.TrimSpace(b.LastName),
			Email:     strings.TrimSpace(b.Email),
		},
		PreferredDate: b.Date.Format(wireDateLayout),
		PreferredTime: b.Time,
		FittingType:   string(b.Type),
	}
	if p := strings.TrimSpace(b.Phone); p != "" {
		req.CustomerInfo.Phone = &p
	}
	if n := strings.TrimSpace(b.Notes); n != "" {
		req.Notes = &n
	}
	return req
}

func (b Booking) Summary() string {
	return fmt.Sprintf("%s on %s at %s", b.Type.Label(), b.Date.Format(DateLayout), b.Time)
}

package wizard

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"tailoring-bot/internal/catalog"
)

var (
	emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
)

const (
	minHeight, maxHeight = 100, 250
	minWeight, maxWeight = 30, 300
	minAge, maxAge       = 18, 120

	maxNameLength  = 50
	maxNotesLength = 500
)

type rules struct {
	flow    Flow
	catalog *catalog.Catalog
}

// checkField validates one field of the form. It never mutates the form.
func (r rules) checkField(form *Form, field Field) string {
	if field == FieldQuantity {
		if form.Order.Quantity < 1 {
			return "Quantity must be at least 1."
		}
		return ""
	}

	value := strings.TrimSpace(form.Value(field))
	info := fieldInfo[field]

	if value == "" {
		if info.Required {
			return info.Label + " is required."
		}
		return ""
	}

	switch field {
	case FieldFirstName, FieldLastName:
		if utf8.RuneCountInString(value) > maxNameLength {
			return info.Label + " must be at most 50 characters."
		}
	case FieldEmail:
		if !emailPattern.MatchString(value) {
			return "Please enter a valid email address."
		}
	case FieldPhone:
		if !phonePattern.MatchString(value) {
			return "Phone may contain only digits, spaces, dashes, brackets and a leading +."
		}
	case FieldAge:
		age, err := strconv.Atoi(value)
		if err != nil || age < minAge || age > maxAge {
			return "Age must be a whole number between 18 and 120."
		}
	case FieldBodyType:
		if !r.flow.bodyTypeAllowed(value) {
			return "Please choose one of: " + strings.Join(r.flow.BodyTypes, ", ") + "."
		}
	case FieldHeight:
		if !inRange(value, minHeight, maxHeight) {
			return "Height must be between 100 and 250 cm."
		}
	case FieldWeight:
		if !inRange(value, minWeight, maxWeight) {
			return "Weight must be between 30 and 300 kg."
		}
	case FieldOutseam, FieldWaist, FieldHipSeat, FieldThigh, FieldCrotchRise, FieldBottomOpening:
		if n, ok := parseNumber(value); !ok || n <= 0 {
			return info.Label + " must be a positive number."
		}
	case FieldFabric:
		if _, ok := r.catalog.Lookup(value); !ok {
			return "Please choose a fabric from the catalog."
		}
	case FieldNotes:
		if utf8.RuneCountInString(value) > maxNotesLength {
			return "Notes must be at most 500 characters."
		}
	}
	return ""
}

func (r rules) checkStep(form *Form, step Step) error {
	for _, field := range step.Fields {
		if msg := r.checkField(form, field); msg != "" {
			return &ValidationError{Step: step.ID, Field: field, Message: msg}
		}
	}
	return nil
}

// checkGroups validates groups wherever the flow collects them, so the
// final check does not depend on which step holds height and weight.
func (r rules) checkGroups(form *Form, groups ...Group) error {
	for _, g := range groups {
		for _, field := range GroupFields(g) {
			idx := r.flow.StepOf(field)
			if idx < 0 && !fieldInfo[field].Required {
				continue
			}
			if msg := r.checkField(form, field); msg != "" {
				stepID := ""
				if idx >= 0 {
					stepID = r.flow.Steps[idx].ID
				}
				return &ValidationError{Step: stepID, Field: field, Message: msg}
			}
		}
	}
	return nil
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func inRange(s string, lo, hi float64) bool {
	n, ok := parseNumber(s)
	return ok && n >= lo && n <= hi
}

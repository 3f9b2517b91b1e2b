package wizard

import (
	"errors"
	"fmt"
)

type StepKind int

const (
	StepData StepKind = iota
	StepPhotos
	StepPayment
)

type Step struct {
	ID     string
	Title  string
	Hint   string
	Kind   StepKind
	Fields []Field
}

// Flow is an ordered list of steps. Wizards of different lengths are just
// different flows.
type Flow struct {
	Name      string
	Steps     []Step
	BodyTypes []string
}

const (
	FlowMeasurement = "measurement"
	FlowGarment     = "garment"
	FlowCheckout    = "checkout"
)

var ErrUnknownFlow = errors.New("unknown flow")

// FlowByName returns one of the built-in flows.
func FlowByName(name string) (Flow, error) {
	switch name {
	case FlowMeasurement:
		return MeasurementFlow(), nil
	case FlowGarment:
		return GarmentFlow(), nil
	case FlowCheckout, "":
		return CheckoutFlow(), nil
	}
	return Flow{}, fmt.Errorf("%w: %q", ErrUnknownFlow, name)
}

// MeasurementFlow is the seven-step measurement guide ending with the
// order details.
func MeasurementFlow() Flow {
	return Flow{
		Name:      FlowMeasurement,
		BodyTypes: []string{"slim", "athletic", "regular", "full"},
		Steps: []Step{
			{ID: "client_details", Title: "Client Details", Fields: []Field{
				FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldAge, FieldBodyType,
			}},
			{ID: "basic_measurements", Title: "Basic Measurements", Fields: []Field{
				FieldHeight, FieldWeight,
			}},
			{ID: "outseam", Title: "Outseam", Hint: "Measure from the top of the waistband down to where you want the trousers to end.",
				Fields: []Field{FieldOutseam}},
			{ID: "waist", Title: "Waist", Hint: "Measure around your natural waistline, keeping the tape comfortably loose.",
				Fields: []Field{FieldWaist}},
			{ID: "hip_seat", Title: "Hip/Seat", Hint: "Measure around the fullest part of your hips and seat.",
				Fields: []Field{FieldHipSeat}},
			{ID: "thigh_rise", Title: "Thigh & Crotch Rise", Hint: "Measure the thigh at its widest point, and the rise from crotch to waistband.",
				Fields: []Field{FieldThigh, FieldCrotchRise}},
			{ID: "final_details", Title: "Final Details", Fields: []Field{
				FieldBottomOpening, FieldFabric, FieldStylePreferences, FieldNotes,
			}},
		},
	}
}

// GarmentFlow walks the garment measurements first and collects the
// client details last.
func GarmentFlow() Flow {
	return Flow{
		Name:      FlowGarment,
		BodyTypes: []string{"slim", "athletic", "average", "broad"},
		Steps: []Step{
			{ID: "length", Title: "Length", Hint: "Outseam: waistband to hem along the outside of the leg.",
				Fields: []Field{FieldOutseam}},
			{ID: "waist", Title: "Waist", Fields: []Field{FieldWaist}},
			{ID: "hip_seat", Title: "Hip/Seat", Fields: []Field{FieldHipSeat}},
			{ID: "thigh", Title: "Thigh", Fields: []Field{FieldThigh}},
			{ID: "crotch_rise", Title: "Crotch/Rise", Fields: []Field{FieldCrotchRise}},
			{ID: "bottom_opening", Title: "Bottom Opening", Fields: []Field{FieldBottomOpening}},
			{ID: "client_details", Title: "Client Details", Fields: []Field{
				FieldFirstName, FieldLastName, FieldEmail, FieldPhone,
				FieldHeight, FieldWeight, FieldBodyType, FieldNotes,
			}},
		},
	}
}

// CheckoutFlow is the full eight-step flow with photos and payment.
func CheckoutFlow() Flow {
	return Flow{
		Name:      FlowCheckout,
		BodyTypes: []string{"slim", "athletic", "average", "regular", "broad", "full"},
		Steps: []Step{
			{ID: "client_details", Title: "Client Details", Fields: []Field{
				FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldAge, FieldBodyType, FieldSpecialConsiderations,
			}},
			{ID: "basic_measurements", Title: "Basic Measurements", Fields: []Field{
				FieldHeight, FieldWeight,
			}},
			{ID: "length_waist", Title: "Length & Waist", Fields: []Field{
				FieldOutseam, FieldWaist,
			}},
			{ID: "hip_thigh", Title: "Hip & Thigh", Fields: []Field{
				FieldHipSeat, FieldThigh,
			}},
			{ID: "rise_opening", Title: "Rise & Opening", Fields: []Field{
				FieldCrotchRise, FieldBottomOpening,
			}},
			{ID: "order_details", Title: "Order Details", Fields: []Field{
				FieldFabric, FieldQuantity, FieldStylePreferences, FieldNotes,
			}},
			{ID: "photos", Title: "Photos", Kind: StepPhotos,
				Hint: "Optional: a front view, a side view and a photo of trousers that fit you well."},
			{ID: "payment", Title: "Payment", Kind: StepPayment},
		},
	}
}

func (f Flow) Len() int { return len(f.Steps) }

// LastDataStep is the index of the last step before payment.
func (f Flow) LastDataStep() int {
	for i := len(f.Steps) - 1; i >= 0; i-- {
		if f.Steps[i].Kind != StepPayment {
			return i
		}
	}
	return -1
}

// PaymentStep returns the index of the payment step or -1.
func (f Flow) PaymentStep() int {
	for i, s := range f.Steps {
		if s.Kind == StepPayment {
			return i
		}
	}
	return -1
}

// StepOf returns the index of the step collecting a field, or -1.
func (f Flow) StepOf(field Field) int {
	for i, s := range f.Steps {
		for _, sf := range s.Fields {
			if sf == field {
				return i
			}
		}
	}
	return -1
}

// HasPhotos reports whether the flow asks for photos.
func (f Flow) HasPhotos() bool {
	for _, s := range f.Steps {
		if s.Kind == StepPhotos {
			return true
		}
	}
	return false
}

func (f Flow) bodyTypeAllowed(v string) bool {
	for _, bt := range f.BodyTypes {
		if bt == v {
			return true
		}
	}
	return false
}

// Check rejects flows that could never produce a valid submission.
func (f Flow) Check() error {
	if len(f.Steps) == 0 {
		return errors.New("flow has no steps")
	}
	for _, g := range []Group{GroupIdentity, GroupCore} {
		for _, field := range GroupFields(g) {
			if fieldInfo[field].Required && f.StepOf(field) < 0 {
				return fmt.Errorf("flow %q never collects %s", f.Name, field)
			}
		}
	}
	if p := f.PaymentStep(); p >= 0 && p != len(f.Steps)-1 {
		return fmt.Errorf("flow %q: payment must be the last step", f.Name)
	}
	seen := map[Field]bool{}
	for _, s := range f.Steps {
		for _, field := range s.Fields {
			if _, ok := fieldInfo[field]; !ok {
				return fmt.Errorf("flow %q: unknown field %q", f.Name, field)
			}
			if seen[field] {
				return fmt.Errorf("flow %q: field %q collected twice", f.Name, field)
			}
			seen[field] = true
		}
	}
	return nil
}

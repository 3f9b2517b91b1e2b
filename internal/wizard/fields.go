package wizard

import "strconv"

// Field names a single input of the order form. Values match the JSON keys
// the order service uses.
type Field string

const (
	FieldFirstName             Field = "first_name"
	FieldLastName              Field = "last_name"
	FieldEmail                 Field = "email"
	FieldPhone                 Field = "phone"
	FieldAge                   Field = "age"
	FieldBodyType              Field = "body_type"
	FieldSpecialConsiderations Field = "special_considerations"

	FieldHeight        Field = "height"
	FieldWeight        Field = "weight"
	FieldOutseam       Field = "outseam"
	FieldWaist         Field = "waist"
	FieldHipSeat       Field = "hip_seat"
	FieldThigh         Field = "thigh"
	FieldCrotchRise    Field = "crotch_rise"
	FieldBottomOpening Field = "bottom_opening"

	FieldFabric           Field = "fabric_choice"
	FieldStylePreferences Field = "style_preferences"
	FieldNotes            Field = "notes"
	FieldQuantity         Field = "quantity"
)

// Group is a logical set of fields validated together at submit time.
type Group int

const (
	GroupIdentity Group = iota + 1
	GroupProfile
	GroupCore
	GroupGarment
	GroupOrder
)

type FieldInfo struct {
	Field    Field
	Label    string
	Prompt   string
	Group    Group
	Required bool
}

var fieldInfo = map[Field]FieldInfo{
	FieldFirstName:             {Label: "First name", Prompt: "Your first name", Group: GroupIdentity, Required: true},
	FieldLastName:              {Label: "Last name", Prompt: "Your last name", Group: GroupIdentity, Required: true},
	FieldEmail:                 {Label: "Email", Prompt: "Email address for order updates", Group: GroupIdentity, Required: true},
	FieldPhone:                 {Label: "Phone", Prompt: "Phone number (optional)", Group: GroupProfile},
	FieldAge:                   {Label: "Age", Prompt: "Age (optional, 18-120)", Group: GroupProfile},
	FieldBodyType:              {Label: "Body type", Prompt: "Body type (optional)", Group: GroupProfile},
	FieldSpecialConsiderations: {Label: "Special considerations", Prompt: "Anything we should know about your fit? (optional)", Group: GroupProfile},

	FieldHeight:        {Label: "Height", Prompt: "Height in cm (100-250)", Group: GroupCore, Required: true},
	FieldWeight:        {Label: "Weight", Prompt: "Weight in kg (30-300)", Group: GroupCore, Required: true},
	FieldOutseam:       {Label: "Outseam", Prompt: "Outseam in cm, waist to ankle (optional)", Group: GroupGarment},
	FieldWaist:         {Label: "Waist", Prompt: "Waist in cm (optional)", Group: GroupGarment},
	FieldHipSeat:       {Label: "Hip/Seat", Prompt: "Hip/seat in cm, fullest part (optional)", Group: GroupGarment},
	FieldThigh:         {Label: "Thigh", Prompt: "Thigh in cm (optional)", Group: GroupGarment},
	FieldCrotchRise:    {Label: "Crotch/Rise", Prompt: "Crotch rise in cm (optional)", Group: GroupGarment},
	FieldBottomOpening: {Label: "Bottom opening", Prompt: "Bottom opening (hem) in cm (optional)", Group: GroupGarment},

	FieldFabric:           {Label: "Fabric", Prompt: "Fabric", Group: GroupOrder, Required: true},
	FieldStylePreferences: {Label: "Style preferences", Prompt: "Style preferences, e.g. slim fit, no cuffs (optional)", Group: GroupOrder},
	FieldNotes:            {Label: "Notes", Prompt: "Notes for the tailor (optional, up to 500 characters)", Group: GroupOrder},
	FieldQuantity:         {Label: "Quantity", Prompt: "How many pairs?", Group: GroupOrder, Required: true},
}

// Info describes a field for presentation.
func Info(f Field) (FieldInfo, bool) {
	info, ok := fieldInfo[f]
	if !ok {
		return FieldInfo{}, false
	}
	info.Field = f
	return info, true
}

// GroupFields lists every known field of a group in form order.
func GroupFields(g Group) []Field {
	var out []Field
	for _, f := range formOrder {
		if fieldInfo[f].Group == g {
			out = append(out, f)
		}
	}
	return out
}

var formOrder = []Field{
	FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldAge, FieldBodyType, FieldSpecialConsiderations,
	FieldHeight, FieldWeight, FieldOutseam, FieldWaist, FieldHipSeat, FieldThigh, FieldCrotchRise, FieldBottomOpening,
	FieldFabric, FieldStylePreferences, FieldNotes, FieldQuantity,
}

type CustomerInput struct {
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	Age                   string `json:"age"`
	BodyType              string `json:"body_type"`
	SpecialConsiderations string `json:"special_considerations"`
}

// MeasurementInput holds raw text as entered; parsing happens at
// validation and payload assembly.
type MeasurementInput struct {
	Height        string `json:"height"`
	Weight        string `json:"weight"`
	Outseam       string `json:"outseam"`
	Waist         string `json:"waist"`
	HipSeat       string `json:"hip_seat"`
	Thigh         string `json:"thigh"`
	CrotchRise    string `json:"crotch_rise"`
	BottomOpening string `json:"bottom_opening"`
}

type OrderInput struct {
	Fabric           string `json:"fabric_choice"`
	StylePreferences string `json:"style_preferences"`
	Notes            string `json:"notes"`
	Quantity         int    `json:"quantity"`
}

// Form is the wizard's accumulated input.
type Form struct {
	Customer     CustomerInput    `json:"customer_info"`
	Measurements MeasurementInput `json:"measurements"`
	Order        OrderInput       `json:"order"`
}

// ref points at the text slot backing a field. Quantity has no text slot.
func (f *Form) ref(field Field) *string {
	switch field {
	case FieldFirstName:
		return &f.Customer.FirstName
	case FieldLastName:
		return &f.Customer.LastName
	case FieldEmail:
		return &f.Customer.Email
	case FieldPhone:
		return &f.Customer.Phone
	case FieldAge:
		return &f.Customer.Age
	case FieldBodyType:
		return &f.Customer.BodyType
	case FieldSpecialConsiderations:
		return &f.Customer.SpecialConsiderations
	case FieldHeight:
		return &f.Measurements.Height
	case FieldWeight:
		return &f.Measurements.Weight
	case FieldOutseam:
		return &f.Measurements.Outseam
	case FieldWaist:
		return &f.Measurements.Waist
	case FieldHipSeat:
		return &f.Measurements.HipSeat
	case FieldThigh:
		return &f.Measurements.Thigh
	case FieldCrotchRise:
		return &f.Measurements.CrotchRise
	case FieldBottomOpening:
		return &f.Measurements.BottomOpening
	case FieldFabric:
		return &f.Order.Fabric
	case FieldStylePreferences:
		return &f.Order.StylePreferences
	case FieldNotes:
		return &f.Order.Notes
	}
	return nil
}

// Value returns the current raw value of a field.
func (f Form) Value(field Field) string {
	if field == FieldQuantity {
		if f.Order.Quantity == 0 {
			return ""
		}
		return strconv.Itoa(f.Order.Quantity)
	}
	if p := f.ref(field); p != nil {
		return *p
	}
	return ""
}

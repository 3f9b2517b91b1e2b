package wizard

import (
	"strconv"
	"strings"

	"tailoring-bot/pkg/api"
)

const unitCentimetres = "cm"

// buildSubmission assembles a fresh request from the form. It is only called
// after the form passed validation.
func buildSubmission(form Form, images map[api.ImageType]string, token string) api.SubmissionRequest {
	m := form.Measurements
	height, _ := parseNumber(m.Height)
	weight, _ := parseNumber(m.Weight)

	req := api.SubmissionRequest{
		CustomerInfo: api.CustomerInfo{
			FirstName:             strings.TrimSpace(form.Customer.FirstName),
			LastName:              strings.TrimSpace(form.Customer.LastName),
			Email:                 strings.TrimSpace(form.Customer.Email),
			Phone:                 optionalText(form.Customer.Phone),
			Age:                   optionalInt(form.Customer.Age),
			BodyType:              optionalText(form.Customer.BodyType),
			SpecialConsiderations: optionalText(form.Customer.SpecialConsiderations),
		},
		Measurements: api.Measurements{
			Height:        height,
			Weight:        weight,
			Outseam:       optionalNumber(m.Outseam),
			Waist:         optionalNumber(m.Waist),
			HipSeat:       optionalNumber(m.HipSeat),
			Thigh:         optionalNumber(m.Thigh),
			CrotchRise:    optionalNumber(m.CrotchRise),
			BottomOpening: optionalNumber(m.BottomOpening),
			Unit:          unitCentimetres,
		},
		FabricChoice:     strings.TrimSpace(form.Order.Fabric),
		StylePreferences: optionalText(form.Order.StylePreferences),
		Notes:            optionalText(form.Order.Notes),
		Quantity:         form.Order.Quantity,
		SessionID:        token,
	}

	if len(images) > 0 {
		req.Images = &api.Images{
			FrontView:    optionalText(images[api.ImageFrontView]),
			SideView:     optionalText(images[api.ImageSideView]),
			ReferenceFit: optionalText(images[api.ImageReferenceFit]),
		}
	}
	return req
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalNumber(s string) *float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	n, ok := parseNumber(s)
	if !ok {
		return nil
	}
	return &n
}

func optionalInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

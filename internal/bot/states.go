package bot

const (
	StepIdle = ""

	StepOrder = "order"

	StepFabricQuantity = "fabric_quantity"

	StepFittingFirstName = "fitting_first_name"
	StepFittingLastName  = "fitting_last_name"
	StepFittingEmail     = "fitting_email"
	StepFittingPhone     = "fitting_phone"
	StepDateSelection    = "date_selection"
	StepManualDateInput  = "manual_date_input"
	StepFittingTime      = "fitting_time"
	StepFittingType      = "fitting_type"
	StepFittingNotes     = "fitting_notes"
	StepFittingConfirm   = "fitting_confirm"
)

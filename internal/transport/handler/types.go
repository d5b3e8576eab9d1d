package handler

// CompressBatchParams are the form fields accompanying a batch upload.
type CompressBatchParams struct {
	TargetKB    int64  `validate:"required,gte=2,lte=51200"` // per-image budget in KB
	ToleranceKB int64  `validate:"gte=0"`
	Mode        string `validate:"omitempty,oneof=keep grouped individual"`
	GroupLabel  string `validate:"required_if=Mode grouped,omitempty,max=64"`
	Archive     bool   // also copy results into the archival hierarchy

	// CustomNames holds one name per uploaded file, used in individual mode.
	CustomNames []string
}

// TicketParams are the fields of a staff feedback ticket.
type TicketParams struct {
	Name     string `json:"name" validate:"required,max=64"`
	Email    string `json:"email" validate:"omitempty,email,max=128"`
	Category string `json:"category" validate:"required,oneof=bug idea other"`
	Message  string `json:"message" validate:"required,max=2000"`
}

// NormalizeParams is the free-form archive-number input.
type NormalizeParams struct {
	Text string `json:"text" validate:"required,max=10000"`
}

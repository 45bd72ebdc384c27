package request

type ConfirmBookingRequest struct {
	HoldID        string `json:"hold_id" validate:"required,uuid4"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card"`
	CardNumber    string `json:"card_number" validate:"required,numeric,min=12,max=19"`
}

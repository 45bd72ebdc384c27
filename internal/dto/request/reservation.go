package request

type CreateReservationRequest struct {
	EventID         string   `json:"event_id" validate:"required,uuid4"`
	SeatIDs         []string `json:"seat_ids" validate:"required,min=1,max=10,dive,uuid4"`
	DurationMinutes int      `json:"duration_minutes,omitempty" validate:"omitempty,min=1"`
}

type ExtendReservationRequest struct {
	AdditionalMinutes int `json:"additional_minutes" validate:"required,min=1"`
}

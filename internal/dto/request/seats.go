package request

type ProvisionSeatsRequest struct {
	Seats []ProvisionSeat `json:"seats" validate:"required,min=1,dive"`
}

type ProvisionSeat struct {
	SectionID  string  `json:"section_id" validate:"required,uuid4"`
	SeatLabel  string  `json:"seat_label" validate:"required"`
	SeatRow    string  `json:"seat_row" validate:"required"`
	SeatColumn int     `json:"seat_column" validate:"required,min=1"`
	Price      float64 `json:"price" validate:"required,min=0"`
}

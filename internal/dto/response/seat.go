package response

import (
	"ticket-booking/internal/data/entity"
)

type SeatResponse struct {
	ID         string           `json:"id"`
	SectionID  string           `json:"section_id"`
	SeatLabel  string           `json:"seat_label"`
	SeatRow    string           `json:"seat_row"`
	SeatColumn int              `json:"seat_column"`
	Price      float64          `json:"price"`
	State      entity.SeatState `json:"state"`
}

type SeatMapResponse struct {
	EventID string         `json:"event_id"`
	Seats   []SeatResponse `json:"seats"`
	Free    int            `json:"free"`
	Held    int            `json:"held"`
	Booked  int            `json:"booked"`
}

func SeatMapToResponse(eventID string, seats []*entity.Seat) SeatMapResponse {
	resp := SeatMapResponse{
		EventID: eventID,
		Seats:   make([]SeatResponse, len(seats)),
	}

	for i, seat := range seats {
		resp.Seats[i] = SeatResponse{
			ID:         seat.ID.String(),
			SectionID:  seat.SectionID.String(),
			SeatLabel:  seat.SeatLabel,
			SeatRow:    seat.SeatRow,
			SeatColumn: seat.SeatColumn,
			Price:      seat.Price,
			State:      seat.State,
		}

		switch seat.State {
		case entity.SeatStateFree:
			resp.Free++
		case entity.SeatStateHeld:
			resp.Held++
		case entity.SeatStateBooked:
			resp.Booked++
		}
	}

	return resp
}

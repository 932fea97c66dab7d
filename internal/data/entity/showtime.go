package entity

import (
	"time"

	"github.com/google/uuid"
)

// Showtime is the ledger row for a screening. The catalog service owns every
// column except available_seats, which only the reserve/release operations of
// this core may mutate.
type Showtime struct {
	Base
	MovieID         uuid.UUID `db:"movie_id"`
	AuditoriumID    uuid.UUID `db:"auditorium_id"`
	ShowDate        time.Time `db:"show_date"`
	ShowTime        time.Time `db:"show_time"`
	Price           float64   `db:"price"`
	SeatingCapacity int       `db:"seating_capacity"`
	AvailableSeats  int       `db:"available_seats"`
}

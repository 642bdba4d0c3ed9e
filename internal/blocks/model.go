package blocks

import "time"

const (
	KindOnce      = "once"
	KindRecurring = "recurring"
)

// Block is an admin-defined time range that removes slots from the
// bookable grid, either on a single date or weekly until an end date.
type Block struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Date      string    `bson:"date" json:"date"`
	StartTime string    `bson:"start_time" json:"start_time"`
	EndTime   string    `bson:"end_time" json:"end_time"`
	Reason    string    `bson:"reason" json:"reason"`
	Kind      string    `bson:"type" json:"type"`
	DayOfWeek *int      `bson:"day_of_week,omitempty" json:"day_of_week,omitempty"`
	EndDate   string    `bson:"end_date,omitempty" json:"end_date,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type CreateRequest struct {
	Date      string `json:"date" validate:"required,date"`
	StartTime string `json:"start_time" validate:"required,clock,slot30"`
	EndTime   string `json:"end_time" validate:"required,clock,slot30"`
	Reason    string `json:"reason" validate:"required"`
	Kind      string `json:"type" validate:"omitempty,oneof=once recurring"`
	DayOfWeek *int   `json:"day_of_week" validate:"omitempty,gte=0,lte=6"`
	EndDate   string `json:"end_date" validate:"omitempty,date"`
}

type UpdateRequest struct {
	StartTime string `json:"start_time" validate:"required,clock,slot30"`
	EndTime   string `json:"end_time" validate:"required,clock,slot30"`
	Reason    string `json:"reason" validate:"required"`
}

package booking

import (
	"strings"
	"time"

	"tjanster-backend/internal/catalog"
	"tjanster-backend/internal/schedule"
)

// Status values are stored as-is. PENDING is upper-case for historical
// reasons: the original data carries it that way and the admin UI keys
// off the exact string.
const (
	StatusPending  = "PENDING"
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

type Booking struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	Name          string    `bson:"name" json:"name"`
	Email         string    `bson:"email" json:"email"`
	Phone         string    `bson:"phone" json:"phone"`
	Area          string    `bson:"area" json:"area"`
	Message       string    `bson:"message,omitempty" json:"message,omitempty"`
	Date          string    `bson:"date" json:"date"`
	Time          string    `bson:"time" json:"time"`
	ServiceType   string    `bson:"service_type" json:"service_type"`
	Status        string    `bson:"status" json:"status"`
	DeclineReason string    `bson:"decline_reason,omitempty" json:"decline_reason,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}

type CreateRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Area        string `json:"area"`
	Message     string `json:"message"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	ServiceType string `json:"service_type"`
}

type EditRequest struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Message string `json:"message"`
}

type DeclineRequest struct {
	Reason string `json:"reason"`
}

type ListFilter struct {
	Date            string
	FromDate        string
	Status          string
	ExcludeDeclined bool
}

// Normalize trims every field and strips any seconds component from the
// slot label before validation or storage.
func (r CreateRequest) Normalize() CreateRequest {
	return CreateRequest{
		Name:        strings.TrimSpace(r.Name),
		Email:       strings.TrimSpace(r.Email),
		Phone:       strings.TrimSpace(r.Phone),
		Area:        strings.TrimSpace(r.Area),
		Message:     strings.TrimSpace(r.Message),
		Date:        strings.TrimSpace(r.Date),
		Time:        schedule.NormalizeSlot(r.Time),
		ServiceType: strings.TrimSpace(r.ServiceType),
	}
}

// ValidateRecord gates every booking submission: each required field must
// be non-empty after trimming, and date/time must be well formed. The
// returned map is keyed by wire field name and is empty for a valid
// record. Message stays optional; email and phone get no format check
// beyond presence.
func ValidateRecord(req CreateRequest) map[string]string {
	req = req.Normalize()
	details := make(map[string]string)

	if req.Name == "" {
		details["name"] = "is required"
	}
	if req.Email == "" {
		details["email"] = "is required"
	}
	if req.Phone == "" {
		details["phone"] = "is required"
	}
	if req.Area == "" {
		details["area"] = "is required"
	}

	switch {
	case req.Date == "":
		details["date"] = "is required"
	case !isWellFormedDate(req.Date):
		details["date"] = "invalid date"
	}

	switch {
	case req.Time == "":
		details["time"] = "is required"
	case !schedule.IsGridAligned(req.Time):
		details["time"] = "invalid time"
	}

	switch {
	case req.ServiceType == "":
		details["service_type"] = "is required"
	case !catalog.IsValid(req.ServiceType):
		details["service_type"] = "unknown service"
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

func isWellFormedDate(value string) bool {
	_, err := time.Parse("2006-01-02", value)
	return err == nil
}

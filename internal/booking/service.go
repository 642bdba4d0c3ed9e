package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tjanster-backend/internal/schedule"
)

var (
	ErrNotFound       = errors.New("booking not found")
	ErrSlotTaken      = errors.New("slot already taken")
	ErrSlotNotAllowed = errors.New("slot outside operating hours")
	ErrDatePast       = errors.New("date in the past")
	ErrEmptyReason    = errors.New("decline reason required")
	ErrTerminalStatus = errors.New("booking already resolved")
)

// BlockSource yields the slots an admin has blocked on a date.
type BlockSource interface {
	OccupiedSlots(ctx context.Context, date string) (map[string]bool, error)
}

type Notifier interface {
	SendBookingReceived(ctx context.Context, b Booking) (string, error)
	SendBookingConfirmation(ctx context.Context, b Booking) (string, error)
	SendBookingDeclined(ctx context.Context, b Booking) (string, error)
	SendBookingChanged(ctx context.Context, b Booking) (string, error)
}

type Service struct {
	repo     Repository
	blocks   BlockSource
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
}

func NewService(repo Repository, blockSource BlockSource, notifier Notifier, loc *time.Location) *Service {
	return &Service{
		repo:     repo,
		blocks:   blockSource,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
	}
}

// Create stores a customer submission as PENDING. The slot is re-checked
// against current bookings and blocks right before the insert, and the
// store's partial unique index catches the race two submissions can
// still lose against each other.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Booking, error) {
	req = req.Normalize()
	now := s.now().In(s.loc)

	past, err := schedule.IsDatePast(req.Date, s.loc, now)
	if err != nil {
		return Booking{}, err
	}
	if past {
		return Booking{}, ErrDatePast
	}

	allowed, err := schedule.IsSlotAllowed(req.Date, req.Time, s.loc)
	if err != nil {
		return Booking{}, err
	}
	if !allowed {
		return Booking{}, ErrSlotNotAllowed
	}

	booked, err := s.repo.BookedTimes(ctx, req.Date, req.ServiceType)
	if err != nil {
		return Booking{}, err
	}
	if schedule.OccupiedSet(booked)[req.Time] {
		return Booking{}, ErrSlotTaken
	}

	blocked, err := s.blocks.OccupiedSlots(ctx, req.Date)
	if err != nil {
		return Booking{}, err
	}
	if blocked[req.Time] {
		return Booking{}, ErrSlotTaken
	}

	b := Booking{
		ID:          primitive.NewObjectID().Hex(),
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Area:        req.Area,
		Message:     req.Message,
		Date:        req.Date,
		Time:        req.Time,
		ServiceType: req.ServiceType,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Booking{}, ErrSlotTaken
		}
		return Booking{}, err
	}

	return b, nil
}

func (s *Service) Get(ctx context.Context, id string) (Booking, error) {
	b, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}
	return b, nil
}

// Approve moves a pending booking to approved. Re-approving an approved
// booking is a no-op, reported through changed=false so the caller can
// skip the notification. Approving a declined booking is an error:
// terminal statuses are never reversed.
func (s *Service) Approve(ctx context.Context, id string) (Booking, bool, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return Booking{}, false, err
	}

	switch b.Status {
	case StatusApproved:
		return b, false, nil
	case StatusDeclined:
		return Booking{}, false, ErrTerminalStatus
	}

	updated, err := s.repo.UpdateStatus(ctx, b.ID, StatusApproved, "", s.now().In(s.loc))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, false, ErrNotFound
		}
		return Booking{}, false, err
	}
	return updated, true, nil
}

// Decline requires a non-empty reason; an empty one must not mutate the
// record.
func (s *Service) Decline(ctx context.Context, id, reason string) (Booking, bool, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Booking{}, false, ErrEmptyReason
	}

	b, err := s.Get(ctx, id)
	if err != nil {
		return Booking{}, false, err
	}

	switch b.Status {
	case StatusDeclined:
		return b, false, nil
	case StatusApproved:
		return Booking{}, false, ErrTerminalStatus
	}

	updated, err := s.repo.UpdateStatus(ctx, b.ID, StatusDeclined, reason, s.now().In(s.loc))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, false, ErrNotFound
		}
		return Booking{}, false, err
	}
	return updated, true, nil
}

// Edit overwrites date, time and message regardless of status. It checks
// that the new values are well formed and on the grid, but deliberately
// does not re-check availability: an admin moving a booking can
// double-book, and resolving that stays a human decision.
func (s *Service) Edit(ctx context.Context, id string, req EditRequest) (Booking, error) {
	date := strings.TrimSpace(req.Date)
	slot := schedule.NormalizeSlot(req.Time)
	message := strings.TrimSpace(req.Message)

	if _, err := schedule.ParseDate(date, s.loc); err != nil {
		return Booking{}, err
	}
	allowed, err := schedule.IsSlotAllowed(date, slot, s.loc)
	if err != nil {
		return Booking{}, err
	}
	if !allowed {
		return Booking{}, ErrSlotNotAllowed
	}

	updated, err := s.repo.UpdateSchedule(ctx, strings.TrimSpace(id), date, slot, message, s.now().In(s.loc))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Booking{}, ErrNotFound
		}
		return Booking{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, strings.TrimSpace(id))
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// Pending is the admin review queue, oldest date first.
func (s *Service) Pending(ctx context.Context) ([]Booking, error) {
	return s.repo.List(ctx, ListFilter{Status: StatusPending}, 0)
}

// ForDate lists a day's non-declined bookings in slot order.
func (s *Service) ForDate(ctx context.Context, date string) ([]Booking, error) {
	return s.repo.List(ctx, ListFilter{Date: date, ExcludeDeclined: true}, 0)
}

// Upcoming previews the next non-declined bookings from today onward.
func (s *Service) Upcoming(ctx context.Context, limit int64) ([]Booking, error) {
	from := s.now().In(s.loc).Format("2006-01-02")
	return s.repo.List(ctx, ListFilter{FromDate: from, ExcludeDeclined: true}, limit)
}

// Notification sends are best-effort: a failure is the caller's to log,
// never a reason to roll back the status change that triggered it.

func (s *Service) NotifyReceived(ctx context.Context, b Booking) error {
	if s.notifier == nil {
		return nil
	}
	_, err := s.notifier.SendBookingReceived(ctx, b)
	return err
}

func (s *Service) NotifyApproved(ctx context.Context, b Booking) error {
	if s.notifier == nil {
		return nil
	}
	_, err := s.notifier.SendBookingConfirmation(ctx, b)
	return err
}

func (s *Service) NotifyDeclined(ctx context.Context, b Booking) error {
	if s.notifier == nil {
		return nil
	}
	_, err := s.notifier.SendBookingDeclined(ctx, b)
	return err
}

func (s *Service) NotifyChanged(ctx context.Context, b Booking) error {
	if s.notifier == nil {
		return nil
	}
	_, err := s.notifier.SendBookingChanged(ctx, b)
	return err
}

package availability

import (
	"context"
	"log/slog"
	"time"

	"tjanster-backend/internal/schedule"
)

// BookingSource reads slot occupancy out of the booking store. Declined
// bookings never count.
type BookingSource interface {
	BookedTimes(ctx context.Context, date, serviceType string) ([]string, error)
	PendingDates(ctx context.Context, from, to string) ([]string, error)
}

// BlockSource reads admin blocks, pre-expanded to slot sets.
type BlockSource interface {
	OccupiedSlots(ctx context.Context, date string) (map[string]bool, error)
	OccupiedByDate(ctx context.Context, from, to string) (map[string]map[string]bool, error)
}

// DaySummary is one calendar cell: whether anything awaits review and
// which slots an admin has taken off the grid.
type DaySummary struct {
	Date         string   `json:"date"`
	HasPending   bool     `json:"has_pending"`
	BlockedSlots []string `json:"blocked_slots"`
}

type Service struct {
	bookings BookingSource
	blocks   BlockSource
	log      *slog.Logger
	loc      *time.Location
}

func NewService(bookings BookingSource, blocks BlockSource, log *slog.Logger, loc *time.Location) *Service {
	return &Service{
		bookings: bookings,
		blocks:   blocks,
		log:      log,
		loc:      loc,
	}
}

// Slots resolves the free slots for a date and service: the day's grid
// minus booked slots minus blocked slots, in grid order. A failed store
// read degrades to an empty slot set with degraded=true instead of an
// error, so the booking form renders "fully booked" rather than a crash.
func (s *Service) Slots(ctx context.Context, date, serviceType string) ([]string, bool, error) {
	grid, err := schedule.GenerateSlots(date, s.loc)
	if err != nil {
		return nil, false, err
	}

	booked, err := s.bookings.BookedTimes(ctx, date, serviceType)
	if err != nil {
		s.log.Warn("availability slots: degraded read",
			slog.String("date", date),
			slog.String("service_type", serviceType),
			slog.String("error", err.Error()),
		)
		return []string{}, true, nil
	}

	blocked, err := s.blocks.OccupiedSlots(ctx, date)
	if err != nil {
		s.log.Warn("availability slots: degraded read",
			slog.String("date", date),
			slog.String("service_type", serviceType),
			slog.String("error", err.Error()),
		)
		return []string{}, true, nil
	}

	free := schedule.Available(grid, schedule.OccupiedSet(booked), blocked)
	return free, false, nil
}

// Calendar summarizes a date range for the admin overview: one entry per
// day in order, each with its pending flag and blocked slot list.
func (s *Service) Calendar(ctx context.Context, from, to string) ([]DaySummary, error) {
	start, err := schedule.ParseDate(from, s.loc)
	if err != nil {
		return nil, err
	}
	end, err := schedule.ParseDate(to, s.loc)
	if err != nil {
		return nil, err
	}

	pendingDates, err := s.bookings.PendingDates(ctx, from, to)
	if err != nil {
		return nil, err
	}
	pending := make(map[string]bool, len(pendingDates))
	for _, d := range pendingDates {
		pending[d] = true
	}

	blockedByDate, err := s.blocks.OccupiedByDate(ctx, from, to)
	if err != nil {
		return nil, err
	}

	var out []DaySummary
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")

		grid, err := schedule.GenerateSlots(date, s.loc)
		if err != nil {
			return nil, err
		}
		blocked := make([]string, 0)
		for _, slot := range grid {
			if blockedByDate[date][slot] {
				blocked = append(blocked, slot)
			}
		}

		out = append(out, DaySummary{
			Date:         date,
			HasPending:   pending[date],
			BlockedSlots: blocked,
		})
	}
	return out, nil
}

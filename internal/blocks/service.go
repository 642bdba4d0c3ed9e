package blocks

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
	ErrNotFound      = errors.New("block not found")
	ErrInvalidRange  = errors.New("start time must be before end time")
	ErrNotGridTime   = errors.New("times must fall on the half hour")
	ErrInvalidWindow = errors.New("end date must not precede the anchor date")
)

type Service struct {
	repo Repository
	loc  *time.Location
}

func NewService(repo Repository, loc *time.Location) *Service {
	return &Service{repo: repo, loc: loc}
}

// Create validates and stores a block. An invalid time range is rejected
// here rather than silently expanding to nothing later. A recurring
// request without both a weekday selector and an end date is stored as a
// one-off block at its anchor date.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Block, error) {
	start := schedule.NormalizeSlot(req.StartTime)
	end := schedule.NormalizeSlot(req.EndTime)

	if err := schedule.ValidateRange(start, end); err != nil {
		if errors.Is(err, schedule.ErrInvalidRange) {
			return Block{}, ErrInvalidRange
		}
		return Block{}, ErrNotGridTime
	}

	kind := req.Kind
	if kind == "" {
		kind = KindOnce
	}

	dayOfWeek := req.DayOfWeek
	endDate := strings.TrimSpace(req.EndDate)
	if kind == KindRecurring && (dayOfWeek == nil || endDate == "") {
		kind = KindOnce
		dayOfWeek = nil
		endDate = ""
	}
	if kind == KindRecurring {
		anchor, err := schedule.ParseDate(req.Date, s.loc)
		if err != nil {
			return Block{}, err
		}
		until, err := schedule.ParseDate(endDate, s.loc)
		if err != nil {
			return Block{}, err
		}
		if until.Before(anchor) {
			return Block{}, ErrInvalidWindow
		}
	}

	now := time.Now().In(s.loc)
	block := Block{
		ID:        primitive.NewObjectID().Hex(),
		Date:      req.Date,
		StartTime: start,
		EndTime:   end,
		Reason:    strings.TrimSpace(req.Reason),
		Kind:      kind,
		DayOfWeek: dayOfWeek,
		EndDate:   endDate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, block); err != nil {
		return Block{}, err
	}
	return block, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Block, error) {
	req.StartTime = schedule.NormalizeSlot(req.StartTime)
	req.EndTime = schedule.NormalizeSlot(req.EndTime)
	req.Reason = strings.TrimSpace(req.Reason)

	if err := schedule.ValidateRange(req.StartTime, req.EndTime); err != nil {
		if errors.Is(err, schedule.ErrInvalidRange) {
			return Block{}, ErrInvalidRange
		}
		return Block{}, ErrNotGridTime
	}

	updated, err := s.repo.Update(ctx, strings.TrimSpace(id), req, time.Now().In(s.loc))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Block{}, ErrNotFound
		}
		return Block{}, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (Block, error) {
	b, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Block{}, ErrNotFound
		}
		return Block{}, err
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, strings.TrimSpace(id))
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *Service) List(ctx context.Context, from, to string) ([]Block, error) {
	return s.repo.ListForRange(ctx, from, to)
}

// OccupiedSlots expands every block occurrence on a single date into its
// slot set.
func (s *Service) OccupiedSlots(ctx context.Context, date string) (map[string]bool, error) {
	byDate, err := s.OccupiedByDate(ctx, date, date)
	if err != nil {
		return nil, err
	}
	if byDate[date] == nil {
		return map[string]bool{}, nil
	}
	return byDate[date], nil
}

// OccupiedByDate is the range form used by the admin calendar: one store
// query, then pure expansion per date.
func (s *Service) OccupiedByDate(ctx context.Context, from, to string) (map[string]map[string]bool, error) {
	items, err := s.repo.ListForRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	expanded := make([]schedule.Block, 0, len(items))
	for _, b := range items {
		expanded = append(expanded, schedule.Block{
			Date:      b.Date,
			Start:     b.StartTime,
			End:       b.EndTime,
			Recurring: b.Kind == KindRecurring,
			DayOfWeek: b.DayOfWeek,
			EndDate:   b.EndDate,
		})
	}

	return schedule.ExpandBlocks(expanded, from, to, s.loc)
}

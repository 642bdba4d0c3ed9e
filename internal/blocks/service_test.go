package blocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

type fakeRepo struct {
	blocks    map[string]Block
	deleteErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{blocks: make(map[string]Block)}
}

func (f *fakeRepo) Create(_ context.Context, b Block) error {
	f.blocks[b.ID] = b
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (Block, error) {
	b, ok := f.blocks[id]
	if !ok {
		return Block{}, mongo.ErrNoDocuments
	}
	return b, nil
}

func (f *fakeRepo) ListForRange(_ context.Context, from, to string) ([]Block, error) {
	var out []Block
	for _, b := range f.blocks {
		if b.Kind == KindRecurring {
			if b.Date <= to && b.EndDate >= from {
				out = append(out, b)
			}
			continue
		}
		if b.Date >= from && b.Date <= to {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, id string, req UpdateRequest, now time.Time) (Block, error) {
	b, ok := f.blocks[id]
	if !ok {
		return Block{}, mongo.ErrNoDocuments
	}
	b.StartTime = req.StartTime
	b.EndTime = req.EndTime
	b.Reason = req.Reason
	b.UpdatedAt = now
	f.blocks[id] = b
	return b, nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.blocks[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(f.blocks, id)
	return nil
}

func newTestService(repo *fakeRepo) *Service {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		panic(err)
	}
	return NewService(repo, loc)
}

func intPtr(v int) *int { return &v }

func TestCreateRejectsInvertedRange(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		Date:      "2025-06-09",
		StartTime: "18:00",
		EndTime:   "17:00",
	})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestCreateRejectsZeroWidthRange(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		Date:      "2025-06-09",
		StartTime: "18:00",
		EndTime:   "18:00",
	})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestCreateRejectsOffGridTimes(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		Date:      "2025-06-09",
		StartTime: "18:15",
		EndTime:   "19:00",
	})
	if !errors.Is(err, ErrNotGridTime) {
		t.Fatalf("expected ErrNotGridTime, got %v", err)
	}
}

func TestCreateNormalizesSecondsFormat(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	b, err := svc.Create(context.Background(), CreateRequest{
		Date:      "2025-06-09",
		StartTime: "18:00:00",
		EndTime:   "19:00:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.StartTime != "18:00" || b.EndTime != "19:00" {
		t.Fatalf("expected normalized times, got %q-%q", b.StartTime, b.EndTime)
	}
	if b.Kind != KindOnce {
		t.Fatalf("expected default kind %q, got %q", KindOnce, b.Kind)
	}
}

func TestCreateRecurringDegradesToOnce(t *testing.T) {
	svc := newTestService(newFakeRepo())

	// Recurring without an end date falls back to a one-off block.
	b, err := svc.Create(context.Background(), CreateRequest{
		Date:      "2025-06-09",
		StartTime: "18:00",
		EndTime:   "19:00",
		Kind:      KindRecurring,
		DayOfWeek: intPtr(1),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Kind != KindOnce {
		t.Fatalf("expected degrade to %q, got %q", KindOnce, b.Kind)
	}
	if b.DayOfWeek != nil || b.EndDate != "" {
		t.Fatalf("expected recurrence fields cleared, got %v %q", b.DayOfWeek, b.EndDate)
	}
}

func TestCreateRecurringRejectsEndBeforeAnchor(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		Date:      "2025-06-09",
		StartTime: "18:00",
		EndTime:   "19:00",
		Kind:      KindRecurring,
		DayOfWeek: intPtr(1),
		EndDate:   "2025-06-02",
	})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestOccupiedSlotsExpandsRange(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	if _, err := svc.Create(context.Background(), CreateRequest{
		Date:      "2025-06-09",
		StartTime: "18:00",
		EndTime:   "19:30",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	occupied, err := svc.OccupiedSlots(context.Background(), "2025-06-09")
	if err != nil {
		t.Fatalf("OccupiedSlots: %v", err)
	}
	want := []string{"18:00", "18:30", "19:00"}
	if len(occupied) != len(want) {
		t.Fatalf("expected %d slots, got %v", len(want), occupied)
	}
	for _, slot := range want {
		if !occupied[slot] {
			t.Fatalf("expected %s occupied, got %v", slot, occupied)
		}
	}
	if occupied["19:30"] {
		t.Fatal("end slot must stay free")
	}
}

func TestOccupiedSlotsEmptyDate(t *testing.T) {
	svc := newTestService(newFakeRepo())

	occupied, err := svc.OccupiedSlots(context.Background(), "2025-06-10")
	if err != nil {
		t.Fatalf("OccupiedSlots: %v", err)
	}
	if len(occupied) != 0 {
		t.Fatalf("expected empty set, got %v", occupied)
	}
}

func TestOccupiedByDateRecurringWeekly(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	// Every Monday evening for four weeks.
	if _, err := svc.Create(context.Background(), CreateRequest{
		Date:      "2025-06-09",
		StartTime: "17:00",
		EndTime:   "18:00",
		Kind:      KindRecurring,
		DayOfWeek: intPtr(1),
		EndDate:   "2025-06-30",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byDate, err := svc.OccupiedByDate(context.Background(), "2025-06-09", "2025-06-30")
	if err != nil {
		t.Fatalf("OccupiedByDate: %v", err)
	}

	for _, monday := range []string{"2025-06-09", "2025-06-16", "2025-06-23", "2025-06-30"} {
		if !byDate[monday]["17:00"] || !byDate[monday]["17:30"] {
			t.Fatalf("expected %s blocked, got %v", monday, byDate[monday])
		}
	}
	if len(byDate["2025-06-10"]) != 0 {
		t.Fatalf("expected Tuesday free, got %v", byDate["2025-06-10"])
	}
}

func TestUpdateRevalidatesRange(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	b, err := svc.Create(context.Background(), CreateRequest{
		Date:      "2025-06-09",
		StartTime: "18:00",
		EndTime:   "19:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Update(context.Background(), b.ID, UpdateRequest{
		StartTime: "19:00",
		EndTime:   "18:00",
	}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestDeleteMissingBlock(t *testing.T) {
	svc := newTestService(newFakeRepo())

	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package availability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"
)

type fakeBookings struct {
	booked  map[string][]string // date -> times
	pending []string
	err     error
}

func (f *fakeBookings) BookedTimes(_ context.Context, date, _ string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.booked[date], nil
}

func (f *fakeBookings) PendingDates(_ context.Context, _, _ string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pending, nil
}

type fakeBlocks struct {
	byDate map[string]map[string]bool
	err    error
}

func (f *fakeBlocks) OccupiedSlots(_ context.Context, date string) (map[string]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.byDate[date] == nil {
		return map[string]bool{}, nil
	}
	return f.byDate[date], nil
}

func (f *fakeBlocks) OccupiedByDate(_ context.Context, _, _ string) (map[string]map[string]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.byDate == nil {
		return map[string]map[string]bool{}, nil
	}
	return f.byDate, nil
}

func newTestService(bookings *fakeBookings, blocks *fakeBlocks) *Service {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		panic(err)
	}
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewService(bookings, blocks, log, loc)
}

func TestSlotsResolvesGridMinusBookedMinusBlocked(t *testing.T) {
	bookings := &fakeBookings{booked: map[string][]string{
		"2025-06-09": {"17:00"},
	}}
	blocks := &fakeBlocks{byDate: map[string]map[string]bool{
		"2025-06-09": {"18:00": true, "18:30": true},
	}}
	svc := newTestService(bookings, blocks)

	// Monday grid is 16:00..19:30.
	slots, degraded, err := svc.Slots(context.Background(), "2025-06-09", "hund")
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if degraded {
		t.Fatal("unexpected degraded read")
	}
	want := []string{"16:00", "16:30", "17:30", "19:00", "19:30"}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("expected %v, got %v", want, slots)
	}
}

func TestSlotsAreDeterministic(t *testing.T) {
	bookings := &fakeBookings{booked: map[string][]string{
		"2025-06-13": {"10:00", "15:30"},
	}}
	svc := newTestService(bookings, &fakeBlocks{})

	first, _, err := svc.Slots(context.Background(), "2025-06-13", "barn")
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	second, _, err := svc.Slots(context.Background(), "2025-06-13", "barn")
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical answers, got %v then %v", first, second)
	}
}

func TestSlotsInvalidDate(t *testing.T) {
	svc := newTestService(&fakeBookings{}, &fakeBlocks{})

	if _, _, err := svc.Slots(context.Background(), "junk", "hund"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestSlotsDegradesOnBookingReadFailure(t *testing.T) {
	bookings := &fakeBookings{err: errors.New("connection reset")}
	svc := newTestService(bookings, &fakeBlocks{})

	slots, degraded, err := svc.Slots(context.Background(), "2025-06-09", "hund")
	if err != nil {
		t.Fatalf("expected degradation, got error %v", err)
	}
	if !degraded {
		t.Fatal("expected degraded=true")
	}
	if len(slots) != 0 {
		t.Fatalf("expected empty slot set, got %v", slots)
	}
}

func TestSlotsDegradesOnBlockReadFailure(t *testing.T) {
	blocks := &fakeBlocks{err: errors.New("connection reset")}
	svc := newTestService(&fakeBookings{}, blocks)

	slots, degraded, err := svc.Slots(context.Background(), "2025-06-09", "hund")
	if err != nil {
		t.Fatalf("expected degradation, got error %v", err)
	}
	if !degraded {
		t.Fatal("expected degraded=true")
	}
	if len(slots) != 0 {
		t.Fatalf("expected empty slot set, got %v", slots)
	}
}

func TestCalendarSummaries(t *testing.T) {
	bookings := &fakeBookings{pending: []string{"2025-06-10"}}
	blocks := &fakeBlocks{byDate: map[string]map[string]bool{
		"2025-06-09": {"17:30": true, "16:00": true},
	}}
	svc := newTestService(bookings, blocks)

	days, err := svc.Calendar(context.Background(), "2025-06-09", "2025-06-11")
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}

	monday := days[0]
	if monday.Date != "2025-06-09" || monday.HasPending {
		t.Fatalf("unexpected monday summary %+v", monday)
	}
	// Blocked slots come back in grid order, not block order.
	if !reflect.DeepEqual(monday.BlockedSlots, []string{"16:00", "17:30"}) {
		t.Fatalf("expected grid-ordered blocked slots, got %v", monday.BlockedSlots)
	}

	tuesday := days[1]
	if !tuesday.HasPending {
		t.Fatalf("expected pending flag on %s", tuesday.Date)
	}
	if len(tuesday.BlockedSlots) != 0 {
		t.Fatalf("expected no blocks on %s, got %v", tuesday.Date, tuesday.BlockedSlots)
	}
}

func TestCalendarPropagatesReadErrors(t *testing.T) {
	bookings := &fakeBookings{err: errors.New("connection reset")}
	svc := newTestService(bookings, &fakeBlocks{})

	if _, err := svc.Calendar(context.Background(), "2025-06-09", "2025-06-11"); err == nil {
		t.Fatal("expected error to propagate")
	}
}

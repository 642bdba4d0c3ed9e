package validation

import "testing"

type blockTimes struct {
	StartTime string `json:"start_time" validate:"required,clock,slot30"`
	EndTime   string `json:"end_time" validate:"required,clock,slot30"`
}

func TestClockAcceptsSecondsFormat(t *testing.T) {
	v := New()

	// Stored rows carry "HH:MM:SS"; the tags must not reject them before
	// normalization runs.
	req := blockTimes{StartTime: "17:00:00", EndTime: "18:30:00"}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected seconds format to pass, got %v", err)
	}

	req = blockTimes{StartTime: "17:00", EndTime: "18:30"}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected plain format to pass, got %v", err)
	}
}

func TestSlot30RejectsOffGridTimes(t *testing.T) {
	v := New()

	req := blockTimes{StartTime: "17:15:00", EndTime: "18:30"}
	err := v.Struct(req)
	if err == nil {
		t.Fatal("expected off-grid time to fail")
	}
	details := v.ValidationErrors(err)
	if len(details) != 1 || details[0].Field() != "start_time" {
		t.Fatalf("expected one error on start_time, got %v", err)
	}
}

func TestClockRejectsGarbage(t *testing.T) {
	v := New()

	req := blockTimes{StartTime: "junk", EndTime: "18:30"}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected malformed time to fail")
	}
}

package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestValueExists(t *testing.T) {
	db := newSheetDB(t)
	seedSheet(t, db, "registration", [][]string{
		{"Full Name", "Email address"},
		{"Jane Doe", "jane@example.com"},
	})
	ctx := context.Background()

	cases := []struct {
		column, value string
		want          bool
	}{
		{"Email address", "jane@example.com", true},
		{"Email address", "john@example.com", false},
		{"Full Name", "Jane Doe", true},
		{"Nope Column", "anything", false},
	}
	for _, tc := range cases {
		got, err := ValueExists(ctx, db, "registration", tc.column, tc.value)
		if err != nil {
			t.Fatalf("ValueExists(%q, %q): %v", tc.column, tc.value, err)
		}
		if got != tc.want {
			t.Errorf("ValueExists(%q, %q) = %v; want %v", tc.column, tc.value, got, tc.want)
		}
	}
}

func TestIdempotency_Lifecycle(t *testing.T) {
	db := newSheetDB(t)
	ctx := context.Background()

	if _, err := GetIdempotency(ctx, db, "registration", "k1", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get before Create: err = %v; want ErrNotFound", err)
	}

	rec, err := CreateIdempotency(ctx, db, "registration", "k1", 7, 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.RowIndex != 7 || rec.Status != 201 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "registration", "k1", time.Now())
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("got %q; want %q", got.ID, rec.ID)
	}

	if _, err := CreateIdempotency(ctx, db, "registration", "k1", 8, 201, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate create: err = %v; want ErrDuplicate", err)
	}

	// Expired records read as absent.
	if _, err := GetIdempotency(ctx, db, "registration", "k1", time.Now().Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired lookup: err = %v; want ErrNotFound", err)
	}

	// Blank keys never match.
	if _, err := GetIdempotency(ctx, db, "registration", "  ", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank key: err = %v; want ErrNotFound", err)
	}
}

func TestAssignmentScore(t *testing.T) {
	db := newSheetDB(t)
	seedSheet(t, db, "msword1", [][]string{
		{"Email address", "Score"},
		{"jane@example.com", "8"},
		{"john@example.com", ""},
	})
	ctx := context.Background()

	s, err := AssignmentScore(ctx, db, "msword1", "jane@example.com")
	if err != nil {
		t.Fatalf("AssignmentScore: %v", err)
	}
	if s != "8" {
		t.Fatalf("score = %q; want 8", s)
	}

	if _, err := AssignmentScore(ctx, db, "msword1", "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound", err)
	}
}

func TestOverallScore(t *testing.T) {
	db := newSheetDB(t)
	seedSheet(t, db, "overall", [][]string{
		{"Full Name", "Email address", "Attendance", "sum", "total_score", "status"},
		{"Jane Doe", "jane@example.com", "40", "78", "100", "Eligible"},
	})
	ctx := context.Background()

	rec, err := OverallScore(ctx, db, "overall", "jane@example.com")
	if err != nil {
		t.Fatalf("OverallScore: %v", err)
	}
	if rec["status"] != "Eligible" || rec["sum"] != "78" {
		t.Fatalf("unexpected record: %v", rec)
	}

	if _, err := OverallScore(ctx, db, "overall", "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound", err)
	}
}

package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/docsanddecks/attendance-bot/internal/domain"
)

func newSheetDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("sheet_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := db.AutoMigrate(&domain.Worksheet{}, &domain.Cell{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedSheet creates a sheet and writes rows starting at row 1 (the header).
func seedSheet(t *testing.T, db *gorm.DB, name string, rows [][]string) {
	t.Helper()
	ctx := context.Background()
	if _, err := EnsureWorksheet(ctx, db, name); err != nil {
		t.Fatalf("EnsureWorksheet: %v", err)
	}
	for r, row := range rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			if err := UpdateCell(ctx, db, name, r+1, c+1, v); err != nil {
				t.Fatalf("UpdateCell(%d,%d): %v", r+1, c+1, err)
			}
		}
	}
}

func TestEnsureWorksheet_Idempotent(t *testing.T) {
	db := newSheetDB(t)
	ctx := context.Background()

	ws1, err := EnsureWorksheet(ctx, db, "participants")
	if err != nil {
		t.Fatalf("EnsureWorksheet: %v", err)
	}
	ws2, err := EnsureWorksheet(ctx, db, "participants")
	if err != nil {
		t.Fatalf("EnsureWorksheet (second): %v", err)
	}
	if ws1.ID != ws2.ID {
		t.Fatalf("second EnsureWorksheet created a new sheet: %s vs %s", ws1.ID, ws2.ID)
	}
}

func TestRowAndColValues_SparseDense(t *testing.T) {
	db := newSheetDB(t)
	seedSheet(t, db, "s", [][]string{
		{"No", "Full Name", "Email address", "Telegram ID"},
		{"1", "Jane Doe", "", "42"},
	})
	ctx := context.Background()

	header, err := HeaderRow(ctx, db, "s")
	if err != nil {
		t.Fatalf("HeaderRow: %v", err)
	}
	if len(header) != 4 || header[1] != "Full Name" {
		t.Fatalf("unexpected header: %v", header)
	}

	row, err := RowValues(ctx, db, "s", 2)
	if err != nil {
		t.Fatalf("RowValues: %v", err)
	}
	// Dense up to last non-empty col; the empty email cell reads as "".
	if len(row) != 4 || row[2] != "" || row[3] != "42" {
		t.Fatalf("unexpected row: %v", row)
	}

	col, err := ColValues(ctx, db, "s", 2)
	if err != nil {
		t.Fatalf("ColValues: %v", err)
	}
	if len(col) != 2 || col[0] != "Full Name" || col[1] != "Jane Doe" {
		t.Fatalf("unexpected col: %v", col)
	}
}

func TestCellValue_MissingReadsEmpty(t *testing.T) {
	db := newSheetDB(t)
	seedSheet(t, db, "s", [][]string{{"A"}})
	ctx := context.Background()

	v, err := CellValue(ctx, db, "s", 5, 5)
	if err != nil {
		t.Fatalf("CellValue: %v", err)
	}
	if v != "" {
		t.Fatalf("missing cell = %q; want empty", v)
	}

	if _, err := CellValue(ctx, db, "nope", 1, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing sheet err = %v; want ErrNotFound", err)
	}
}

func TestUpdateCell_UpsertAndWiden(t *testing.T) {
	db := newSheetDB(t)
	seedSheet(t, db, "s", [][]string{{"A", "B"}})
	ctx := context.Background()

	if err := UpdateCell(ctx, db, "s", 1, 2, "B2"); err != nil {
		t.Fatalf("UpdateCell overwrite: %v", err)
	}
	v, _ := CellValue(ctx, db, "s", 1, 2)
	if v != "B2" {
		t.Fatalf("cell = %q; want B2", v)
	}

	// A write beyond the current width widens the sheet.
	if err := UpdateCell(ctx, db, "s", 1, 7, "G"); err != nil {
		t.Fatalf("UpdateCell widen: %v", err)
	}
	n, err := ColCount(ctx, db, "s")
	if err != nil {
		t.Fatalf("ColCount: %v", err)
	}
	if n != 7 {
		t.Fatalf("ColCount = %d; want 7", n)
	}
}

func TestAppendRow_HeaderSchemaAndCreatedAt(t *testing.T) {
	db := newSheetDB(t)
	seedSheet(t, db, "registration", [][]string{
		{"Full Name", "Email address", "created_at"},
	})
	ctx := context.Background()
	now := time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC)

	row, err := AppendRow(ctx, db, "registration", map[string]string{
		"Full Name":     "Jane Doe",
		"Email address": "jane@example.com",
		"created_at":    "1999-01-01 00:00:00", // client value must be ignored
		"Unknown":       "dropped",
	}, now)
	if err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if row != 2 {
		t.Fatalf("row = %d; want 2", row)
	}

	got, _ := CellValue(ctx, db, "registration", 2, 3)
	if got != "2026-03-05 10:30:00" {
		t.Fatalf("created_at = %q; want server-assigned timestamp", got)
	}

	// Second append lands on the next row.
	row, err = AppendRow(ctx, db, "registration", map[string]string{"Full Name": "John Smith"}, now)
	if err != nil {
		t.Fatalf("AppendRow (second): %v", err)
	}
	if row != 3 {
		t.Fatalf("second row = %d; want 3", row)
	}
}

func TestAppendRow_NoHeader(t *testing.T) {
	db := newSheetDB(t)
	seedSheet(t, db, "empty", nil)

	if _, err := AppendRow(context.Background(), db, "empty", map[string]string{"A": "1"}, time.Now()); err == nil {
		t.Fatalf("expected error appending to a sheet without a header")
	}
}

func TestFindInColumn_FirstMatch(t *testing.T) {
	db := newSheetDB(t)
	seedSheet(t, db, "s", [][]string{
		{"Name"},
		{"x"},
		{"y"},
		{"x"},
	})
	ctx := context.Background()

	row, err := FindInColumn(ctx, db, "s", 1, "x")
	if err != nil {
		t.Fatalf("FindInColumn: %v", err)
	}
	if row != 2 {
		t.Fatalf("row = %d; want 2 (first match)", row)
	}

	if _, err := FindInColumn(ctx, db, "s", 1, "zzz"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound", err)
	}
}

func TestAllRecords(t *testing.T) {
	db := newSheetDB(t)
	seedSheet(t, db, "resources", [][]string{
		{"Title", "Link", "Location"},
		{"Slides", "https://example.com/slides", "Drive"},
		{"Notes", "https://example.com/notes", ""},
	})

	recs, err := AllRecords(context.Background(), db, "resources")
	if err != nil {
		t.Fatalf("AllRecords: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d; want 2", len(recs))
	}
	if recs[0]["Title"] != "Slides" || recs[0]["Location"] != "Drive" {
		t.Fatalf("unexpected first record: %v", recs[0])
	}
	if recs[1]["Location"] != "" {
		t.Fatalf("missing cell should read as empty, got %q", recs[1]["Location"])
	}
}

func TestHeaderIndex(t *testing.T) {
	header := []string{"No", "Full Name", " Email address ", "Telegram ID"}
	if i := HeaderIndex(header, "email address"); i != 3 {
		t.Fatalf("HeaderIndex(email address) = %d; want 3", i)
	}
	if i := HeaderIndex(header, "missing"); i != 0 {
		t.Fatalf("HeaderIndex(missing) = %d; want 0", i)
	}
}

// Package repo implements the data persistence layer for the worksheet-grid
// record store, backed by GORM. This file provides the grid primitives the
// rest of the application is written against: column/row/cell reads, cell
// upserts, header-schema row appends, sheet widening, and first-match column
// search. Addressing is 1-based and row 1 is the header row, mirroring the
// spreadsheet service this store stands in for.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - A missing worksheet yields ErrNotFound.
//   - A missing cell reads as "" (sparse grid), matching col_values/row_values
//     behavior of spreadsheet clients.
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docsanddecks/attendance-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// createdAtHeader is the header whose value the store assigns itself on
// appends, overriding anything the client supplied.
const createdAtHeader = "created_at"

// EnsureWorksheet returns the worksheet with the given name, creating an
// empty one when it does not exist yet.
func EnsureWorksheet(ctx context.Context, db *gorm.DB, name string) (*domain.Worksheet, error) {
	ws, err := getWorksheet(ctx, db, name)
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	ws = &domain.Worksheet{
		ID:        uuid.NewString(),
		Name:      name,
		Cols:      0,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ws).Error; err != nil {
		return nil, err
	}
	return ws, nil
}

// getWorksheet fetches a worksheet by name, or ErrNotFound.
func getWorksheet(ctx context.Context, db *gorm.DB, name string) (*domain.Worksheet, error) {
	var ws domain.Worksheet
	err := db.WithContext(ctx).Where("name = ?", name).First(&ws).Error
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// HeaderRow returns the header (row 1) of a sheet, up to the last non-empty
// cell. An empty sheet yields an empty slice.
func HeaderRow(ctx context.Context, db *gorm.DB, sheet string) ([]string, error) {
	return RowValues(ctx, db, sheet, 1)
}

// RowValues returns the values of one row, dense up to the last non-empty
// column. Missing cells read as "".
func RowValues(ctx context.Context, db *gorm.DB, sheet string, row int) ([]string, error) {
	ws, err := getWorksheet(ctx, db, sheet)
	if err != nil {
		return nil, err
	}
	var cells []domain.Cell
	err = db.WithContext(ctx).
		Where("worksheet_id = ? AND row = ?", ws.ID, row).
		Order("col ASC").
		Find(&cells).Error
	if err != nil {
		return nil, err
	}
	width := 0
	for _, c := range cells {
		if c.Col > width && c.Value != "" {
			width = c.Col
		}
	}
	out := make([]string, width)
	for _, c := range cells {
		if c.Col <= width {
			out[c.Col-1] = c.Value
		}
	}
	return out, nil
}

// ColValues returns the values of one column, dense up to the last non-empty
// row. Missing cells read as "".
func ColValues(ctx context.Context, db *gorm.DB, sheet string, col int) ([]string, error) {
	ws, err := getWorksheet(ctx, db, sheet)
	if err != nil {
		return nil, err
	}
	var cells []domain.Cell
	err = db.WithContext(ctx).
		Where("worksheet_id = ? AND col = ?", ws.ID, col).
		Order("row ASC").
		Find(&cells).Error
	if err != nil {
		return nil, err
	}
	height := 0
	for _, c := range cells {
		if c.Row > height && c.Value != "" {
			height = c.Row
		}
	}
	out := make([]string, height)
	for _, c := range cells {
		if c.Row <= height {
			out[c.Row-1] = c.Value
		}
	}
	return out, nil
}

// CellValue reads a single cell. Missing cells read as "".
func CellValue(ctx context.Context, db *gorm.DB, sheet string, row, col int) (string, error) {
	ws, err := getWorksheet(ctx, db, sheet)
	if err != nil {
		return "", err
	}
	var cell domain.Cell
	err = db.WithContext(ctx).
		Where("worksheet_id = ? AND row = ? AND col = ?", ws.ID, row, col).
		First(&cell).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cell.Value, nil
}

// UpdateCell writes a single cell, creating it when absent. The sheet's
// width grows when the write lands beyond the current last column. The write
// is a single upsert; the store offers no multi-cell transaction to callers.
func UpdateCell(ctx context.Context, db *gorm.DB, sheet string, row, col int, value string) error {
	if row < 1 || col < 1 {
		return errors.New("repo: cell addresses are 1-based")
	}
	ws, err := getWorksheet(ctx, db, sheet)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Cell{}).
			Where("worksheet_id = ? AND row = ? AND col = ?", ws.ID, row, col).
			Update("value", value)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			cell := &domain.Cell{
				ID:          uuid.NewString(),
				WorksheetID: ws.ID,
				Row:         row,
				Col:         col,
				Value:       value,
			}
			if err := tx.Create(cell).Error; err != nil {
				return err
			}
		}
		if col > ws.Cols {
			return tx.Model(&domain.Worksheet{}).
				Where("id = ?", ws.ID).
				Update("cols", col).Error
		}
		return nil
	})
}

// AddCols widens a sheet by n columns.
func AddCols(ctx context.Context, db *gorm.DB, sheet string, n int) error {
	if n <= 0 {
		return nil
	}
	ws, err := getWorksheet(ctx, db, sheet)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Model(&domain.Worksheet{}).
		Where("id = ?", ws.ID).
		Update("cols", ws.Cols+n).Error
}

// ColCount returns the current width of a sheet.
func ColCount(ctx context.Context, db *gorm.DB, sheet string) (int, error) {
	ws, err := getWorksheet(ctx, db, sheet)
	if err != nil {
		return 0, err
	}
	return ws.Cols, nil
}

// NumRows returns the index of the last row holding any value, 0 for an
// empty sheet.
func NumRows(ctx context.Context, db *gorm.DB, sheet string) (int, error) {
	ws, err := getWorksheet(ctx, db, sheet)
	if err != nil {
		return 0, err
	}
	var max sql.NullInt64
	err = db.WithContext(ctx).Model(&domain.Cell{}).
		Where("worksheet_id = ?", ws.ID).
		Select("MAX(row)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

// AppendRow appends one row matching the sheet's header schema. Values are
// taken from data by header name; the created_at column, when present in the
// header, is always assigned now in "2006-01-02 15:04:05" form regardless of
// any client-supplied value. The 1-based index of the new row is returned.
func AppendRow(ctx context.Context, db *gorm.DB, sheet string, data map[string]string, now time.Time) (int, error) {
	header, err := HeaderRow(ctx, db, sheet)
	if err != nil {
		return 0, err
	}
	if len(header) == 0 {
		return 0, errors.New("repo: sheet has no header row")
	}
	last, err := NumRows(ctx, db, sheet)
	if err != nil {
		return 0, err
	}
	row := last + 1
	for i, col := range header {
		var v string
		if col == createdAtHeader {
			v = now.Format("2006-01-02 15:04:05")
		} else {
			v = data[col]
		}
		if v == "" {
			continue
		}
		if err := UpdateCell(ctx, db, sheet, row, i+1, v); err != nil {
			return 0, err
		}
	}
	return row, nil
}

// FindInColumn returns the 1-based index of the first row whose cell in the
// given column equals value, or ErrNotFound.
func FindInColumn(ctx context.Context, db *gorm.DB, sheet string, col int, value string) (int, error) {
	ws, err := getWorksheet(ctx, db, sheet)
	if err != nil {
		return 0, err
	}
	var cell domain.Cell
	err = db.WithContext(ctx).
		Where("worksheet_id = ? AND col = ? AND value = ?", ws.ID, col, value).
		Order("row ASC").
		First(&cell).Error
	if err != nil {
		return 0, err
	}
	return cell.Row, nil
}

// AllRecords returns every data row of a sheet as a header-name→value map,
// in row order. Rows with no values are skipped.
func AllRecords(ctx context.Context, db *gorm.DB, sheet string) ([]map[string]string, error) {
	header, err := HeaderRow(ctx, db, sheet)
	if err != nil {
		return nil, err
	}
	last, err := NumRows(ctx, db, sheet)
	if err != nil {
		return nil, err
	}
	var records []map[string]string
	for row := 2; row <= last; row++ {
		values, err := RowValues(ctx, db, sheet, row)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(values) {
				rec[col] = values[i]
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// HeaderIndex returns the 1-based column index of a header name, matched
// case-insensitively after trimming, or 0 when the header is absent.
func HeaderIndex(header []string, name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i + 1
		}
	}
	return 0
}

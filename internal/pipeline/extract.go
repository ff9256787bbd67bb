package pipeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"climatemap/internal"
)

var ErrUnknownSheet = errors.New("unknown sheet")

// Workbook is an opened yearly workbook. Hash identifies its content and is
// the cache key for everything derived from it.
type Workbook struct {
	Hash string

	mu     sync.Mutex
	file   *excelize.File
	sheets []string
}

func ReadWorkbook(path string) (*Workbook, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	wb, err := OpenWorkbook(content)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return wb, nil
}

func OpenWorkbookReader(r io.Reader) (*Workbook, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return OpenWorkbook(content)
}

func OpenWorkbook(content []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	return &Workbook{
		Hash:   ContentHash(content),
		file:   f,
		sheets: f.GetSheetList(),
	}, nil
}

func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (w *Workbook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// SheetNames lists the monthly sheets in workbook order.
func (w *Workbook) SheetNames() []string {
	return slices.Clone(w.sheets)
}

func (w *Workbook) HasSheet(name string) bool {
	return slices.Contains(w.sheets, name)
}

// SheetCells returns the sheet as tagged cells. Rows keep their sheet
// position; empty rows come back as empty slices.
func (w *Workbook) SheetCells(sheet string) ([][]internal.Cell, error) {
	if !w.HasSheet(sheet) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSheet, sheet)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	out := make([][]internal.Cell, 0, len(rows))
	for r, row := range rows {
		cells := make([]internal.Cell, len(row))
		for c, raw := range row {
			cells[c] = w.cellAt(sheet, c+1, r+1, raw)
		}
		out = append(out, cells)
	}
	return out, nil
}

func (w *Workbook) cellAt(sheet string, col, row int, raw string) internal.Cell {
	if raw == "" {
		return internal.EmptyCell()
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return internal.StringCell(raw)
	}
	typ, err := w.file.GetCellType(sheet, name)
	if err != nil {
		return internal.StringCell(raw)
	}
	return tagCell(typ, raw)
}

// tagCell turns a raw cell value into a Cell. Numbers written without an
// explicit type attribute report CellTypeUnset, so those are parsed too.
func tagCell(typ excelize.CellType, raw string) internal.Cell {
	switch typ {
	case excelize.CellTypeBool:
		return internal.BoolCell(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return internal.NumberCell(v)
		}
		return internal.StringCell(raw)
	default:
		return internal.StringCell(raw)
	}
}

package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Workbook is the read-only view of a spreadsheet the extractor needs.
// Cell returns the raw stored value ("" for an empty cell), not the
// display-formatted one, so a fraction stored as 0.8523 comes back as "0.8523"
// even if the sheet shows "85.23%".
type Workbook interface {
	SheetNames() []string
	Cell(sheet, ref string) (string, error)
	Close() error
}

// IsSpreadsheet reports whether name has one of the accepted gradebook extensions.
func IsSpreadsheet(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xls", ".xlsx", ".xlsm":
		return true
	}
	return false
}

// OpenWorkbook picks a reader by extension.
func OpenWorkbook(path string) (Workbook, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
		return &excelizeWorkbook{f: f}, nil
	case ".xls":
		return openXLS(path)
	default:
		return nil, errors.Errorf("unsupported spreadsheet extension %q", ext)
	}
}

type excelizeWorkbook struct {
	f *excelize.File
}

func (w *excelizeWorkbook) SheetNames() []string { return w.f.GetSheetList() }

func (w *excelizeWorkbook) Cell(sheet, ref string) (string, error) {
	return w.f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
}

func (w *excelizeWorkbook) Close() error { return w.f.Close() }

// xlsWorkbook reads legacy BIFF workbooks. The parser panics on some corrupt
// inputs, so every entry point recovers into an error.
type xlsWorkbook struct {
	file   *os.File
	sheets map[string]*xls.WorkSheet
	names  []string
}

func openXLS(path string) (w *xlsWorkbook, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			w, err = nil, fmt.Errorf("parsing xls: %v", r)
		}
		if err != nil {
			f.Close()
		}
	}()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return nil, errors.New("no Workbook stream in file")
	}
	w = &xlsWorkbook{file: f, sheets: make(map[string]*xls.WorkSheet)}
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		w.sheets[sheet.Name] = sheet
		w.names = append(w.names, sheet.Name)
	}
	return w, nil
}

func (w *xlsWorkbook) SheetNames() []string { return w.names }

func (w *xlsWorkbook) Cell(sheet, ref string) (value string, err error) {
	ws, ok := w.sheets[sheet]
	if !ok {
		return "", errors.Errorf("sheet %s does not exist", sheet)
	}
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			value, err = "", fmt.Errorf("reading %s!%s: %v", sheet, ref, r)
		}
	}()
	if row-1 > int(ws.MaxRow) {
		return "", nil
	}
	r := xlsRow(ws, row-1)
	if r == nil {
		return "", nil
	}
	return xlsCellValue(r.Col(col - 1))
}

// xlsRow returns nil for a row with no records. WorkSheet.Row dereferences
// the missing row and panics instead.
func xlsRow(ws *xls.WorkSheet, i int) (r *xls.Row) {
	defer func() {
		if recover() != nil {
			r = nil
		}
	}()
	return ws.Row(i)
}

// xlsCellValue rejects the two renderings of the BIFF reader that do not
// carry the stored value: formula cells come back as the literal
// "FormulaCol", and numbers with a custom format come back as an RFC3339
// timestamp.
func xlsCellValue(raw string) (string, error) {
	if raw == xlsFormulaText {
		return "", errors.New("formula cells cannot be read from .xls gradebooks, save the file as .xlsx")
	}
	if _, err := time.Parse(time.RFC3339, raw); err == nil {
		return "", errors.Errorf("custom number format rendered the cell as the date %s, save the file as .xlsx", raw)
	}
	return raw, nil
}

const xlsFormulaText = "FormulaCol"

func (w *xlsWorkbook) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

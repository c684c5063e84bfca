package ingest

import (
	"fmt"
	"gradesync/database"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db
}

// memWorkbook is an in-memory Workbook: sheet -> cell ref -> raw value.
type memWorkbook struct {
	order []string
	cells map[string]map[string]string
}

func newMemWorkbook(sheets ...string) *memWorkbook {
	wb := &memWorkbook{order: sheets, cells: make(map[string]map[string]string)}
	for _, s := range sheets {
		wb.cells[s] = make(map[string]string)
	}
	return wb
}

func (w *memWorkbook) set(sheet, ref, value string) *memWorkbook {
	w.cells[sheet][ref] = value
	return w
}

func (w *memWorkbook) SheetNames() []string { return w.order }

func (w *memWorkbook) Cell(sheet, ref string) (string, error) {
	cells, ok := w.cells[sheet]
	if !ok {
		return "", fmt.Errorf("sheet %s does not exist", sheet)
	}
	return cells[ref], nil
}

func (w *memWorkbook) Close() error { return nil }

func extractorFor(wb Workbook) *GradebookExtractor {
	e := NewGradebookExtractor(DefaultTemplate)
	e.open = func(string) (Workbook, error) { return wb, nil }
	return e
}

// fixture describes a gradebook in the default template layout.
type fixture struct {
	course     string
	instructor string
	mean       float64
	avg        string
	grades     []string // "" for an ungraded row, S11 downwards
	names      []string // B10 downwards on the Names sheet
	ids        []int    // C10 downwards
}

func cmput301() fixture {
	f := fixture{course: "CMPUT 301", instructor: "Doe", mean: 0.8523, avg: "B+"}
	letters := []string{"A", "A-", "B+", "B", "B-", "C+"}
	for i := 0; i < 30; i++ {
		grade := letters[i%len(letters)]
		if i == 4 || i == 19 {
			grade = ""
		}
		f.grades = append(f.grades, grade)
		f.names = append(f.names, fmt.Sprintf("Student %02d", i+1))
		f.ids = append(f.ids, 1500100+i)
	}
	return f
}

// writeGradebook saves f as an .xlsx file in dir and returns its path.
func writeGradebook(t *testing.T, dir, name string, f fixture) string {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()

	gradeSheet := "Grades"
	require.NoError(t, book.SetSheetName("Sheet1", gradeSheet))
	require.NoError(t, book.SetCellValue(gradeSheet, "A1", "Final grades"))
	require.NoError(t, book.SetCellValue(gradeSheet, "B2", f.course))
	require.NoError(t, book.SetCellValue(gradeSheet, "B3", f.instructor))
	require.NoError(t, book.SetCellValue(gradeSheet, "R41", "Mean"))
	require.NoError(t, book.SetCellValue(gradeSheet, "R42", f.mean))
	require.NoError(t, book.SetCellValue(gradeSheet, "S42", f.avg))
	for i, g := range f.grades {
		if g == "" {
			continue
		}
		require.NoError(t, book.SetCellValue(gradeSheet, fmt.Sprintf("S%d", 11+i), g))
	}

	_, err := book.NewSheet("Names")
	require.NoError(t, err)
	for i, n := range f.names {
		require.NoError(t, book.SetCellValue("Names", fmt.Sprintf("B%d", 10+i), n))
		require.NoError(t, book.SetCellValue("Names", fmt.Sprintf("C%d", 10+i), f.ids[i]))
	}

	path := filepath.Join(dir, name)
	require.NoError(t, book.SaveAs(path))
	return path
}

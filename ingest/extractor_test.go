package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grade(s string) *string { return &s }

func TestPairRosterKeepsAlignment(t *testing.T) {
	slots := []rosterSlot{
		{grade: grade("A"), name: "alice", studentID: "1"},
		{grade: nil, name: "bob", studentID: "2"},
		{grade: grade("B"), name: "carol", studentID: "3"},
	}

	roster := pairRoster(slots)

	assert.Equal(t, []RosterEntry{
		{StudentID: "1", StudentName: "alice", LetterGrade: "A"},
		{StudentID: "3", StudentName: "carol", LetterGrade: "B"},
	}, roster)
}

func TestPairRosterStopsAtBlankName(t *testing.T) {
	slots := []rosterSlot{
		{grade: grade("A"), name: "alice", studentID: "1"},
		{grade: grade("B"), name: "", studentID: ""},
		{grade: grade("C"), name: "dave", studentID: "4"},
	}

	roster := pairRoster(slots)

	require.Len(t, roster, 1)
	assert.Equal(t, "alice", roster[0].StudentName)
}

func defaultMemWorkbook() *memWorkbook {
	return newMemWorkbook("Grades", "Names").
		set("Grades", "B2", "CMPUT 301").
		set("Grades", "B3", "Doe").
		set("Grades", "R42", "0.85234").
		set("Grades", "S42", "B+").
		set("Grades", "S11", "A").
		set("Grades", "S13", "B").
		set("Names", "B10", "alice").
		set("Names", "C10", "1001").
		set("Names", "B11", "bob").
		set("Names", "C11", "1002").
		set("Names", "B12", "carol").
		set("Names", "C12", "1003")
}

func TestExtractFromTemplateCells(t *testing.T) {
	rec, err := extractorFor(defaultMemWorkbook()).Extract("cmput301.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "CMPUT 301", rec.CourseName)
	assert.Equal(t, "Doe", rec.Instructor)
	assert.Equal(t, 85.23, rec.MeanPercentage)
	assert.Equal(t, "B+", rec.AvgLetterGrade)
	assert.Equal(t, []RosterEntry{
		{StudentID: "1001", StudentName: "alice", LetterGrade: "A"},
		{StudentID: "1003", StudentName: "carol", LetterGrade: "B"},
	}, rec.Roster)
}

func TestExtractFallsBackToSecondSheet(t *testing.T) {
	wb := newMemWorkbook("Grades", "Roster").
		set("Grades", "B2", "MATH 125").
		set("Grades", "B3", "Smith").
		set("Grades", "R42", "0.7").
		set("Grades", "S11", "C+").
		set("Roster", "B10", "erin").
		set("Roster", "C10", "2001")

	rec, err := extractorFor(wb).Extract("math125.xlsx")
	require.NoError(t, err)

	assert.Equal(t, 70.0, rec.MeanPercentage)
	assert.Equal(t, []RosterEntry{{StudentID: "2001", StudentName: "erin", LetterGrade: "C+"}}, rec.Roster)
}

func TestExtractWhitespaceNameEndsRoster(t *testing.T) {
	wb := defaultMemWorkbook().set("Names", "B11", "   ")

	rec, err := extractorFor(wb).Extract("cmput301.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []RosterEntry{{StudentID: "1001", StudentName: "alice", LetterGrade: "A"}}, rec.Roster)
}

func TestExtractMalformed(t *testing.T) {
	tests := []struct {
		name      string
		wb        *memWorkbook
		wantField string
	}{
		{
			name:      "missing course name",
			wb:        defaultMemWorkbook().set("Grades", "B2", "  "),
			wantField: "course_name",
		},
		{
			name:      "missing instructor",
			wb:        defaultMemWorkbook().set("Grades", "B3", ""),
			wantField: "instructor",
		},
		{
			name:      "mean is text",
			wb:        defaultMemWorkbook().set("Grades", "R42", "n/a"),
			wantField: "mean_fraction",
		},
		{
			name:      "mean out of range",
			wb:        defaultMemWorkbook().set("Grades", "R42", "3.2"),
			wantField: "record",
		},
		{
			name:      "graded student without id",
			wb:        defaultMemWorkbook().set("Names", "C10", ""),
			wantField: "record",
		},
		{
			name:      "no roster sheet",
			wb:        newMemWorkbook("Grades").set("Grades", "B2", "X").set("Grades", "B3", "Y").set("Grades", "R42", "0.5"),
			wantField: "names_sheet",
		},
		{
			name:      "empty workbook",
			wb:        newMemWorkbook(),
			wantField: "workbook",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractorFor(tt.wb).Extract("/inbox/broken.xlsx")

			var malformedErr *MalformedGradebookError
			require.ErrorAs(t, err, &malformedErr)
			assert.Equal(t, tt.wantField, malformedErr.Field)
			assert.Equal(t, "/inbox/broken.xlsx", malformedErr.Path)
		})
	}
}

func TestExtractUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.xlsx")
	require.NoError(t, os.WriteFile(corrupt, []byte("definitely not a zip archive"), 0o644))
	csv := filepath.Join(dir, "grades.csv")
	require.NoError(t, os.WriteFile(csv, []byte("a,b,c\n"), 0o644))

	for _, path := range []string{corrupt, csv, filepath.Join(dir, "missing.xlsx")} {
		_, err := NewGradebookExtractor(DefaultTemplate).Extract(path)

		var unreadable *UnreadableFileError
		assert.ErrorAs(t, err, &unreadable, path)
	}
}

func TestExtractRealWorkbook(t *testing.T) {
	path := writeGradebook(t, t.TempDir(), "1718000000_cmput301.xlsx", cmput301())

	rec, err := NewGradebookExtractor(DefaultTemplate).Extract(path)
	require.NoError(t, err)

	assert.Equal(t, "CMPUT 301", rec.CourseName)
	assert.Equal(t, "Doe", rec.Instructor)
	assert.Equal(t, 85.23, rec.MeanPercentage)
	assert.Equal(t, "B+", rec.AvgLetterGrade)
	require.Len(t, rec.Roster, 28)

	// rows 5 and 20 are ungraded; their neighbours keep their own grades
	assert.Equal(t, RosterEntry{StudentID: "1500103", StudentName: "Student 04", LetterGrade: "B"}, rec.Roster[3])
	assert.Equal(t, RosterEntry{StudentID: "1500105", StudentName: "Student 06", LetterGrade: "C+"}, rec.Roster[4])
	assert.Equal(t, RosterEntry{StudentID: "1500120", StudentName: "Student 21", LetterGrade: "B+"}, rec.Roster[18])
}

func TestExtractShortRoster(t *testing.T) {
	f := cmput301()
	f.names = f.names[:12]
	f.ids = f.ids[:12]
	path := writeGradebook(t, t.TempDir(), "short.xlsm", f)

	rec, err := NewGradebookExtractor(DefaultTemplate).Extract(path)
	require.NoError(t, err)

	// 12 named rows, one of them (row 5) ungraded
	assert.Len(t, rec.Roster, 11)
}

func TestMeanPercentageRounding(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{raw: "0.8523", want: 85.23},
		{raw: "0.85234", want: 85.23},
		{raw: "1", want: 100},
		{raw: "85.23%", want: 85.23},
	}
	for _, tt := range tests {
		wb := newMemWorkbook("Grades").set("Grades", "R42", tt.raw)
		got, err := meanPercentage(wb, "Grades", "R42")
		require.NoError(t, err, tt.raw)
		assert.InDelta(t, tt.want, got, 1e-9, tt.raw)
	}
}

func TestNormalizeStudentID(t *testing.T) {
	tests := map[string]string{
		"1234567":      "1234567",
		"1234567.0":    "1234567",
		"1.234567E+06": "1234567",
		"00042":        "00042",
		"ccid.smith":   "ccid.smith",
		"12.5":         "12.5",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeStudentID(in), in)
	}
}

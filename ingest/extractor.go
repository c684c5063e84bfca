package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// GradeRecord is everything one gradebook contributes to the store. It lives
// for a single ingestion attempt.
type GradeRecord struct {
	CourseName     string        `validate:"required"`
	Instructor     string        `validate:"required"`
	MeanPercentage float64       `validate:"gte=0,lte=100"`
	AvgLetterGrade string        `validate:"max=16"`
	Roster         []RosterEntry `validate:"dive"`
}

// RosterEntry is one graded student, in worksheet order.
type RosterEntry struct {
	StudentID   string `validate:"required"`
	StudentName string `validate:"required"`
	LetterGrade string `validate:"required,max=16"`
}

// GradebookExtractor reads gradebooks laid out according to a Template.
type GradebookExtractor struct {
	tpl      Template
	validate *validator.Validate
	open     func(path string) (Workbook, error)
}

func NewGradebookExtractor(tpl Template) *GradebookExtractor {
	return &GradebookExtractor{tpl: tpl, validate: newValidator(), open: OpenWorkbook}
}

// Extract opens path and pulls a GradeRecord out of it. It returns
// *UnreadableFileError when the file is not a spreadsheet and
// *MalformedGradebookError when the template does not fit.
func (e *GradebookExtractor) Extract(path string) (*GradeRecord, error) {
	wb, err := e.open(path)
	if err != nil {
		return nil, &UnreadableFileError{Path: path, Err: err}
	}
	defer wb.Close()

	rec, err := e.extract(wb)
	if err != nil {
		if m, ok := err.(*MalformedGradebookError); ok {
			m.Path = path
		}
		return nil, err
	}
	return rec, nil
}

func (e *GradebookExtractor) extract(wb Workbook) (*GradeRecord, error) {
	sheets := wb.SheetNames()
	if len(sheets) == 0 {
		return nil, malformed("workbook", "no worksheets")
	}
	mainSheet := sheets[0]

	courseName, err := requiredText(wb, mainSheet, e.tpl.CourseName, "course_name")
	if err != nil {
		return nil, err
	}
	instructor, err := requiredText(wb, mainSheet, e.tpl.Instructor, "instructor")
	if err != nil {
		return nil, err
	}
	mean, err := meanPercentage(wb, mainSheet, e.tpl.MeanFraction)
	if err != nil {
		return nil, err
	}
	avg, err := cellText(wb, mainSheet, e.tpl.AvgLetterGrade, "avg_letter_grade")
	if err != nil {
		return nil, err
	}

	grades, err := e.letterGrades(wb, mainSheet)
	if err != nil {
		return nil, err
	}
	namesSheet, err := e.namesSheet(sheets)
	if err != nil {
		return nil, err
	}
	slots, err := e.rosterSlots(wb, namesSheet, grades)
	if err != nil {
		return nil, err
	}

	rec := &GradeRecord{
		CourseName:     courseName,
		Instructor:     instructor,
		MeanPercentage: mean,
		AvgLetterGrade: avg,
		Roster:         pairRoster(slots),
	}
	if err := e.validate.Struct(rec); err != nil {
		return nil, malformed("record", "%v", err)
	}
	return rec, nil
}

// letterGrades reads the fixed grade range top-down. Empty cells are kept as
// nil so positions stay aligned with the roster sheet.
func (e *GradebookExtractor) letterGrades(wb Workbook, sheet string) ([]*string, error) {
	grades := make([]*string, 0, e.tpl.GradeRows)
	for i := 0; i < e.tpl.GradeRows; i++ {
		ref := e.tpl.GradeColumn + strconv.Itoa(e.tpl.GradeFirstRow+i)
		v, err := cellText(wb, sheet, ref, "letter_grade")
		if err != nil {
			return nil, err
		}
		if v == "" {
			grades = append(grades, nil)
			continue
		}
		grades = append(grades, &v)
	}
	return grades, nil
}

func (e *GradebookExtractor) namesSheet(sheets []string) (string, error) {
	for _, name := range sheets {
		if e.tpl.NamesSheet != "" && name == e.tpl.NamesSheet {
			return name, nil
		}
	}
	if len(sheets) < 2 {
		return "", malformed("names_sheet", "no %q sheet and no second worksheet", e.tpl.NamesSheet)
	}
	return sheets[1], nil
}

// rosterSlot pairs one letter grade with the roster row at the same offset.
type rosterSlot struct {
	grade     *string
	name      string
	studentID string
}

func (e *GradebookExtractor) rosterSlots(wb Workbook, sheet string, grades []*string) ([]rosterSlot, error) {
	slots := make([]rosterSlot, len(grades))
	for i, grade := range grades {
		row := strconv.Itoa(e.tpl.NamesFirstRow + i)
		name, err := cellText(wb, sheet, e.tpl.NameColumn+row, "student_name")
		if err != nil {
			return nil, err
		}
		sid, err := cellText(wb, sheet, e.tpl.StudentIDColumn+row, "student_id")
		if err != nil {
			return nil, err
		}
		slots[i] = rosterSlot{grade: grade, name: name, studentID: normalizeStudentID(sid)}
	}
	return slots, nil
}

// pairRoster walks the aligned slots: the first blank name ends the roster and
// an ungraded slot is dropped without disturbing the pairing of later rows.
func pairRoster(slots []rosterSlot) []RosterEntry {
	roster := make([]RosterEntry, 0, len(slots))
	for _, s := range slots {
		if s.name == "" {
			break
		}
		if s.grade == nil {
			continue
		}
		roster = append(roster, RosterEntry{StudentID: s.studentID, StudentName: s.name, LetterGrade: *s.grade})
	}
	return roster
}

func cellText(wb Workbook, sheet, ref, field string) (string, error) {
	v, err := wb.Cell(sheet, ref)
	if err != nil {
		return "", malformed(field, "reading %s!%s: %v", sheet, ref, err)
	}
	return strings.TrimSpace(v), nil
}

func requiredText(wb Workbook, sheet, ref, field string) (string, error) {
	v, err := cellText(wb, sheet, ref, field)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", malformed(field, "cell %s!%s is empty", sheet, ref)
	}
	return v, nil
}

// meanPercentage rounds the stored fraction to four places and then scales it
// to a percentage: 0.85234 -> 0.8523 -> 85.23.
func meanPercentage(wb Workbook, sheet, ref string) (float64, error) {
	raw, err := requiredText(wb, sheet, ref, "mean_fraction")
	if err != nil {
		return 0, err
	}
	fraction, err := parseFraction(raw)
	if err != nil {
		return 0, malformed("mean_fraction", "cell %s!%s holds %q, want a number", sheet, ref, raw)
	}
	return math.Round(fraction*1e4) / 100, nil
}

func parseFraction(raw string) (float64, error) {
	if strings.HasSuffix(raw, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "%")), 64)
		if err != nil {
			return 0, err
		}
		return pct / 100, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// normalizeStudentID turns numeric ids read back as floats ("1234567.0",
// "1.234567E+06") into their integer form. Ids typed as text are left alone.
func normalizeStudentID(raw string) string {
	if !strings.ContainsAny(raw, ".eE") {
		return raw
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= 1e15 {
		return raw
	}
	return strconv.FormatInt(int64(f), 10)
}

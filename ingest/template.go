package ingest

import (
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Template maps every extracted field to its fixed location in the workbook.
// The layout is a contract with whoever produces the spreadsheets.
type Template struct {
	// First worksheet
	CourseName     string `yaml:"course_name" validate:"required,cellref"`
	Instructor     string `yaml:"instructor" validate:"required,cellref"`
	MeanFraction   string `yaml:"mean_fraction" validate:"required,cellref"`
	AvgLetterGrade string `yaml:"avg_letter_grade" validate:"required,cellref"`
	GradeColumn    string `yaml:"grade_column" validate:"required,column"`
	GradeFirstRow  int    `yaml:"grade_first_row" validate:"min=1"`
	GradeRows      int    `yaml:"grade_rows" validate:"min=1,max=10000"`

	// Roster worksheet, looked up by name and otherwise taken as the second sheet
	NamesSheet      string `yaml:"names_sheet"`
	NameColumn      string `yaml:"name_column" validate:"required,column"`
	StudentIDColumn string `yaml:"student_id_column" validate:"required,column"`
	NamesFirstRow   int    `yaml:"names_first_row" validate:"min=1"`
}

// DefaultTemplate is the layout instructors currently distribute.
var DefaultTemplate = Template{
	CourseName:     "B2",
	Instructor:     "B3",
	MeanFraction:   "R42",
	AvgLetterGrade: "S42",
	GradeColumn:    "S",
	GradeFirstRow:  11,
	GradeRows:      30,

	NamesSheet:      "Names",
	NameColumn:      "B",
	StudentIDColumn: "C",
	NamesFirstRow:   10,
}

var (
	cellRefRegex = regexp.MustCompile(`^[A-Z]{1,3}[1-9][0-9]*$`)
	columnRegex  = regexp.MustCompile(`^[A-Z]{1,3}$`)
)

func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("cellref", func(fl validator.FieldLevel) bool {
		return cellRefRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("column", func(fl validator.FieldLevel) bool {
		return columnRegex.MatchString(fl.Field().String())
	})
	return validate
}

// Validate checks every coordinate of the template.
func (t Template) Validate() error {
	if err := newValidator().Struct(t); err != nil {
		return errors.Wrap(err, "invalid gradebook template")
	}
	return nil
}

// LoadTemplate reads a YAML template. Fields left out keep their
// DefaultTemplate value. An empty path returns DefaultTemplate.
func LoadTemplate(path string) (Template, error) {
	tpl := DefaultTemplate
	if path == "" {
		return tpl, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Template{}, errors.Wrap(err, "reading template")
	}
	if err := yaml.Unmarshal(raw, &tpl); err != nil {
		return Template{}, errors.Wrapf(err, "parsing template %s", path)
	}
	tpl.normalize()
	if err := tpl.Validate(); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

func (t *Template) normalize() {
	for _, s := range []*string{&t.CourseName, &t.Instructor, &t.MeanFraction, &t.AvgLetterGrade,
		&t.GradeColumn, &t.NameColumn, &t.StudentIDColumn} {
		*s = strings.ToUpper(strings.TrimSpace(*s))
	}
	t.NamesSheet = strings.TrimSpace(t.NamesSheet)
}

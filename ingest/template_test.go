package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplateIsValid(t *testing.T) {
	assert.NoError(t, DefaultTemplate.Validate())
}

func TestLoadTemplateEmptyPath(t *testing.T) {
	tpl, err := LoadTemplate("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplate, tpl)
}

func TestLoadTemplateOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
course_name: c2
grade_column: " t "
grade_rows: 45
names_sheet: Roster
`), 0o644))

	tpl, err := LoadTemplate(path)
	require.NoError(t, err)

	assert.Equal(t, "C2", tpl.CourseName)
	assert.Equal(t, "T", tpl.GradeColumn)
	assert.Equal(t, 45, tpl.GradeRows)
	assert.Equal(t, "Roster", tpl.NamesSheet)
	assert.Equal(t, DefaultTemplate.Instructor, tpl.Instructor)
	assert.Equal(t, DefaultTemplate.NamesFirstRow, tpl.NamesFirstRow)
}

func TestLoadTemplateRejectsBadCoordinates(t *testing.T) {
	tests := map[string]string{
		"row zero":         "mean_fraction: R0\n",
		"not a ref":        "instructor: hello world\n",
		"column with row":  "name_column: B10\n",
		"negative rows":    "grade_rows: -3\n",
		"not yaml mapping": "- just\n- a list\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "template.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			_, err := LoadTemplate(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadTemplateMissingFile(t *testing.T) {
	_, err := LoadTemplate(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "reading template")
}

package routers

import (
	"context"
	"encoding/json"
	"gradesync/database"
	"gradesync/ingest"
	"gradesync/models"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func seededDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	w := ingest.NewStoreWriter(db)
	ctx := context.Background()
	require.NoError(t, w.Persist(ctx, &ingest.GradeRecord{
		CourseName: "CMPUT 301", Instructor: "Doe", MeanPercentage: 85.23, AvgLetterGrade: "B+",
		Roster: []ingest.RosterEntry{
			{StudentID: "1002", StudentName: "bob", LetterGrade: "B"},
			{StudentID: "1001", StudentName: "alice", LetterGrade: "A"},
		},
	}))
	require.NoError(t, w.Persist(ctx, &ingest.GradeRecord{
		CourseName: "MATH 125", Instructor: "Smith", MeanPercentage: 70, AvgLetterGrade: "C+",
	}))
	require.NoError(t, db.Create(&models.ProcessedFile{
		Filename: "1718000000_cmput301.xlsx", ModifiedAt: 1718000000, ContentHash: "abc", ProcessedAt: time.Now().UTC(),
	}).Error)

	for i := 0; i < 25; i++ {
		require.NoError(t, db.Create(&models.ImportRun{
			RunID:     uuid.New(),
			StartedAt: time.Now().UTC().Add(-time.Duration(i) * 24 * time.Hour),
			Failures:  datatypes.JSON("[]"),
		}).Error)
	}
	return db
}

func get(t *testing.T, db *gorm.DB, url string) (int, envelope) {
	t.Helper()
	resp, err := NewApp(db).Test(httptest.NewRequest("GET", url, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestGetCourses(t *testing.T) {
	code, body := get(t, seededDB(t), "/api/courses")
	require.Equal(t, 200, code)
	assert.True(t, body.Status)

	var data struct {
		Courses []models.Course `json:"courses"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Len(t, data.Courses, 2)
	assert.Equal(t, "CMPUT 301", data.Courses[0].Name)
	assert.Equal(t, 85.23, data.Courses[0].MeanPercentage)
}

func TestGetCourseStudents(t *testing.T) {
	db := seededDB(t)
	var course models.Course
	require.NoError(t, db.Where("name = ?", "CMPUT 301").Take(&course).Error)

	code, body := get(t, db, "/api/courses/"+strconv.FormatUint(uint64(course.ID), 10)+"/students")
	require.Equal(t, 200, code)

	var data struct {
		Course   models.Course    `json:"course"`
		Students []models.Student `json:"students"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "Doe", data.Course.Instructor)
	require.Len(t, data.Students, 2)
	assert.Equal(t, "1001", data.Students[0].StudentID)
	assert.Equal(t, "A", *data.Students[0].LetterGrade)
}

func TestGetCourseStudentsErrors(t *testing.T) {
	db := seededDB(t)

	code, body := get(t, db, "/api/courses/999/students")
	assert.Equal(t, 404, code)
	assert.False(t, body.Status)
	assert.Equal(t, "Course not found!", body.Message)

	code, body = get(t, db, "/api/courses/abc/students")
	assert.Equal(t, 400, code)
	assert.Equal(t, "Invalid Course ID!", body.Message)
}

func TestGetProcessedFiles(t *testing.T) {
	code, body := get(t, seededDB(t), "/api/processed-files")
	require.Equal(t, 200, code)

	var data struct {
		Files []models.ProcessedFile `json:"files"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Len(t, data.Files, 1)
	assert.Equal(t, "1718000000_cmput301.xlsx", data.Files[0].Filename)
}

func TestGetRuns(t *testing.T) {
	db := seededDB(t)

	tests := []struct {
		url       string
		wantCode  int
		wantCount int
	}{
		{url: "/api/runs", wantCode: 200, wantCount: 20},
		{url: "/api/runs?limit=5", wantCode: 200, wantCount: 5},
		{url: "/api/runs?limit=100", wantCode: 200, wantCount: 25},
		{url: "/api/runs?today=true", wantCode: 200, wantCount: 1},
		{url: "/api/runs?limit=101", wantCode: 422},
		{url: "/api/runs?limit=0", wantCode: 422},
		{url: "/api/runs?today=maybe", wantCode: 422},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			code, body := get(t, db, tt.url)
			require.Equal(t, tt.wantCode, code)
			if tt.wantCode != 200 {
				assert.False(t, body.Status)
				return
			}
			var data struct {
				Runs []models.ImportRun `json:"runs"`
			}
			require.NoError(t, json.Unmarshal(body.Data, &data))
			assert.Len(t, data.Runs, tt.wantCount)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	code, body := get(t, seededDB(t), "/api/nope")
	assert.Equal(t, 404, code)
	assert.False(t, body.Status)
}

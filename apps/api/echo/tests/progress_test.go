package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
	emailsvc "github.com/trezcool/darasa/services/email"
	testutil "github.com/trezcool/darasa/tests"
)

func TestProgressAPI_RetrieveEnrollsLazily(t *testing.T) {
	crs := testutil.CreateCourse(t, crsRepo, "Lazy Enrol", true)

	req, rec := newRequest(http.MethodGet, "/v1/users/u1/progress/"+crs.ID)
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var prg progress.Record
	decodeBody(t, rec, &prg)
	assert.Equal(t, "u1", prg.UserID)
	assert.Equal(t, crs.ID, prg.CourseID)
	assert.Zero(t, prg.ProgressPercentage)
	assert.Equal(t, "Lazy Enrol", prg.CourseTitle)
}

func TestProgressAPI_RetrieveMissingCourse(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/v1/users/u1/progress/nope")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}

func TestProgressAPI_CompleteAndUncomplete(t *testing.T) {
	crs := testutil.CreateCourse(t, crsRepo, "Marking", true)
	l1 := testutil.CreateLesson(t, crsRepo, crs.ID, "One", 1, course.VideoContent("v1"))
	l2 := testutil.CreateLesson(t, crsRepo, crs.ID, "Two", 2, course.VideoContent("v2"))

	// total defaults to the course's lesson_count (2)
	body := marshallObj(t, echoapi.LessonMarkRequest{LessonID: l1.ID})
	req, rec := newRequest(http.MethodPost, "/v1/users/u2/progress/"+crs.ID+"/complete", body)
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var prg progress.Record
	decodeBody(t, rec, &prg)
	assert.Equal(t, 50, prg.ProgressPercentage)
	assert.Equal(t, l1.ID, prg.LastAccessedLessonID)

	// explicit total override
	total := 4
	body = marshallObj(t, echoapi.LessonMarkRequest{LessonID: l2.ID, TotalLessons: &total})
	req, rec = newRequest(http.MethodPost, "/v1/users/u2/progress/"+crs.ID+"/complete", body)
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &prg)
	assert.Equal(t, 50, prg.ProgressPercentage)
	assert.ElementsMatch(t, []string{l1.ID, l2.ID}, prg.CompletedLessonIDs)

	// uncomplete recomputes against the course count again
	body = marshallObj(t, echoapi.LessonMarkRequest{LessonID: l1.ID})
	req, rec = newRequest(http.MethodPost, "/v1/users/u2/progress/"+crs.ID+"/uncomplete", body)
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeBody(t, rec, &prg)
	assert.Equal(t, 50, prg.ProgressPercentage)
	assert.Equal(t, []string{l2.ID}, prg.CompletedLessonIDs)
}

func TestProgressAPI_CompletionEmail(t *testing.T) {
	crs := testutil.CreateCourse(t, crsRepo, "Finish Line", true)
	l1 := testutil.CreateLesson(t, crsRepo, crs.ID, "Only One", 1, course.VideoContent("v1"))

	before := len(emailsvc.SentMessages)

	// the single lesson takes grad1 to 100%
	body := marshallObj(t, echoapi.LessonMarkRequest{LessonID: l1.ID})
	req, rec := newRequest(http.MethodPost, "/v1/users/grad1/progress/"+crs.ID+"/complete", body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, emailsvc.SentMessages, before+1)
	msg := emailsvc.SentMessages[before]
	assert.Equal(t, "course-completed", msg.TemplateName)
	require.Len(t, msg.To, 1)
	assert.Equal(t, "zuri@example.com", msg.To[0].Address)
	assert.Contains(t, msg.TextContent, "Finish Line")

	// re-marking at 100% must not resend
	req, rec = newRequest(http.MethodPost, "/v1/users/grad1/progress/"+crs.ID+"/complete", body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, emailsvc.SentMessages, before+1)
}

func TestProgressAPI_CompleteValidation(t *testing.T) {
	crs := testutil.CreateCourse(t, crsRepo, "Validation", true)

	req, rec := newRequest(http.MethodPost, "/v1/users/u3/progress/"+crs.ID+"/complete", []byte(`{}`))
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var fldErrs map[string]string
	decodeBody(t, rec, &fldErrs)
	assert.Contains(t, fldErrs, "lesson_id")
}

func TestProgressAPI_UncompleteMissingRecord(t *testing.T) {
	crs := testutil.CreateCourse(t, crsRepo, "No Record", true)

	body := marshallObj(t, echoapi.LessonMarkRequest{LessonID: "l1"})
	req, rec := newRequest(http.MethodPost, "/v1/users/u4/progress/"+crs.ID+"/uncomplete", body)
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	var herr httpErr
	decodeBody(t, rec, &herr)
	assert.Equal(t, "progress record not found", herr.Error)
}

func TestProgressAPI_LastAccessedAndQuery(t *testing.T) {
	crs := testutil.CreateCourse(t, crsRepo, "Pointer", true)
	testutil.CreateProgress(t, prgRepo, "u5", crs.ID, []string{}, "")

	body := marshallObj(t, echoapi.LastAccessedRequest{LessonID: "l7"})
	req, rec := newRequest(http.MethodPut, "/v1/users/u5/progress/"+crs.ID+"/last-accessed", body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	req, rec = newRequest(http.MethodGet, "/v1/users/u5/progress")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var recs []progress.Record
	decodeBody(t, rec, &recs)
	require.Len(t, recs, 1)
	assert.Equal(t, "l7", recs[0].LastAccessedLessonID)
}

func TestProgressAPI_Unenroll(t *testing.T) {
	crs := testutil.CreateCourse(t, crsRepo, "Unenroll", true)
	testutil.CreateProgress(t, prgRepo, "u6", crs.ID, []string{"l1"}, "l1")

	req, rec := newRequest(http.MethodDelete, "/v1/users/u6/progress/"+crs.ID)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	req, rec = newRequest(http.MethodGet, "/v1/users/u6/progress")
	app.ServeHTTP(rec, req)
	var recs []progress.Record
	decodeBody(t, rec, &recs)
	assert.Empty(t, recs)
}

package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

// brokenCourseSvc fails every operation with a fixed error.
type brokenCourseSvc struct {
	err error
}

var _ course.Service = (*brokenCourseSvc)(nil)

func (s *brokenCourseSvc) CreateCourse(ctx context.Context, nc course.NewCourse) (course.Course, error) {
	return course.Course{}, s.err
}
func (s *brokenCourseSvc) GetByID(ctx context.Context, id string) (course.Course, error) {
	return course.Course{}, s.err
}
func (s *brokenCourseSvc) Query(ctx context.Context, filter *course.QueryFilter) ([]course.Course, error) {
	return nil, s.err
}
func (s *brokenCourseSvc) Update(ctx context.Context, id string, uc course.UpdateCourse) (course.Course, error) {
	return course.Course{}, s.err
}
func (s *brokenCourseSvc) Delete(ctx context.Context, id string) error { return s.err }
func (s *brokenCourseSvc) CreateLesson(ctx context.Context, courseID string, nl course.NewLesson) (course.Lesson, error) {
	return course.Lesson{}, s.err
}
func (s *brokenCourseSvc) GetLesson(ctx context.Context, courseID, lessonID string) (course.Lesson, error) {
	return course.Lesson{}, s.err
}
func (s *brokenCourseSvc) QueryLessons(ctx context.Context, courseID string) ([]course.Lesson, error) {
	return nil, s.err
}
func (s *brokenCourseSvc) UpdateLesson(ctx context.Context, courseID, lessonID string, ul course.UpdateLesson) (course.Lesson, error) {
	return course.Lesson{}, s.err
}
func (s *brokenCourseSvc) DeleteLesson(ctx context.Context, courseID, lessonID string) error {
	return s.err
}

func newBrokenApp(t *testing.T, err error) echoapi.Server {
	t.Helper()

	db, dbErr := dummydb.Open()
	require.NoError(t, dbErr)
	logger := nopLogger{}

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	crsSvc := &brokenCourseSvc{err: err}
	prgSvc := progress.NewService(dummydb.NewProgressRepository(db), crsSvc, nil, nil, logger)

	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:           &core.Config{TestMode: true, AppName: "Darasa"},
		Logger:         logger,
		CourseSvc:      crsSvc,
		ProgressSvc:    prgSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
}

// storage taxonomy errors surface with their own status codes
func TestAPI_StorageErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"conflicting writes exhausted retries", errors.Wrap(core.ErrConflict, "could not serialize access"), http.StatusConflict},
		{"storage unreachable", errors.Wrap(core.ErrUnavailable, "connection failure"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := newBrokenApp(t, tt.err)

			req, rec := newRequest(http.MethodGet, "/v1/courses/crs1")
			broken.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			var herr httpErr
			decodeBody(t, rec, &herr)
			assert.Equal(t, errors.Cause(tt.err).Error(), herr.Error)
		})
	}
}

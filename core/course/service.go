package course

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrLessonNotFound = errors.New("lesson not found")

	nowFunc = time.Now // for tests
)

type (
	// Repository is the persistence contract for the course aggregate.
	// Implementations own atomicity: CreateLesson and DeleteLesson must
	// write the lesson and the course's lesson_count in one transaction,
	// and DeleteCourse must remove the course and all its lessons
	// all-or-nothing. Conflicting writers are retried by the store and
	// surface core.ErrConflict once the retry budget is exhausted.
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// QueryCourses returns courses newest first.
		QueryCourses(ctx context.Context, filter *QueryFilter) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, les Lesson) (Lesson, error)
		GetLesson(ctx context.Context, courseID, lessonID string) (Lesson, error)
		// QueryLessons returns the course's lessons in position order
		// (ascending order, ties broken by id).
		QueryLessons(ctx context.Context, courseID string) ([]Lesson, error)
		UpdateLesson(ctx context.Context, les Lesson) (Lesson, error)
		// DeleteLesson reports drifted=true when the stored lesson_count
		// was already at zero before the decrement (floored, not made
		// negative).
		DeleteLesson(ctx context.Context, courseID, lessonID string) (drifted bool, err error)
	}

	Service interface {
		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, courseID string, nl NewLesson) (Lesson, error)
		GetLesson(ctx context.Context, courseID, lessonID string) (Lesson, error)
		QueryLessons(ctx context.Context, courseID string) ([]Lesson, error)
		UpdateLesson(ctx context.Context, courseID, lessonID string, ul UpdateLesson) (Lesson, error)
		DeleteLesson(ctx context.Context, courseID, lessonID string) error
	}

	service struct {
		repo     Repository
		validate *validator.Validate
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate, logger core.Logger) Service {
	return &service{
		repo:     repo,
		validate: validate,
		logger:   logger,
	}
}

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}

	now := nowFunc().UTC()
	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		Instructor:  nc.Instructor,
		Category:    nc.Category,
		ImageURL:    nc.ImageURL,
		Hours:       nc.Hours,
		Published:   nc.Published,
		LessonCount: 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	orig, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = uc.Validate(orig, svc.validate); err != nil {
		return Course{}, err
	}

	crs := orig
	crs.Title = uc.Title
	if uc.Description != "" {
		crs.Description = uc.Description
	}
	if uc.Instructor != "" {
		crs.Instructor = uc.Instructor
	}
	if uc.Category != "" {
		crs.Category = uc.Category
	}
	if uc.ImageURL != "" {
		crs.ImageURL = uc.ImageURL
	}
	if uc.Hours != nil {
		crs.Hours = *uc.Hours
	}
	if uc.Published != nil {
		crs.Published = *uc.Published
	}
	crs.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *service) CreateLesson(ctx context.Context, courseID string, nl NewLesson) (Lesson, error) {
	if err := nl.Validate(svc.validate); err != nil {
		return Lesson{}, err
	}

	les := Lesson{
		CourseID:        courseID,
		Title:           nl.Title,
		Description:     nl.Description,
		Order:           nl.Order,
		Content:         nl.Content,
		DurationMinutes: nl.DurationMinutes,
		CreatedAt:       nowFunc().UTC(),
	}
	return svc.repo.CreateLesson(ctx, les)
}

func (svc *service) GetLesson(ctx context.Context, courseID, lessonID string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, courseID, lessonID)
}

func (svc *service) QueryLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, courseID)
}

func (svc *service) UpdateLesson(ctx context.Context, courseID, lessonID string, ul UpdateLesson) (Lesson, error) {
	orig, err := svc.repo.GetLesson(ctx, courseID, lessonID)
	if err != nil {
		return Lesson{}, err
	}
	if err = ul.Validate(orig, svc.validate); err != nil {
		return Lesson{}, err
	}

	les := orig
	les.Title = ul.Title
	if ul.Description != "" {
		les.Description = ul.Description
	}
	les.Order = ul.Order
	if ul.Content != nil {
		if err = svc.validate.Struct(ul.Content); err != nil {
			return Lesson{}, err
		}
		les.Content = *ul.Content
	}
	if ul.DurationMinutes != nil {
		les.DurationMinutes = *ul.DurationMinutes
	}
	return svc.repo.UpdateLesson(ctx, les)
}

func (svc *service) DeleteLesson(ctx context.Context, courseID, lessonID string) error {
	drifted, err := svc.repo.DeleteLesson(ctx, courseID, lessonID)
	if err != nil {
		return err
	}
	if drifted {
		// lesson_count hit the zero floor while a lesson document still
		// existed: a prior write broke the count invariant.
		err := errors.New("lesson_count drift detected")
		svc.logger.Error(fmt.Sprintf("internal consistency error on course %s: %v", courseID, err), err)
	}
	return nil
}

type QueryFilter struct {
	Published *bool `query:"published"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf == nil || qf.Published == nil
}

package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.NewString()
	repo.db.courses[crs.ID] = &crs
	repo.db.lessons[crs.ID] = make(map[string]*course.Lesson)
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		if !filter.IsEmpty() && crs.Published != *filter.Published {
			continue
		}
		courses = append(courses, *crs)
	}
	// newest first
	sort.Slice(courses, func(i, j int) bool {
		if !courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].CreatedAt.After(courses[j].CreatedAt)
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.courses[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	crs.LessonCount = orig.LessonCount // owned by lesson writes
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)
	delete(repo.db.lessons, id)
	return nil
}

func (repo *courseRepository) CreateLesson(ctx context.Context, les course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.courses[les.CourseID]
	if !ok {
		return course.Lesson{}, course.ErrNotFound
	}

	les.ID = uuid.NewString()
	repo.db.lessons[les.CourseID][les.ID] = &les
	crs.LessonCount++
	crs.UpdatedAt = les.CreatedAt
	return les, nil
}

func (repo *courseRepository) GetLesson(ctx context.Context, courseID, lessonID string) (course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if les, ok := repo.db.lessons[courseID][lessonID]; ok {
		return *les, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) QueryLessons(ctx context.Context, courseID string) ([]course.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if _, ok := repo.db.courses[courseID]; !ok {
		return nil, course.ErrNotFound
	}
	lessons := make([]course.Lesson, 0, len(repo.db.lessons[courseID]))
	for _, les := range repo.db.lessons[courseID] {
		lessons = append(lessons, *les)
	}
	course.SortLessons(lessons)
	return lessons, nil
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, les course.Lesson) (course.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[les.CourseID][les.ID]; !ok {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	repo.db.lessons[les.CourseID][les.ID] = &les
	return les, nil
}

func (repo *courseRepository) DeleteLesson(ctx context.Context, courseID, lessonID string) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.courses[courseID]
	if !ok {
		return false, course.ErrNotFound
	}
	if _, ok = repo.db.lessons[courseID][lessonID]; !ok {
		return false, course.ErrLessonNotFound
	}

	delete(repo.db.lessons[courseID], lessonID)
	var drifted bool
	if crs.LessonCount > 0 {
		crs.LessonCount--
	} else {
		drifted = true // floored at zero
	}
	crs.UpdatedAt = time.Now().UTC()
	return drifted, nil
}

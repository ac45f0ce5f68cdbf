package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
)

func CreateCourse(t *testing.T, repo course.Repository, title string, published bool) course.Course {
	tstamp := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:     title,
		Published: published,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateLesson(t *testing.T, repo course.Repository, courseID, title string, order int, content course.Content) course.Lesson {
	les, err := repo.CreateLesson(context.Background(), course.Lesson{
		CourseID:  courseID,
		Title:     title,
		Order:     order,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return les
}

func CreateProgress(t *testing.T, repo progress.Repository, userID, courseID string, completed []string, lastAccessed string) progress.Record {
	tstamp := time.Now().UTC()
	rec, err := repo.CreateProgress(context.Background(), progress.Record{
		UserID:               userID,
		CourseID:             courseID,
		CompletedLessonIDs:   completed,
		LastAccessedLessonID: lastAccessed,
		EnrolledAt:           tstamp,
		LastUpdatedAt:        tstamp,
	})
	if err != nil {
		t.Fatalf("CreateProgress() failed: %v", err)
	}
	return rec
}

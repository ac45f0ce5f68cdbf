// Package dummydb is an in-memory storage backend used in tests and local
// development. A single DB-wide mutex stands in for the SQL backend's
// transactions: every write that touches both a lesson and its course's
// lesson_count happens under one critical section.
package dummydb

import (
	"sync"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
)

type (
	DB struct {
		sync.RWMutex
		courses  map[string]*course.Course
		lessons  map[string]map[string]*course.Lesson // courseID -> lessonID -> lesson
		progress map[progressKey]*progress.Record
	}

	progressKey struct {
		userID   string
		courseID string
	}
)

func Open() (*DB, error) {
	db := &DB{
		courses:  make(map[string]*course.Course),
		lessons:  make(map[string]map[string]*course.Lesson),
		progress: make(map[progressKey]*progress.Record),
	}
	return db, nil
}

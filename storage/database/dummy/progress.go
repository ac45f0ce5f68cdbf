package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/darasa/core/progress"
)

var nowFunc = time.Now // for tests

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) GetProgress(ctx context.Context, userID, courseID string) (progress.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.progress[progressKey{userID, courseID}]; ok {
		return copyRecord(rec), nil
	}
	return progress.Record{}, progress.ErrNotFound
}

func (repo *progressRepository) QueryProgressByUser(ctx context.Context, userID string) ([]progress.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var recs []progress.Record
	for key, rec := range repo.db.progress {
		if key.userID == userID {
			recs = append(recs, copyRecord(rec))
		}
	}
	// most recently touched first
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].LastUpdatedAt.Equal(recs[j].LastUpdatedAt) {
			return recs[i].LastUpdatedAt.After(recs[j].LastUpdatedAt)
		}
		return recs[i].CourseID < recs[j].CourseID
	})
	return recs, nil
}

func (repo *progressRepository) CreateProgress(ctx context.Context, rec progress.Record) (progress.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := progressKey{rec.UserID, rec.CourseID}
	if existing, ok := repo.db.progress[key]; ok {
		return copyRecord(existing), nil
	}
	stored := copyRecord(&rec)
	repo.db.progress[key] = &stored
	return rec, nil
}

func (repo *progressRepository) MarkLessonComplete(ctx context.Context, seed progress.Record, lessonID string, totalLessons int) (progress.Record, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := progressKey{seed.UserID, seed.CourseID}
	rec, ok := repo.db.progress[key]
	if !ok {
		stored := copyRecord(&seed)
		rec = &stored
		repo.db.progress[key] = rec
	}
	changed := rec.Complete(lessonID, totalLessons, nowFunc())
	return copyRecord(rec), changed, nil
}

func (repo *progressRepository) MarkLessonIncomplete(ctx context.Context, userID, courseID, lessonID string, totalLessons int) (progress.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.progress[progressKey{userID, courseID}]
	if !ok {
		return progress.Record{}, progress.ErrNotFound
	}
	rec.Uncomplete(lessonID, totalLessons, nowFunc())
	return copyRecord(rec), nil
}

func (repo *progressRepository) UpdateLastAccessed(ctx context.Context, userID, courseID, lessonID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.progress[progressKey{userID, courseID}]
	if !ok {
		return nil // advisory pointer, nothing to point from
	}
	rec.LastAccessedLessonID = lessonID
	rec.LastUpdatedAt = nowFunc().UTC()
	return nil
}

func (repo *progressRepository) DeleteProgress(ctx context.Context, userID, courseID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.progress, progressKey{userID, courseID})
	return nil
}

// copyRecord deep-copies rec so callers never share the stored slice.
func copyRecord(rec *progress.Record) progress.Record {
	cp := *rec
	cp.CompletedLessonIDs = make([]string, len(rec.CompletedLessonIDs))
	copy(cp.CompletedLessonIDs, rec.CompletedLessonIDs)
	return cp
}

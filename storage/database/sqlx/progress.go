package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/storage/database"
)

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) progress.Repository {
	return &progressRepository{db: db}
}

type progressRow struct {
	UserID               string         `db:"user_id"`
	CourseID             string         `db:"course_id"`
	CompletedLessonIDs   pq.StringArray `db:"completed_lesson_ids"`
	ProgressPercentage   int            `db:"progress_percentage"`
	LastAccessedLessonID null.String    `db:"last_accessed_lesson_id"` // NULL until first access
	CourseTitle          string         `db:"course_title"`
	ImageURL             string         `db:"image_url"`
	EnrolledAt           time.Time      `db:"enrolled_at"`
	LastUpdatedAt        time.Time      `db:"last_updated_at"`
}

func (r progressRow) toRecord() progress.Record {
	return progress.Record{
		UserID:               r.UserID,
		CourseID:             r.CourseID,
		CompletedLessonIDs:   []string(r.CompletedLessonIDs),
		ProgressPercentage:   r.ProgressPercentage,
		LastAccessedLessonID: r.LastAccessedLessonID.String,
		CourseTitle:          r.CourseTitle,
		ImageURL:             r.ImageURL,
		EnrolledAt:           r.EnrolledAt.UTC(),
		LastUpdatedAt:        r.LastUpdatedAt.UTC(),
	}
}

func (repo *progressRepository) GetProgress(ctx context.Context, userID, courseID string) (progress.Record, error) {
	var row progressRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM progress WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		return progress.Record{}, trapNoRowsErr(err, progress.ErrNotFound, "getting progress")
	}
	return row.toRecord(), nil
}

func (repo *progressRepository) QueryProgressByUser(ctx context.Context, userID string) ([]progress.Record, error) {
	var rows []progressRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM progress WHERE user_id = $1 ORDER BY last_updated_at DESC, course_id`, userID)
	if err != nil {
		return nil, errors.Wrap(database.TranslateErr(err), "querying progress")
	}
	recs := make([]progress.Record, len(rows))
	for i, row := range rows {
		recs[i] = row.toRecord()
	}
	return recs, nil
}

func (repo *progressRepository) CreateProgress(ctx context.Context, rec progress.Record) (progress.Record, error) {
	// a concurrent enrolment wins silently; the stored row is returned either way
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO progress (user_id, course_id, completed_lesson_ids, progress_percentage, course_title, image_url, enrolled_at, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, course_id) DO NOTHING`,
		rec.UserID, rec.CourseID, pq.StringArray(rec.CompletedLessonIDs), rec.ProgressPercentage,
		rec.CourseTitle, rec.ImageURL, rec.EnrolledAt, rec.LastUpdatedAt,
	)
	if err != nil {
		return progress.Record{}, errors.Wrap(database.TranslateErr(err), "inserting progress")
	}
	return repo.GetProgress(ctx, rec.UserID, rec.CourseID)
}

func (repo *progressRepository) MarkLessonComplete(ctx context.Context, seed progress.Record, lessonID string, totalLessons int) (progress.Record, bool, error) {
	var (
		rec     progress.Record
		changed bool
	)
	err := database.RunSerializable(ctx, repo.db, func(tx *sqlx.Tx) error {
		cur, err := repo.getForUpdate(ctx, tx, seed.UserID, seed.CourseID)
		if errors.Cause(err) == progress.ErrNotFound {
			cur = seed
			err = nil
		}
		if err != nil {
			return err
		}
		changed = cur.Complete(lessonID, totalLessons, nowFunc())
		rec = cur
		return repo.upsert(ctx, tx, cur)
	})
	if err != nil {
		return progress.Record{}, false, errors.Wrap(err, "marking lesson complete")
	}
	return rec, changed, nil
}

func (repo *progressRepository) MarkLessonIncomplete(ctx context.Context, userID, courseID, lessonID string, totalLessons int) (progress.Record, error) {
	var rec progress.Record
	err := database.RunSerializable(ctx, repo.db, func(tx *sqlx.Tx) error {
		cur, err := repo.getForUpdate(ctx, tx, userID, courseID)
		if err != nil {
			return err
		}
		cur.Uncomplete(lessonID, totalLessons, nowFunc())
		rec = cur
		return repo.upsert(ctx, tx, cur)
	})
	if err != nil {
		if errors.Cause(err) == progress.ErrNotFound {
			return progress.Record{}, progress.ErrNotFound
		}
		return progress.Record{}, errors.Wrap(err, "marking lesson incomplete")
	}
	return rec, nil
}

func (repo *progressRepository) UpdateLastAccessed(ctx context.Context, userID, courseID, lessonID string) error {
	// single-statement, last write wins; no row means nothing to point from
	_, err := repo.db.ExecContext(ctx, `
		UPDATE progress SET last_accessed_lesson_id = $3, last_updated_at = $4
		WHERE user_id = $1 AND course_id = $2`,
		userID, courseID, lessonID, nowFunc().UTC(),
	)
	return errors.Wrap(database.TranslateErr(err), "updating last accessed lesson")
}

func (repo *progressRepository) DeleteProgress(ctx context.Context, userID, courseID string) error {
	_, err := repo.db.ExecContext(ctx,
		`DELETE FROM progress WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	return errors.Wrap(database.TranslateErr(err), "deleting progress")
}

func (repo *progressRepository) getForUpdate(ctx context.Context, tx *sqlx.Tx, userID, courseID string) (progress.Record, error) {
	var row progressRow
	err := tx.GetContext(ctx, &row,
		`SELECT * FROM progress WHERE user_id = $1 AND course_id = $2 FOR UPDATE`, userID, courseID)
	if err != nil {
		return progress.Record{}, trapNoRowsErr(err, progress.ErrNotFound, "getting progress")
	}
	return row.toRecord(), nil
}

func (repo *progressRepository) upsert(ctx context.Context, tx *sqlx.Tx, rec progress.Record) error {
	lastAccessed := null.NewString(rec.LastAccessedLessonID, rec.LastAccessedLessonID != "")
	_, err := tx.ExecContext(ctx, `
		INSERT INTO progress (user_id, course_id, completed_lesson_ids, progress_percentage, last_accessed_lesson_id, course_title, image_url, enrolled_at, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, course_id) DO UPDATE
		SET completed_lesson_ids = EXCLUDED.completed_lesson_ids,
		    progress_percentage = EXCLUDED.progress_percentage,
		    last_accessed_lesson_id = EXCLUDED.last_accessed_lesson_id,
		    last_updated_at = EXCLUDED.last_updated_at`,
		rec.UserID, rec.CourseID, pq.StringArray(rec.CompletedLessonIDs), rec.ProgressPercentage,
		lastAccessed, rec.CourseTitle, rec.ImageURL, rec.EnrolledAt, rec.LastUpdatedAt,
	)
	return err
}

package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/storage/database"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Instructor  string    `db:"instructor"`
	Category    string    `db:"category"`
	ImageURL    string    `db:"image_url"`
	Hours       int       `db:"hours"`
	Published   bool      `db:"published"`
	LessonCount int       `db:"lesson_count"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Instructor:  r.Instructor,
		Category:    r.Category,
		ImageURL:    r.ImageURL,
		Hours:       r.Hours,
		Published:   r.Published,
		LessonCount: r.LessonCount,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type lessonRow struct {
	ID              string    `db:"id"`
	CourseID        string    `db:"course_id"`
	Title           string    `db:"title"`
	Description     string    `db:"description"`
	Order           int       `db:"order"`
	Kind            string    `db:"kind"`
	VideoID         string    `db:"video_id"`
	EbookURL        string    `db:"ebook_url"`
	DurationMinutes int       `db:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at"`
}

func (r lessonRow) toLesson() course.Lesson {
	return course.Lesson{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		Order:       r.Order,
		Content: course.Content{
			Kind:     r.Kind,
			VideoID:  r.VideoID,
			EbookURL: r.EbookURL,
		},
		DurationMinutes: r.DurationMinutes,
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

const lessonColumns = `id, course_id, title, description, "order", kind, video_id, ebook_url, duration_minutes, created_at`

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.NewString()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO course (id, title, description, instructor, category, image_url, hours, published, lesson_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		crs.ID, crs.Title, crs.Description, crs.Instructor, crs.Category, crs.ImageURL,
		crs.Hours, crs.Published, crs.LessonCount, crs.CreatedAt, crs.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(database.TranslateErr(err), "inserting course")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter) ([]course.Course, error) {
	q := `SELECT * FROM course`
	args := make([]interface{}, 0, 1)
	if !filter.IsEmpty() {
		q += ` WHERE published = $1`
		args = append(args, *filter.Published)
	}
	q += ` ORDER BY created_at DESC, id`

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(database.TranslateErr(err), "querying courses")
	}
	courses := make([]course.Course, len(rows))
	for i, row := range rows {
		courses[i] = row.toCourse()
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	// lesson_count is owned by lesson writes and never set here
	res, err := repo.db.ExecContext(ctx, `
		UPDATE course
		SET title = $2, description = $3, instructor = $4, category = $5, image_url = $6,
		    hours = $7, published = $8, updated_at = $9
		WHERE id = $1`,
		crs.ID, crs.Title, crs.Description, crs.Instructor, crs.Category, crs.ImageURL,
		crs.Hours, crs.Published, crs.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(database.TranslateErr(err), "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourse(ctx, crs.ID)
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	// lessons go with the course via ON DELETE CASCADE
	err := database.RunSerializable(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return course.ErrNotFound
		}
		return nil
	})
	return errors.Wrap(err, "deleting course")
}

func (repo *courseRepository) CreateLesson(ctx context.Context, les course.Lesson) (course.Lesson, error) {
	les.ID = uuid.NewString()
	err := database.RunSerializable(ctx, repo.db, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT true FROM course WHERE id = $1`, les.CourseID); err != nil {
			return trapNoRowsErr(err, course.ErrNotFound, "checking course")
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO lesson (`+lessonColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			les.ID, les.CourseID, les.Title, les.Description, les.Order,
			les.Content.Kind, les.Content.VideoID, les.Content.EbookURL,
			les.DurationMinutes, les.CreatedAt,
		)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE course SET lesson_count = lesson_count + 1, updated_at = $2 WHERE id = $1`,
			les.CourseID, les.CreatedAt,
		)
		return err
	})
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return les, nil
}

func (repo *courseRepository) GetLesson(ctx context.Context, courseID, lessonID string) (course.Lesson, error) {
	var row lessonRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT `+lessonColumns+` FROM lesson WHERE course_id = $1 AND id = $2`, courseID, lessonID)
	if err != nil {
		return course.Lesson{}, trapNoRowsErr(err, course.ErrLessonNotFound, "getting lesson")
	}
	return row.toLesson(), nil
}

func (repo *courseRepository) QueryLessons(ctx context.Context, courseID string) ([]course.Lesson, error) {
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, `SELECT true FROM course WHERE id = $1`, courseID); err != nil {
		return nil, trapNoRowsErr(err, course.ErrNotFound, "checking course")
	}

	var rows []lessonRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT `+lessonColumns+` FROM lesson WHERE course_id = $1 ORDER BY "order", id`, courseID)
	if err != nil {
		return nil, errors.Wrap(database.TranslateErr(err), "querying lessons")
	}
	lessons := make([]course.Lesson, len(rows))
	for i, row := range rows {
		lessons[i] = row.toLesson()
	}
	return lessons, nil
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, les course.Lesson) (course.Lesson, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE lesson
		SET title = $3, description = $4, "order" = $5, kind = $6, video_id = $7, ebook_url = $8, duration_minutes = $9
		WHERE course_id = $1 AND id = $2`,
		les.CourseID, les.ID, les.Title, les.Description, les.Order,
		les.Content.Kind, les.Content.VideoID, les.Content.EbookURL, les.DurationMinutes,
	)
	if err != nil {
		return course.Lesson{}, errors.Wrap(database.TranslateErr(err), "updating lesson")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	return les, nil
}

func (repo *courseRepository) DeleteLesson(ctx context.Context, courseID, lessonID string) (bool, error) {
	var drifted bool
	err := database.RunSerializable(ctx, repo.db, func(tx *sqlx.Tx) error {
		var count int
		err := tx.GetContext(ctx, &count, `SELECT lesson_count FROM course WHERE id = $1`, courseID)
		if err != nil {
			return trapNoRowsErr(err, course.ErrNotFound, "checking course")
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM lesson WHERE course_id = $1 AND id = $2`, courseID, lessonID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return course.ErrLessonNotFound
		}

		drifted = count == 0 // decrement would go negative; floor instead
		_, err = tx.ExecContext(ctx,
			`UPDATE course SET lesson_count = GREATEST(lesson_count - 1, 0), updated_at = $2 WHERE id = $1`,
			courseID, nowFunc().UTC(),
		)
		return err
	})
	if err != nil {
		return false, errors.Wrap(err, "deleting lesson")
	}
	return drifted, nil
}

var nowFunc = time.Now // for tests

// trapNoRowsErr swaps sql.ErrNoRows for the domain's not-found sentinel and
// translates anything else.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(database.TranslateErr(err), msg)
}

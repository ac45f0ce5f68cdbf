package progress

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

var (
	// errors
	ErrNotFound = errors.New("progress record not found")

	nowFunc = time.Now // for tests
)

type (
	// Repository is the persistence contract for progress records.
	// MarkLessonComplete is an atomic read-modify-write that upserts the
	// seed record when none exists yet; implementations apply
	// Record.Complete / Record.Uncomplete inside their own transaction.
	// UpdateLastAccessed is deliberately non-transactional (last write
	// wins) and a no-op when the record does not exist.
	Repository interface {
		GetProgress(ctx context.Context, userID, courseID string) (Record, error)
		QueryProgressByUser(ctx context.Context, userID string) ([]Record, error)
		// CreateProgress inserts rec; if a concurrent writer got there
		// first the existing record is returned instead.
		CreateProgress(ctx context.Context, rec Record) (Record, error)
		MarkLessonComplete(ctx context.Context, seed Record, lessonID string, totalLessons int) (rec Record, changed bool, err error)
		MarkLessonIncomplete(ctx context.Context, userID, courseID, lessonID string, totalLessons int) (Record, error)
		UpdateLastAccessed(ctx context.Context, userID, courseID, lessonID string) error
		DeleteProgress(ctx context.Context, userID, courseID string) error
	}

	// UserDirectory resolves learner contact details. User management is
	// an external collaborator; only the lookup needed for notification
	// mails is modeled here.
	UserDirectory interface {
		GetUserEmail(ctx context.Context, userID string) (mail.Address, error)
	}

	Service interface {
		GetOrCreate(ctx context.Context, userID, courseID string) (Record, error)
		QueryByUser(ctx context.Context, userID string) ([]Record, error)
		MarkLessonComplete(ctx context.Context, userID, courseID, lessonID string, totalLessons int) (Record, error)
		MarkLessonIncomplete(ctx context.Context, userID, courseID, lessonID string, totalLessons int) (Record, error)
		UpdateLastAccessed(ctx context.Context, userID, courseID, lessonID string) error
		Delete(ctx context.Context, userID, courseID string) error
	}

	service struct {
		repo    Repository
		crsSvc  course.Service
		users   UserDirectory
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

// NewService wires the progress store. users and mailSvc may be nil; the
// completion email is then skipped.
func NewService(repo Repository, crsSvc course.Service, users UserDirectory, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{
		repo:    repo,
		crsSvc:  crsSvc,
		users:   users,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *service) GetOrCreate(ctx context.Context, userID, courseID string) (Record, error) {
	rec, err := svc.repo.GetProgress(ctx, userID, courseID)
	if err == nil {
		return rec, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Record{}, err
	}
	return svc.repo.CreateProgress(ctx, svc.newRecord(ctx, userID, courseID))
}

func (svc *service) QueryByUser(ctx context.Context, userID string) ([]Record, error) {
	return svc.repo.QueryProgressByUser(ctx, userID)
}

func (svc *service) MarkLessonComplete(ctx context.Context, userID, courseID, lessonID string, totalLessons int) (Record, error) {
	seed := svc.newRecord(ctx, userID, courseID)
	rec, changed, err := svc.repo.MarkLessonComplete(ctx, seed, lessonID, totalLessons)
	if err != nil {
		return Record{}, err
	}
	if changed && rec.ProgressPercentage == 100 {
		svc.sendCompletionMail(ctx, rec)
	}
	return rec, nil
}

func (svc *service) MarkLessonIncomplete(ctx context.Context, userID, courseID, lessonID string, totalLessons int) (Record, error) {
	return svc.repo.MarkLessonIncomplete(ctx, userID, courseID, lessonID, totalLessons)
}

func (svc *service) UpdateLastAccessed(ctx context.Context, userID, courseID, lessonID string) error {
	return svc.repo.UpdateLastAccessed(ctx, userID, courseID, lessonID)
}

func (svc *service) Delete(ctx context.Context, userID, courseID string) error {
	return svc.repo.DeleteProgress(ctx, userID, courseID)
}

// newRecord builds a fresh record for userID/courseID, denormalizing the
// course title/image when the course can be fetched; lookup failures only
// leave those fields empty.
func (svc *service) newRecord(ctx context.Context, userID, courseID string) Record {
	now := nowFunc().UTC()
	rec := Record{
		UserID:             userID,
		CourseID:           courseID,
		CompletedLessonIDs: []string{},
		ProgressPercentage: 0,
		EnrolledAt:         now,
		LastUpdatedAt:      now,
	}
	if svc.crsSvc != nil {
		if crs, err := svc.crsSvc.GetByID(ctx, courseID); err == nil {
			rec.CourseTitle = crs.Title
			rec.ImageURL = crs.ImageURL
		} else if errors.Cause(err) != course.ErrNotFound {
			svc.logger.Warn(fmt.Sprintf("denormalizing course %s onto progress record: %v", courseID, err), err)
		}
	}
	return rec
}

func (svc *service) sendCompletionMail(ctx context.Context, rec Record) {
	if svc.users == nil || svc.mailSvc == nil {
		return
	}
	addr, err := svc.users.GetUserEmail(ctx, rec.UserID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("resolving email for user %s: %v", rec.UserID, err), err)
		return
	}

	title := rec.CourseTitle
	if title == "" && svc.crsSvc != nil {
		if crs, err := svc.crsSvc.GetByID(ctx, rec.CourseID); err == nil {
			title = crs.Title
		}
	}
	if title == "" {
		title = rec.CourseID
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{addr},
		Subject:      "Course completed",
		TemplateName: "course-completed",
		TemplateData: struct{ CourseTitle string }{CourseTitle: title},
	})
}

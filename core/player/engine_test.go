package player_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/player"
	"github.com/trezcool/darasa/core/progress"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

// svcStub fakes the progress service with overridable behaviour.
type svcStub struct {
	rec     progress.Record
	markErr error
}

var _ progress.Service = (*svcStub)(nil)

func (s *svcStub) GetOrCreate(ctx context.Context, userID, courseID string) (progress.Record, error) {
	return s.rec, nil
}

func (s *svcStub) QueryByUser(ctx context.Context, userID string) ([]progress.Record, error) {
	return []progress.Record{s.rec}, nil
}

func (s *svcStub) MarkLessonComplete(ctx context.Context, userID, courseID, lessonID string, totalLessons int) (progress.Record, error) {
	if s.markErr != nil {
		return progress.Record{}, s.markErr
	}
	s.rec.Complete(lessonID, totalLessons, time.Now())
	return s.rec, nil
}

func (s *svcStub) MarkLessonIncomplete(ctx context.Context, userID, courseID, lessonID string, totalLessons int) (progress.Record, error) {
	s.rec.Uncomplete(lessonID, totalLessons, time.Now())
	return s.rec, nil
}

func (s *svcStub) UpdateLastAccessed(ctx context.Context, userID, courseID, lessonID string) error {
	return nil
}

func (s *svcStub) Delete(ctx context.Context, userID, courseID string) error {
	return nil
}

func videoLessons(ids ...string) []course.Lesson {
	lessons := make([]course.Lesson, len(ids))
	for i, id := range ids {
		lessons[i] = course.Lesson{ID: id, CourseID: "c1", Order: i + 1, Content: course.VideoContent("yt-" + id)}
	}
	return lessons
}

func newEngine(svc progress.Service) *player.Engine {
	return player.NewEngine(svc, nopLogger{}, "u1", "c1")
}

func currentID(t *testing.T, e *player.Engine) string {
	t.Helper()
	cur, ok := e.Current()
	if !ok {
		t.Fatalf("Current() not playing; state = %v", e.State())
	}
	return cur.ID
}

func TestEngine_LoadResumesFirstUncompleted(t *testing.T) {
	svc := &svcStub{rec: progress.Record{UserID: "u1", CourseID: "c1", CompletedLessonIDs: []string{"l1", "l2"}}}
	e := newEngine(svc)

	e.Load(videoLessons("l1", "l2", "l3", "l4", "l5"), svc.rec)
	defer e.Wait()

	if e.State() != player.StatePlaying {
		t.Fatalf("State() = %v; want %v", e.State(), player.StatePlaying)
	}
	if got := currentID(t, e); got != "l3" {
		t.Errorf("Current() = %s; want l3", got)
	}
	if e.ReviewMode() {
		t.Error("ReviewMode() = true; want false")
	}
}

func TestEngine_LoadResumesLastAccessed(t *testing.T) {
	svc := &svcStub{rec: progress.Record{
		UserID: "u1", CourseID: "c1",
		CompletedLessonIDs:   []string{"l1", "l2"},
		LastAccessedLessonID: "l2",
	}}
	e := newEngine(svc)

	e.Load(videoLessons("l1", "l2", "l3"), svc.rec)
	defer e.Wait()

	if got := currentID(t, e); got != "l2" {
		t.Errorf("Current() = %s; want last accessed l2", got)
	}
}

func TestEngine_LoadIgnoresDanglingLastAccessed(t *testing.T) {
	svc := &svcStub{rec: progress.Record{
		UserID: "u1", CourseID: "c1",
		CompletedLessonIDs:   []string{"l1"},
		LastAccessedLessonID: "deleted",
	}}
	e := newEngine(svc)

	e.Load(videoLessons("l1", "l2"), svc.rec)
	defer e.Wait()

	if got := currentID(t, e); got != "l2" {
		t.Errorf("Current() = %s; want l2", got)
	}
}

func TestEngine_LoadAllCompletedEntersReviewMode(t *testing.T) {
	svc := &svcStub{rec: progress.Record{
		UserID: "u1", CourseID: "c1",
		CompletedLessonIDs: []string{"l1", "l2"},
		ProgressPercentage: 100,
	}}
	e := newEngine(svc)

	e.Load(videoLessons("l1", "l2"), svc.rec)
	defer e.Wait()

	if !e.ReviewMode() {
		t.Fatal("ReviewMode() = false; want true")
	}
	if got := currentID(t, e); got != "l1" {
		t.Errorf("Current() = %s; want first lesson l1", got)
	}
	if !e.CourseCompleted() {
		t.Error("CourseCompleted() = false; want true")
	}
}

func TestEngine_LoadCompletedCourseResumesLastAccessedInReviewMode(t *testing.T) {
	svc := &svcStub{rec: progress.Record{
		UserID: "u1", CourseID: "c1",
		CompletedLessonIDs:   []string{"l1", "l2"},
		LastAccessedLessonID: "l2",
		ProgressPercentage:   100,
	}}
	e := newEngine(svc)

	e.Load(videoLessons("l1", "l2"), svc.rec)
	defer e.Wait()

	// the pointer still wins the resume, but the completed note holds
	if got := currentID(t, e); got != "l2" {
		t.Errorf("Current() = %s; want last accessed l2", got)
	}
	if !e.ReviewMode() {
		t.Error("ReviewMode() = false; want true")
	}
	if !e.CourseCompleted() {
		t.Error("CourseCompleted() = false; want true")
	}
}

func TestEngine_LoadEmptyCourseAwaitsSelection(t *testing.T) {
	svc := &svcStub{rec: progress.Record{UserID: "u1", CourseID: "c1"}}
	e := newEngine(svc)

	e.Load(nil, svc.rec)
	if e.State() != player.StateAwaitingSelection {
		t.Errorf("State() = %v; want %v", e.State(), player.StateAwaitingSelection)
	}
	if _, ok := e.Current(); ok {
		t.Error("Current() ok = true; want false")
	}
}

func TestEngine_Select(t *testing.T) {
	svc := &svcStub{rec: progress.Record{UserID: "u1", CourseID: "c1"}}
	e := newEngine(svc)

	if err := e.Select(context.Background(), "l1"); errors.Cause(err) != player.ErrNotLoaded {
		t.Errorf("Select() before Load error = %v; want %v", err, player.ErrNotLoaded)
	}

	e.Load(videoLessons("l1", "l2"), svc.rec)
	defer e.Wait()

	if err := e.Select(context.Background(), "nope"); errors.Cause(err) != player.ErrUnknownLesson {
		t.Errorf("Select(unknown) error = %v; want %v", err, player.ErrUnknownLesson)
	}

	if err := e.Select(context.Background(), "l2"); err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	if got := currentID(t, e); got != "l2" {
		t.Errorf("Current() = %s; want l2", got)
	}
}

func TestEngine_CompleteCurrentAdvances(t *testing.T) {
	svc := &svcStub{rec: progress.Record{UserID: "u1", CourseID: "c1", CompletedLessonIDs: []string{}}}
	e := newEngine(svc)

	e.Load(videoLessons("l1", "l2", "l3"), svc.rec)
	defer e.Wait()

	if err := e.CompleteCurrent(context.Background()); err != nil {
		t.Fatalf("CompleteCurrent() failed: %v", err)
	}
	if got := currentID(t, e); got != "l2" {
		t.Errorf("Current() = %s; want l2", got)
	}
	if e.Progress().ProgressPercentage != 33 {
		t.Errorf("ProgressPercentage = %d; want 33", e.Progress().ProgressPercentage)
	}
}

func TestEngine_CompletingLastLessonCompletesCourse(t *testing.T) {
	svc := &svcStub{rec: progress.Record{UserID: "u1", CourseID: "c1", CompletedLessonIDs: []string{"l1"}}}
	e := newEngine(svc)

	e.Load(videoLessons("l1", "l2"), svc.rec)
	defer e.Wait()

	// resumed on l2
	if err := e.CompleteCurrent(context.Background()); err != nil {
		t.Fatalf("CompleteCurrent() failed: %v", err)
	}
	if e.State() != player.StateCompleted {
		t.Fatalf("State() = %v; want %v", e.State(), player.StateCompleted)
	}
	if !e.CourseCompleted() {
		t.Error("CourseCompleted() = false; want true")
	}
	if e.Progress().ProgressPercentage != 100 {
		t.Errorf("ProgressPercentage = %d; want 100", e.Progress().ProgressPercentage)
	}
	if err := e.CompleteCurrent(context.Background()); errors.Cause(err) != player.ErrNothingPlaying {
		t.Errorf("CompleteCurrent() after completion error = %v; want %v", err, player.ErrNothingPlaying)
	}
}

func TestEngine_StaysPutWhenMarkingFails(t *testing.T) {
	svc := &svcStub{
		rec:     progress.Record{UserID: "u1", CourseID: "c1"},
		markErr: errors.New("boom"),
	}
	e := newEngine(svc)

	e.Load(videoLessons("l1", "l2"), svc.rec)
	defer e.Wait()

	if err := e.CompleteCurrent(context.Background()); err == nil {
		t.Fatal("CompleteCurrent() expected error")
	}
	if e.State() != player.StatePlaying {
		t.Errorf("State() = %v after failure; want %v", e.State(), player.StatePlaying)
	}
	if got := currentID(t, e); got != "l1" {
		t.Errorf("Current() = %s after failure; want l1", got)
	}

	// retry succeeds once the service recovers
	svc.markErr = nil
	if err := e.CompleteCurrent(context.Background()); err != nil {
		t.Fatalf("CompleteCurrent() retry failed: %v", err)
	}
	if got := currentID(t, e); got != "l2" {
		t.Errorf("Current() = %s; want l2", got)
	}
}

func TestEngine_ContentKindSignals(t *testing.T) {
	svc := &svcStub{rec: progress.Record{UserID: "u1", CourseID: "c1"}}
	e := newEngine(svc)

	lessons := []course.Lesson{
		{ID: "l1", CourseID: "c1", Order: 1, Content: course.VideoContent("yt1")},
		{ID: "l2", CourseID: "c1", Order: 2, Content: course.EbookContent("https://cdn.example.com/b.pdf")},
	}
	e.Load(lessons, svc.rec)
	defer e.Wait()

	// l1 is a video: the ebook signal does not apply
	if err := e.OnEbookConfirmed(context.Background()); errors.Cause(err) != player.ErrContentKind {
		t.Errorf("OnEbookConfirmed() on video error = %v; want %v", err, player.ErrContentKind)
	}
	if err := e.OnVideoEnded(context.Background()); err != nil {
		t.Fatalf("OnVideoEnded() failed: %v", err)
	}

	// advanced to the ebook
	if err := e.OnVideoEnded(context.Background()); errors.Cause(err) != player.ErrContentKind {
		t.Errorf("OnVideoEnded() on ebook error = %v; want %v", err, player.ErrContentKind)
	}
	if err := e.OnEbookConfirmed(context.Background()); err != nil {
		t.Fatalf("OnEbookConfirmed() failed: %v", err)
	}
	if e.State() != player.StateCompleted {
		t.Errorf("State() = %v; want %v", e.State(), player.StateCompleted)
	}
}

// a learner watches a 4-lesson course front to back against the real
// service and in-memory store.
func TestEngine_EndToEnd(t *testing.T) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	svc := progress.NewService(dummydb.NewProgressRepository(db), nil, nil, nil, nopLogger{})
	ctx := context.Background()

	e := player.NewEngine(svc, nopLogger{}, "u1", "c1")

	rec, err := svc.GetOrCreate(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	e.Load(videoLessons("l1", "l2", "l3", "l4"), rec)
	defer e.Wait()

	for i := 0; i < 4; i++ {
		if err := e.OnVideoEnded(ctx); err != nil {
			t.Fatalf("OnVideoEnded(%d) failed: %v", i, err)
		}
	}

	if e.State() != player.StateCompleted {
		t.Fatalf("State() = %v; want %v", e.State(), player.StateCompleted)
	}
	got := e.Progress()
	if got.ProgressPercentage != 100 {
		t.Errorf("ProgressPercentage = %d; want 100", got.ProgressPercentage)
	}
	if len(got.CompletedLessonIDs) != 4 {
		t.Errorf("CompletedLessonIDs = %v; want all 4", got.CompletedLessonIDs)
	}
}

func TestEngine_LoadSortsByPosition(t *testing.T) {
	svc := &svcStub{rec: progress.Record{UserID: "u1", CourseID: "c1"}}
	e := newEngine(svc)

	lessons := []course.Lesson{
		{ID: "b", CourseID: "c1", Order: 2, Content: course.VideoContent("yt-b")},
		{ID: "a", CourseID: "c1", Order: 1, Content: course.VideoContent("yt-a")},
	}
	e.Load(lessons, svc.rec)
	defer e.Wait()

	if got := currentID(t, e); got != "a" {
		t.Errorf("Current() = %s; want a", got)
	}
}

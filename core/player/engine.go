// Package player implements the per-viewing-session sequencing engine: it
// decides which lesson to present as a learner moves through a course and
// reacts to completion signals. Nothing here is persisted beyond the
// progress record's last-accessed pointer.
package player

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
)

var (
	// errors
	ErrNotLoaded      = errors.New("lessons not loaded yet")
	ErrNothingPlaying = errors.New("no lesson is playing")
	ErrUnknownLesson  = errors.New("lesson does not belong to this course")
	ErrContentKind    = errors.New("completion signal does not match the lesson content kind")
)

type State int

const (
	StateLoading State = iota
	StateAwaitingSelection
	StatePlaying
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAwaitingSelection:
		return "awaiting-selection"
	case StatePlaying:
		return "playing"
	case StateCompleted:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Engine is a single-session state machine; it is meant to be driven from
// one goroutine (the UI event loop). Last-accessed updates are fired in the
// background and never block a transition; Wait drains them on teardown.
type Engine struct {
	svc      progress.Service
	logger   core.Logger
	userID   string
	courseID string

	state   State
	lessons []course.Lesson // position order
	rec     progress.Record
	current int  // index into lessons, valid while StatePlaying
	review  bool // every lesson was already completed when loaded

	async chan struct{} // in-flight background updates
}

func NewEngine(svc progress.Service, logger core.Logger, userID, courseID string) *Engine {
	return &Engine{
		svc:      svc,
		logger:   logger,
		userID:   userID,
		courseID: courseID,
		state:    StateLoading,
		current:  -1,
		async:    make(chan struct{}, 64),
	}
}

func (e *Engine) State() State     { return e.state }
func (e *Engine) ReviewMode() bool { return e.review }

// CourseCompleted reports whether the learner has finished the course,
// either during this session or before it started.
func (e *Engine) CourseCompleted() bool { return e.state == StateCompleted || e.review }

// Current returns the lesson being played, if any.
func (e *Engine) Current() (course.Lesson, bool) {
	if e.state != StatePlaying {
		return course.Lesson{}, false
	}
	return e.lessons[e.current], true
}

// Progress returns the engine's view of the learner's progress record.
func (e *Engine) Progress() progress.Record { return e.rec }

// Load feeds the engine the course's lessons and the learner's progress
// record, then applies the resume rule:
//   - resume at last_accessed_lesson_id if it still references a lesson;
//   - otherwise at the first lesson (by position) not yet completed;
//   - if every lesson is completed, at the first lesson.
//
// Review mode is noted whenever the record already covers every lesson,
// whichever branch resumes. An empty course leaves the engine awaiting
// selection.
func (e *Engine) Load(lessons []course.Lesson, rec progress.Record) {
	e.lessons = make([]course.Lesson, len(lessons))
	copy(e.lessons, lessons)
	course.SortLessons(e.lessons)
	e.rec = rec

	if len(e.lessons) == 0 {
		e.state = StateAwaitingSelection
		e.current = -1
		return
	}

	// previously completed, wherever we end up resuming
	e.review = true
	for _, les := range e.lessons {
		if !rec.IsCompleted(les.ID) {
			e.review = false
			break
		}
	}

	if rec.LastAccessedLessonID != "" {
		if i := e.indexOf(rec.LastAccessedLessonID); i >= 0 {
			e.play(i)
			return
		}
	}

	for i, les := range e.lessons {
		if !rec.IsCompleted(les.ID) {
			e.play(i)
			return
		}
	}

	// all completed: review from the top
	e.play(0)
}

// Select transitions to playing the chosen lesson. The last-accessed update
// is fired in the background and does not gate the transition.
func (e *Engine) Select(ctx context.Context, lessonID string) error {
	if e.state == StateLoading {
		return ErrNotLoaded
	}
	i := e.indexOf(lessonID)
	if i < 0 {
		return errors.Wrap(ErrUnknownLesson, lessonID)
	}
	e.state = StatePlaying
	e.current = i
	e.touchAsync(lessonID)
	return nil
}

// OnVideoEnded handles the end-of-stream signal for a video lesson.
func (e *Engine) OnVideoEnded(ctx context.Context) error {
	cur, ok := e.Current()
	if !ok {
		return ErrNothingPlaying
	}
	if !cur.Content.IsVideo() {
		return ErrContentKind
	}
	return e.CompleteCurrent(ctx)
}

// OnEbookConfirmed handles the reader's explicit completion confirmation
// for an e-book lesson.
func (e *Engine) OnEbookConfirmed(ctx context.Context) error {
	cur, ok := e.Current()
	if !ok {
		return ErrNothingPlaying
	}
	if !cur.Content.IsEbook() {
		return ErrContentKind
	}
	return e.CompleteCurrent(ctx)
}

// CompleteCurrent marks the playing lesson complete and applies the advance
// rule: play the lesson at the next position, or transition to Completed
// when the last one was just finished. On failure the engine stays put so
// the caller can retry.
func (e *Engine) CompleteCurrent(ctx context.Context) error {
	cur, ok := e.Current()
	if !ok {
		return ErrNothingPlaying
	}

	rec, err := e.svc.MarkLessonComplete(ctx, e.userID, e.courseID, cur.ID, len(e.lessons))
	if err != nil {
		return errors.Wrap(err, "marking lesson complete")
	}
	e.rec = rec

	if next := e.current + 1; next < len(e.lessons) {
		e.play(next)
		return nil
	}
	e.state = StateCompleted
	e.current = -1
	return nil
}

// Wait blocks until all background last-accessed updates have finished.
func (e *Engine) Wait() {
	for i := 0; i < cap(e.async); i++ {
		e.async <- struct{}{}
	}
	for i := 0; i < cap(e.async); i++ {
		<-e.async
	}
}

func (e *Engine) play(i int) {
	e.state = StatePlaying
	e.current = i
	e.touchAsync(e.lessons[i].ID)
}

func (e *Engine) indexOf(lessonID string) int {
	for i, les := range e.lessons {
		if les.ID == lessonID {
			return i
		}
	}
	return -1
}

// touchAsync remembers where to resume, off the hot path. Failures are only
// logged: the pointer is advisory.
func (e *Engine) touchAsync(lessonID string) {
	e.async <- struct{}{}
	go func() {
		defer func() { <-e.async }()
		if err := e.svc.UpdateLastAccessed(context.Background(), e.userID, e.courseID, lessonID); err != nil {
			e.logger.Warn(fmt.Sprintf("updating last accessed lesson %s: %v", lessonID, err), err)
		}
	}()
}

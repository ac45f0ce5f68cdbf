package progress

import (
	"math"
	"time"
)

// Record tracks a learner's completion state for one course, keyed by
// (user_id, course_id).
//
// CompletedLessonIDs is intended to stay a subset of the course's current
// lesson ids; a lesson deleted after being completed leaves a dangling id
// behind (no cleanup pass is performed) which the resume logic treats as
// inert.
type Record struct {
	UserID               string    `json:"user_id"`
	CourseID             string    `json:"course_id"`
	CompletedLessonIDs   []string  `json:"completed_lesson_ids"`
	ProgressPercentage   int       `json:"progress_percentage"`
	LastAccessedLessonID string    `json:"last_accessed_lesson_id,omitempty"` // advisory, last write wins
	CourseTitle          string    `json:"course_title,omitempty"`            // denormalized, best effort
	ImageURL             string    `json:"image_url,omitempty"`               // denormalized, best effort
	EnrolledAt           time.Time `json:"enrolled_time"`                     // UTC
	LastUpdatedAt        time.Time `json:"last_updated_at"`                   // UTC
}

func (r *Record) IsCompleted(lessonID string) bool {
	for _, id := range r.CompletedLessonIDs {
		if id == lessonID {
			return true
		}
	}
	return false
}

// Complete marks lessonID completed and recomputes the cached percentage
// against totalLessons. Re-marking an already-completed lesson only refreshes
// the last-accessed pointer and timestamp; changed reports whether the
// completed set grew.
//
// Storage backends call this inside their transaction so both share the
// same mutation rules.
func (r *Record) Complete(lessonID string, totalLessons int, now time.Time) (changed bool) {
	if !r.IsCompleted(lessonID) {
		r.CompletedLessonIDs = append(r.CompletedLessonIDs, lessonID)
		changed = true
	}
	r.ProgressPercentage = Percentage(len(r.CompletedLessonIDs), totalLessons)
	r.LastAccessedLessonID = lessonID
	r.LastUpdatedAt = now.UTC()
	return changed
}

// Uncomplete removes lessonID from the completed set and recomputes the
// cached percentage. Removing an absent lesson changes nothing but still
// stamps LastUpdatedAt.
func (r *Record) Uncomplete(lessonID string, totalLessons int, now time.Time) {
	kept := r.CompletedLessonIDs[:0]
	for _, id := range r.CompletedLessonIDs {
		if id != lessonID {
			kept = append(kept, id)
		}
	}
	r.CompletedLessonIDs = kept
	r.ProgressPercentage = Percentage(len(r.CompletedLessonIDs), totalLessons)
	r.LastUpdatedAt = now.UTC()
}

// Percentage computes round(100 * completed / total), half up, clamped to
// [0,100]. A non-positive total yields 0; a stale total smaller than the
// completed count caps at 100.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(completed) / float64(total)))
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

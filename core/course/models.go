package course

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Content kinds
const (
	KindVideo = "video"
	KindEbook = "ebook"
)

type (
	// Content is the lesson content variant: a video reference or an e-book
	// reference, never both. Kind tags which one is set.
	Content struct {
		Kind     string `json:"kind" validate:"required,oneof=video ebook"`
		VideoID  string `json:"video_id,omitempty"`
		EbookURL string `json:"ebook_url,omitempty" validate:"omitempty,url"`
	}

	Course struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description,omitempty"`
		Instructor  string    `json:"instructor,omitempty"`
		Category    string    `json:"category,omitempty"`
		ImageURL    string    `json:"image_url,omitempty"`
		Hours       int       `json:"hours,omitempty"`
		Published   bool      `json:"published"`
		LessonCount int       `json:"lesson_count"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at"` // UTC
	}

	Lesson struct {
		ID              string    `json:"id"`
		CourseID        string    `json:"course_id"`
		Title           string    `json:"title"`
		Description     string    `json:"description,omitempty"`
		Order           int       `json:"order"`
		Content         Content   `json:"content"`
		DurationMinutes int       `json:"duration_minutes,omitempty"`
		CreatedAt       time.Time `json:"created_at"` // UTC
	}
)

func VideoContent(videoID string) Content {
	return Content{Kind: KindVideo, VideoID: videoID}
}

func EbookContent(url string) Content {
	return Content{Kind: KindEbook, EbookURL: url}
}

func (c Content) IsVideo() bool { return c.Kind == KindVideo }
func (c Content) IsEbook() bool { return c.Kind == KindEbook }

// SortLessons orders lessons by ascending `order`, ties broken by id so that
// sequence position stays deterministic even with duplicate order values.
func SortLessons(lessons []Lesson) {
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].Order != lessons[j].Order {
			return lessons[i].Order < lessons[j].Order
		}
		return lessons[i].ID < lessons[j].ID
	})
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Instructor  string `json:"instructor"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	Hours       int    `json:"hours" validate:"omitempty,min=0"`
	Published   bool   `json:"published"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Instructor = core.CleanString(nc.Instructor)
	nc.Category = core.CleanString(nc.Category)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing
// Course. Empty fields keep their current value; LessonCount is never
// touched here.
type UpdateCourse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Instructor  string `json:"instructor"`
	Category    string `json:"category"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	Hours       *int   `json:"hours" validate:"omitempty,min=0"`
	Published   *bool  `json:"published"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	uc.Description = core.CleanString(uc.Description)
	uc.Instructor = core.CleanString(uc.Instructor)
	uc.Category = core.CleanString(uc.Category)
	return validate.Struct(uc)
}

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	Title           string  `json:"title" validate:"required"`
	Description     string  `json:"description"`
	Order           int     `json:"order" validate:"required,min=1"`
	Content         Content `json:"content" validate:"required"`
	DurationMinutes int     `json:"duration_minutes" validate:"omitempty,min=0"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Description = core.CleanString(nl.Description)
	return validate.Struct(nl)
}

// UpdateLesson defines what information may be provided to modify an existing
// Lesson. The lesson's id and course_id are immutable.
type UpdateLesson struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Order           int      `json:"order" validate:"omitempty,min=1"`
	Content         *Content `json:"content"`
	DurationMinutes *int     `json:"duration_minutes" validate:"omitempty,min=0"`
}

func (ul *UpdateLesson) Validate(orig Lesson, validate *validator.Validate) error {
	if title := core.CleanString(ul.Title); title != "" {
		ul.Title = title
	} else {
		ul.Title = orig.Title
	}
	ul.Description = core.CleanString(ul.Description)
	if ul.Order == 0 {
		ul.Order = orig.Order
	}
	return validate.Struct(ul)
}

package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
)

type (
	progressApi struct {
		svc      progress.Service
		crsSvc   course.Service
		validate *validator.Validate
	}

	// LessonMarkRequest identifies the lesson being (un)marked. TotalLessons
	// overrides the course's stored lesson_count, mainly for clients that
	// already hold the lesson list.
	LessonMarkRequest struct {
		LessonID     string `json:"lesson_id" validate:"required"`
		TotalLessons *int   `json:"total_lessons" validate:"omitempty,min=0"`
	}

	LastAccessedRequest struct {
		LessonID string `json:"lesson_id" validate:"required"`
	}
)

func (r *LessonMarkRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *LastAccessedRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func registerProgressAPI(g *echo.Group, svc progress.Service, crsSvc course.Service, validate *validator.Validate) {
	api := progressApi{
		svc:      svc,
		crsSvc:   crsSvc,
		validate: validate,
	}

	ug := g.Group("/users/:uid/progress")
	ug.GET("", api.query)

	dg := ug.Group("/:cid")
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	dg.POST("/complete", api.completeLesson)
	dg.POST("/uncomplete", api.uncompleteLesson)
	dg.PUT("/last-accessed", api.updateLastAccessed)
}

// Handlers

func (api *progressApi) query(ctx echo.Context) error {
	recs, err := api.svc.QueryByUser(ctx.Request().Context(), ctx.Param("uid"))
	if err != nil {
		return errors.Wrap(err, "querying progress")
	}
	return ctx.JSON(http.StatusOK, recs)
}

// retrieve returns the learner's progress for the course, enrolling them
// lazily on first access.
func (api *progressApi) retrieve(ctx echo.Context) error {
	c := ctx.Request().Context()
	if _, err := api.crsSvc.GetByID(c, ctx.Param("cid")); err != nil {
		return err
	}
	rec, err := api.svc.GetOrCreate(c, ctx.Param("uid"), ctx.Param("cid"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *progressApi) completeLesson(ctx echo.Context) error {
	var data LessonMarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonMarkRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c := ctx.Request().Context()
	total, err := api.totalLessons(ctx, data)
	if err != nil {
		return err
	}

	rec, err := api.svc.MarkLessonComplete(c, ctx.Param("uid"), ctx.Param("cid"), data.LessonID, total)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *progressApi) uncompleteLesson(ctx echo.Context) error {
	var data LessonMarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonMarkRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c := ctx.Request().Context()
	total, err := api.totalLessons(ctx, data)
	if err != nil {
		return err
	}

	rec, err := api.svc.MarkLessonIncomplete(c, ctx.Param("uid"), ctx.Param("cid"), data.LessonID, total)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *progressApi) updateLastAccessed(ctx echo.Context) error {
	var data LastAccessedRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LastAccessedRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.UpdateLastAccessed(ctx.Request().Context(), ctx.Param("uid"), ctx.Param("cid"), data.LessonID)
	if err != nil {
		return errors.Wrap(err, "updating last accessed lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *progressApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("uid"), ctx.Param("cid")); err != nil {
		return errors.Wrap(err, "deleting progress")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// totalLessons resolves the denominator for the percentage: the request's
// override when given, the course's stored lesson_count otherwise.
func (api *progressApi) totalLessons(ctx echo.Context, data LessonMarkRequest) (int, error) {
	if data.TotalLessons != nil {
		return *data.TotalLessons, nil
	}
	crs, err := api.crsSvc.GetByID(ctx.Request().Context(), ctx.Param("cid"))
	if err != nil {
		return 0, err
	}
	return crs.LessonCount, nil
}

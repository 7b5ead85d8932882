package fiber

import (
	"context"
	"errors"
	"net/http"

	"chart-engine-service/internal/activities/core/usecase"

	"github.com/gofiber/fiber/v2"
)

type RecordActivityUseCase interface {
	Execute(ctx context.Context, in usecase.RecordActivityInput) (bool, error)
	BulkRecord(ctx context.Context, in usecase.BulkRecordActivitiesInput) (usecase.BulkRecordActivitiesResult, error)
}

type ActivityHandler struct {
	recordUC RecordActivityUseCase
}

func NewActivityHandler(recordUC RecordActivityUseCase) *ActivityHandler {
	return &ActivityHandler{recordUC: recordUC}
}

// RecordActivity godoc
// @Summary Record an activity
// @Description Updates every chart affected by one backend activity. Activities with a known id are ignored.
// @Tags Activities
// @Accept json
// @Produce json
// @Param request body RecordActivityRequest true "Activity payload"
// @Success 201 {object} RecordActivityResponse
// @Success 200 {object} RecordActivityResponse "Duplicate activity"
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /activities [post]
func (h *ActivityHandler) RecordActivity(c *fiber.Ctx) error {
	var req RecordActivityRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid_json",
		})
	}

	created, err := h.recordUC.Execute(c.UserContext(), toInput(req))
	if err != nil {
		return writeError(c, err)
	}

	if !created {
		return c.Status(http.StatusOK).JSON(RecordActivityResponse{Status: "duplicate"})
	}
	return c.Status(http.StatusCreated).JSON(RecordActivityResponse{Status: "recorded"})
}

// BulkRecordActivities godoc
// @Summary Bulk record activities
// @Description Validates every activity, then records them one by one
// @Tags Activities
// @Accept json
// @Produce json
// @Param request body BulkRecordActivitiesRequest true "Bulk activity payload"
// @Success 201 {object} BulkRecordActivitiesResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /activities/bulk [post]
func (h *ActivityHandler) BulkRecordActivities(c *fiber.Ctx) error {
	var req BulkRecordActivitiesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid_json",
		})
	}

	if len(req.Activities) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "activities_list_required",
		})
	}

	inputs := make([]usecase.RecordActivityInput, len(req.Activities))
	for i, a := range req.Activities {
		inputs[i] = toInput(a)
	}

	result, err := h.recordUC.BulkRecord(
		c.UserContext(),
		usecase.BulkRecordActivitiesInput{Activities: inputs},
	)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(BulkRecordActivitiesResponse{
		Recorded:   result.Recorded,
		Duplicates: result.Duplicates,
	})
}

func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, usecase.ErrInvalidActivity),
		errors.Is(err, usecase.ErrUnknownKind),
		errors.Is(err, usecase.ErrFutureTime):
		return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_activity",
			Message: err.Error(),
		})
	default:
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal_server_error",
		})
	}
}

func toInput(req RecordActivityRequest) usecase.RecordActivityInput {
	return usecase.RecordActivityInput{
		ID:        req.ID,
		Kind:      req.Kind,
		Actor:     usecase.AccountInput(req.Actor),
		Target:    usecase.AccountInput(req.Target),
		NoteID:    req.NoteID,
		ReplyID:   req.ReplyID,
		RenoteID:  req.RenoteID,
		HasFiles:  req.HasFiles,
		FileID:    req.FileID,
		FileSize:  req.FileSize,
		Host:      req.Host,
		Tag:       req.Tag,
		ViewerKey: req.ViewerKey,
		Visitor:   req.Visitor,
		Timestamp: req.Timestamp,
	}
}

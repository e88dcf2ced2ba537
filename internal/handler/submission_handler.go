package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sd-tech/leetai-api/internal/dto"
	"github.com/sd-tech/leetai-api/internal/middleware"
	"github.com/sd-tech/leetai-api/internal/service"
	"github.com/sd-tech/leetai-api/internal/utils"
)

// SubmissionHandler exposes submission HTTP endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a new submission handler.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register wires the handler routes into the router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("", middleware.RateLimit("submission_create", 10, time.Minute), h.submit)
	router.Post("/review", middleware.RateLimit("submission_review", 5, time.Minute), h.review)
	router.Get("", h.list)
	router.Get("/user/:userId", h.listByUser)
	router.Get("/problem/:problemId", h.listByProblem)
	router.Get("/:id", h.get)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	summary, err := h.service.Submit(c.Context(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrProblemNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "problem not found")
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrEvaluationQueueFull):
			return utils.SendError(c, fiber.StatusTooManyRequests, err.Error())
		default:
			h.logger.Error().Err(err).Msg("failed to accept submission")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to accept submission")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "submission accepted", summary)
}

func (h *SubmissionHandler) review(c *fiber.Ctx) error {
	var payload dto.ReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	review, err := h.service.Review(c.Context(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrProblemNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "problem not found")
		case errors.Is(err, service.ErrReviewerUnavailable):
			return utils.SendError(c, fiber.StatusServiceUnavailable, "code review is not available")
		default:
			h.logger.Error().Err(err).Msg("failed to review code")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to review code")
		}
	}

	return utils.SendSuccess(c, "code reviewed", fiber.Map{"review": review})
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter, err := h.parseFilter(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	return h.sendList(c, filter)
}

func (h *SubmissionHandler) listByUser(c *fiber.Ctx) error {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter, err := h.parseFilter(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.UserID = userID

	return h.sendList(c, filter)
}

func (h *SubmissionHandler) listByProblem(c *fiber.Ctx) error {
	problemID, err := parseUintParam(c, "problemId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	filter, err := h.parseFilter(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	filter.ProblemID = problemID

	return h.sendList(c, filter)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	details, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSubmissionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		}
		h.logger.Error().Err(err).Uint("submission_id", id).Msg("failed to get submission")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to retrieve submission")
	}

	return utils.SendSuccess(c, "submission retrieved", details)
}

func (h *SubmissionHandler) parseFilter(c *fiber.Ctx) (dto.SubmissionFilter, error) {
	filter := dto.SubmissionFilter{Status: c.Query("status")}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return dto.SubmissionFilter{}, errors.New("invalid page")
	}
	filter.Page = page

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return dto.SubmissionFilter{}, errors.New("invalid page_size")
	}
	filter.PageSize = pageSize

	return filter, nil
}

func (h *SubmissionHandler) sendList(c *fiber.Ctx, filter dto.SubmissionFilter) error {
	list, err := h.service.List(c.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list submissions")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to retrieve submissions")
	}

	return utils.SendSuccess(c, "submissions retrieved", list)
}

package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sd-tech/leetai-api/internal/dto"
	"github.com/sd-tech/leetai-api/internal/service"
	"github.com/sd-tech/leetai-api/internal/utils"
)

// ProblemHandler exposes problem HTTP endpoints. Mutating routes are
// expected to sit behind the admin middleware.
type ProblemHandler struct {
	service service.ProblemService
	logger  zerolog.Logger
}

// NewProblemHandler builds a new problem handler.
func NewProblemHandler(service service.ProblemService, logger zerolog.Logger) *ProblemHandler {
	return &ProblemHandler{
		service: service,
		logger:  logger.With().Str("component", "problem_handler").Logger(),
	}
}

// Register wires the read routes into the router group.
func (h *ProblemHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/tags", h.listTags)
	router.Get("/:id", h.get)
}

// RegisterAdmin wires the mutating routes into the (protected) router group.
func (h *ProblemHandler) RegisterAdmin(router fiber.Router) {
	router.Post("", h.create)
	router.Post("/generate", h.generate)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Put("/:id/test-cases", h.saveTestCases)
	router.Post("/:id/test-cases/generate", h.generateTestCases)
	router.Post("/generate-solution", h.generateSolution)
}

// RegisterAI wires the authenticated AI helper routes into the router group.
func (h *ProblemHandler) RegisterAI(router fiber.Router) {
	router.Post("/explain", h.explain)
}

func (h *ProblemHandler) list(c *fiber.Ctx) error {
	filter := dto.ProblemFilter{
		Difficulty: c.Query("difficulty"),
		Search:     c.Query("search"),
	}
	if tags := c.Query("tags"); tags != "" {
		filter.Tags = splitAndTrim(tags)
	}
	if page, err := parseQueryInt(c, "page"); err == nil {
		filter.Page = page
	}
	if pageSize, err := parseQueryInt(c, "page_size"); err == nil {
		filter.PageSize = pageSize
	}

	problems, err := h.service.List(c.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list problems")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to retrieve problems")
	}

	return utils.SendSuccess(c, "problems retrieved", problems)
}

func (h *ProblemHandler) listTags(c *fiber.Ctx) error {
	tags, err := h.service.ListTags(c.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list tags")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to retrieve tags")
	}

	return utils.SendSuccess(c, "tags retrieved", tags)
}

func (h *ProblemHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	problem, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProblemNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "problem not found")
		}
		h.logger.Error().Err(err).Uint("problem_id", id).Msg("failed to get problem")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to retrieve problem")
	}

	return utils.SendSuccess(c, "problem retrieved", problem)
}

func (h *ProblemHandler) create(c *fiber.Ctx) error {
	var payload dto.ProblemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	problem, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.sendMutationError(c, err, "failed to create problem")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "problem created", problem)
}

func (h *ProblemHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ProblemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	problem, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		return h.sendMutationError(c, err, "failed to update problem")
	}

	return utils.SendSuccess(c, "problem updated", problem)
}

func (h *ProblemHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrProblemNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "problem not found")
		}
		h.logger.Error().Err(err).Uint("problem_id", id).Msg("failed to delete problem")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to delete problem")
	}

	return utils.SendSuccess(c, "problem deleted", nil)
}

func (h *ProblemHandler) saveTestCases(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SaveTestCasesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	problem, err := h.service.SaveTestCases(c.Context(), id, payload)
	if err != nil {
		return h.sendMutationError(c, err, "failed to save test cases")
	}

	return utils.SendSuccess(c, "test cases saved", problem)
}

func (h *ProblemHandler) generate(c *fiber.Ctx) error {
	var payload dto.GenerateProblemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	problem, err := h.service.GenerateProblem(c.Context(), payload)
	if err != nil {
		if errors.Is(err, service.ErrGeneratorUnavailable) {
			return utils.SendError(c, fiber.StatusServiceUnavailable, "problem generation is not available")
		}
		return h.sendMutationError(c, err, "failed to generate problem")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "problem generated", problem)
}

func (h *ProblemHandler) generateTestCases(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GenerateTestCasesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	problem, err := h.service.GenerateTestCases(c.Context(), id, payload)
	if err != nil {
		if errors.Is(err, service.ErrGeneratorUnavailable) {
			return utils.SendError(c, fiber.StatusServiceUnavailable, "test case generation is not available")
		}
		return h.sendMutationError(c, err, "failed to generate test cases")
	}

	return utils.SendSuccess(c, "test cases generated", problem)
}

func (h *ProblemHandler) generateSolution(c *fiber.Ctx) error {
	var payload dto.GenerateSolutionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	solution, err := h.service.GenerateSolution(c.Context(), payload)
	if err != nil {
		if errors.Is(err, service.ErrGeneratorUnavailable) {
			return utils.SendError(c, fiber.StatusServiceUnavailable, "solution generation is not available")
		}
		return h.sendMutationError(c, err, "failed to generate solution")
	}

	return utils.SendSuccess(c, "solution generated", fiber.Map{"solution": solution})
}

func (h *ProblemHandler) explain(c *fiber.Ctx) error {
	var payload dto.ExplainRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	explanation, err := h.service.Explain(c.Context(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrGeneratorUnavailable):
			return utils.SendError(c, fiber.StatusServiceUnavailable, "topic explanation is not available")
		default:
			h.logger.Error().Err(err).Msg("failed to explain topic")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to explain topic")
		}
	}

	return utils.SendSuccess(c, "topic explained", fiber.Map{"explanation": explanation})
}

func (h *ProblemHandler) sendMutationError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case isValidationError(err), errors.Is(err, service.ErrInvalidDifficulty):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrProblemNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "problem not found")
	default:
		h.logger.Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

package web

import (
	"github.com/dukex/flowmigrate/pkg/persistence"
	"github.com/dukex/flowmigrate/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	p := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(p)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func internalError(c fiber.Ctx, err error) error {
	p := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(p)
}

// handleServiceError maps service and migration errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return problem(c, fiber.StatusBadRequest, "validation_error", err.Error())

	case persistence.IsFlowVersionNotFound(err):
		return problem(c, fiber.StatusNotFound, "flow_version_not_found", "flow version not found")

	case services.IsConflictError(err):
		return problem(c, fiber.StatusConflict, "conflict", err.Error())

	case services.IsUnprocessableError(err):
		return problem(c, fiber.StatusUnprocessableEntity, "migration_error", err.Error())

	case services.IsUpstreamError(err):
		return problem(c, fiber.StatusBadGateway, "lookup_error", err.Error())

	default:
		return internalError(c, err)
	}
}

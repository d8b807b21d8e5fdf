// Package web provides HTTP handlers and REST API endpoints for flow version migration.
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/dukex/flowmigrate/pkg/schema"
	"github.com/dukex/flowmigrate/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	flowVersionService *services.FlowVersion
	validator          *validator.Validate
}

func NewAPIHandlers(
	flowVersionService *services.FlowVersion,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		flowVersionService: flowVersionService,
		validator:          validator,
	}
}

// RegisterRoutes mounts the flow version and migration endpoints on router.
func (h *APIHandlers) RegisterRoutes(router fiber.Router) {
	fv := router.Group("/flow-versions")
	fv.Get("/", h.GetFlowVersions)
	fv.Post("/", h.CreateFlowVersion)
	fv.Get("/:id", h.GetFlowVersion)
	fv.Delete("/:id", h.DeleteFlowVersion)
	fv.Post("/:id/migrate", h.MigrateFlowVersion)

	m := router.Group("/migrations")
	m.Get("/", h.GetMigrations)
	m.Post("/apply", h.ApplyMigrations)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetFlowVersions(c fiber.Ctx) error {
	versions, err := h.flowVersionService.List(c.Context(), c.Query("flow_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(versions)
}

func (h *APIHandlers) GetFlowVersion(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow version ID is required")
	}

	version, err := h.flowVersionService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(version)
}

func (h *APIHandlers) CreateFlowVersion(c fiber.Ctx) error {
	if !json.Valid(c.Body()) {
		return badRequest(c, "Invalid JSON format")
	}

	if err := schema.ValidateEnvelope(c.Body()); err != nil {
		return badRequest(c, err.Error())
	}

	var req CreateFlowVersionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.flowVersionService.Create(c.Context(), req.ToModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) DeleteFlowVersion(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow version ID is required")
	}

	err := h.flowVersionService.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) MigrateFlowVersion(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Flow version ID is required")
	}

	result, err := h.flowVersionService.Migrate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformMigrationResult(result))
}

// ApplyMigrations migrates the posted document and returns it without storing it.
func (h *APIHandlers) ApplyMigrations(c fiber.Ctx) error {
	if !json.Valid(c.Body()) {
		return badRequest(c, "Invalid JSON format")
	}

	if err := schema.ValidateEnvelope(c.Body()); err != nil {
		return badRequest(c, err.Error())
	}

	var version models.FlowVersion
	if err := json.Unmarshal(c.Body(), &version); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.flowVersionService.MigrateDocument(c.Context(), &version)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformMigrationResult(result))
}

func (h *APIHandlers) GetMigrations(c fiber.Ctx) error {
	pipeline := h.flowVersionService.Pipeline()

	return c.JSON(fiber.Map{
		"latest":     pipeline.Latest(),
		"migrations": TransformMigrations(pipeline.Migrations()),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.flowVersionService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "flowmigrate API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "flowmigrate API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
			"migrations": "latest schema version " + h.flowVersionService.Pipeline().Latest(),
		},
		"timestamp": time.Now().UTC(),
	})
}

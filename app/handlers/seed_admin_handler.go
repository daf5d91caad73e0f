// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/offergrid/offergrid/app/dto"
	businessflow "github.com/offergrid/offergrid/business_flow"
	"github.com/offergrid/offergrid/utils"
)

// SeedAdminHandlerInterface defines the contract for admin seeding endpoints
type SeedAdminHandlerInterface interface {
	Reseed(cCtx fiber.Ctx) error
	ListRuns(cCtx fiber.Ctx) error
	GetRun(cCtx fiber.Ctx) error
}

// SeedAdminHandler implements SeedAdminHandlerInterface
type SeedAdminHandler struct {
	flow      businessflow.SeedFlow
	validator *validator.Validate
}

// ErrorResponse standard JSON error
func (h *SeedAdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// SuccessResponse standard JSON success
func (h *SeedAdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func NewSeedAdminHandler(flow businessflow.SeedFlow) SeedAdminHandlerInterface {
	return &SeedAdminHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// Reseed regenerates the demo dataset for one city
// @Summary Admin reseed
// @Description Replace the demo offers and notifications for a city with freshly generated rows
// @Tags Admin Seeding
// @Accept json
// @Produce json
// @Param request body dto.ReseedRequest true "Reseed parameters"
// @Success 200 {object} dto.APIResponse{data=dto.ReseedResponse} "Reseed finished"
// @Failure 400 {object} dto.APIResponse "Invalid request"
// @Failure 404 {object} dto.APIResponse "City not found"
// @Failure 409 {object} dto.APIResponse "Another seed run is in progress"
// @Failure 500 {object} dto.APIResponse "Reseed failed"
// @Router /api/v1/admin/seed/reseed [post]
func (h *SeedAdminHandler) Reseed(c fiber.Ctx) error {
	var req dto.ReseedRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	// Reseeding writes tens of thousands of rows; give it more room than
	// the usual request timeout
	result, err := h.flow.ReseedCity(h.createRequestContextWithTimeout(c, "/api/v1/admin/seed/reseed", 5*time.Minute), &req, metadata)
	if err != nil {
		if businessflow.IsCityNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "City not found", "CITY_NOT_FOUND", nil)
		}
		if businessflow.IsSeedAlreadyActive(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Another seed run is in progress", "SEED_LOCK_BUSY", nil)
		}
		log.Println("Admin reseed failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Reseed failed", "RESEED_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Reseed finished", result)
}

// ListRuns pages through recorded seed runs, newest first
// @Summary Admin list seed runs
// @Description List recorded seed runs with optional status filter
// @Tags Admin Seeding
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param status query string false "Filter by status (running, succeeded, failed)"
// @Success 200 {object} dto.APIResponse{data=dto.ListSeedRunsResponse} "Seed runs retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid pagination"
// @Router /api/v1/admin/seed/runs [get]
func (h *SeedAdminHandler) ListRuns(c fiber.Ctx) error {
	var req dto.ListSeedRunsRequest
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		req.Page = v
	}
	if v, err := strconv.Atoi(c.Query("limit", "20")); err == nil && v > 0 {
		req.Limit = v
	}
	req.Status = c.Query("status")

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	resp, err := h.flow.ListSeedRuns(h.createRequestContext(c, "/api/v1/admin/seed/runs"), &req)
	if err != nil {
		if businessflow.IsInvalidPageSize(err) || businessflow.IsInvalidPage(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", "INVALID_PAGINATION", nil)
		}
		log.Println("Admin list seed runs failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list seed runs", "SEED_RUN_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Seed runs retrieved", resp)
}

// GetRun returns one seed run by its public UUID
// @Summary Admin get seed run
// @Description Fetch one recorded seed run by UUID
// @Tags Admin Seeding
// @Produce json
// @Param uuid path string true "Seed run UUID"
// @Success 200 {object} dto.APIResponse{data=dto.GetSeedRunResponse} "Seed run retrieved"
// @Failure 404 {object} dto.APIResponse "Seed run not found"
// @Router /api/v1/admin/seed/runs/{uuid} [get]
func (h *SeedAdminHandler) GetRun(c fiber.Ctx) error {
	runUUID := c.Params("uuid")

	resp, err := h.flow.GetSeedRun(h.createRequestContext(c, "/api/v1/admin/seed/runs/:uuid"), runUUID)
	if err != nil {
		if businessflow.IsSeedRunNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Seed run not found", "SEED_RUN_NOT_FOUND", nil)
		}
		log.Println("Admin get seed run failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch seed run", "SEED_RUN_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Seed run retrieved", resp)
}

func (h *SeedAdminHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *SeedAdminHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}

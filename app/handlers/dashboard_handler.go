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

// DashboardHandlerInterface defines the contract for dashboard read endpoints
type DashboardHandlerInterface interface {
	GetMapData(cCtx fiber.Ctx) error
	GetNotificationFeed(cCtx fiber.Ctx) error
	GetConversionAnalytics(cCtx fiber.Ctx) error
	ExportConversionReport(cCtx fiber.Ctx) error
	GetSegmentBreakdown(cCtx fiber.Ctx) error
	ListCities(cCtx fiber.Ctx) error
}

// DashboardHandler implements DashboardHandlerInterface
type DashboardHandler struct {
	flow      businessflow.DashboardFlow
	validator *validator.Validate
}

// ErrorResponse standard JSON error
func (h *DashboardHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
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
func (h *DashboardHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func NewDashboardHandler(flow businessflow.DashboardFlow) DashboardHandlerInterface {
	return &DashboardHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

// GetMapData returns the offer zones and notification points for a viewport
// @Summary Dashboard map data
// @Description Return offer notification zones and delivered notification points inside the requested viewport
// @Tags Dashboard
// @Produce json
// @Param min_lon query number true "Viewport west edge (degrees)"
// @Param min_lat query number true "Viewport south edge (degrees)"
// @Param max_lon query number true "Viewport east edge (degrees)"
// @Param max_lat query number true "Viewport north edge (degrees)"
// @Param limit query int false "Maximum zones/points to return (default 1000)"
// @Success 200 {object} dto.APIResponse{data=dto.MapDataResponse} "Map data retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid viewport"
// @Router /api/v1/dashboard/map [get]
func (h *DashboardHandler) GetMapData(c fiber.Ctx) error {
	var req dto.ViewportRequest
	coords := []struct {
		name string
		dst  *float64
	}{
		{"min_lon", &req.MinLon},
		{"min_lat", &req.MinLat},
		{"max_lon", &req.MaxLon},
		{"max_lat", &req.MaxLat},
	}
	for _, coord := range coords {
		raw := c.Query(coord.name)
		if raw == "" {
			return h.ErrorResponse(c, fiber.StatusBadRequest, coord.name+" is required", "MISSING_VIEWPORT", nil)
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, coord.name+" must be a number", "INVALID_VIEWPORT", nil)
		}
		*coord.dst = parsed
	}
	if v, err := strconv.Atoi(c.Query("limit", "0")); err == nil && v > 0 {
		req.Limit = v
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	resp, err := h.flow.GetMapData(h.createRequestContext(c, "/api/v1/dashboard/map"), &req)
	if err != nil {
		if businessflow.IsInvalidViewport(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid viewport", "INVALID_VIEWPORT", nil)
		}
		log.Println("Dashboard map query failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load map data", "MAP_DATA_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Map data retrieved", resp)
}

// GetNotificationFeed returns the most recent delivered notifications
// @Summary Dashboard notification feed
// @Description Return the latest delivered notifications, optionally scoped to one city
// @Tags Dashboard
// @Produce json
// @Param city_id query int false "Restrict the feed to one city"
// @Param limit query int false "Maximum rows to return (default 50, max 200)"
// @Success 200 {object} dto.APIResponse{data=dto.NotificationFeedResponse} "Feed retrieved"
// @Router /api/v1/dashboard/notifications [get]
func (h *DashboardHandler) GetNotificationFeed(c fiber.Ctx) error {
	var req dto.NotificationFeedRequest
	req.CityID = optionalID(c, "city_id")
	if v, err := strconv.Atoi(c.Query("limit", "0")); err == nil && v > 0 {
		req.Limit = v
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	resp, err := h.flow.GetNotificationFeed(h.createRequestContext(c, "/api/v1/dashboard/notifications"), &req)
	if err != nil {
		log.Println("Dashboard feed query failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load notification feed", "FEED_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Notification feed retrieved", resp)
}

// GetConversionAnalytics returns delivery outcomes aggregated per offer
// @Summary Dashboard conversion analytics
// @Description Aggregate sent/converted counts and cost per offer, cached between reseeds
// @Tags Dashboard
// @Produce json
// @Param city_id query int false "Restrict the report to one city"
// @Success 200 {object} dto.APIResponse{data=dto.ConversionAnalyticsResponse} "Analytics retrieved"
// @Router /api/v1/dashboard/analytics/conversions [get]
func (h *DashboardHandler) GetConversionAnalytics(c fiber.Ctx) error {
	cityID := optionalID(c, "city_id")

	resp, err := h.flow.GetConversionAnalytics(h.createRequestContext(c, "/api/v1/dashboard/analytics/conversions"), cityID)
	if err != nil {
		log.Println("Dashboard conversion analytics failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to aggregate conversions", "CONVERSION_ANALYTICS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Conversion analytics retrieved", resp)
}

// ExportConversionReport downloads the conversion analytics as an Excel file
// @Summary Dashboard conversion export
// @Description Download the per-offer conversion report as an Excel workbook
// @Tags Dashboard
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param city_id query int false "Restrict the report to one city"
// @Success 200 {file} binary "Excel workbook"
// @Failure 500 {object} dto.APIResponse "Export failed"
// @Router /api/v1/dashboard/analytics/conversions/export [get]
func (h *DashboardHandler) ExportConversionReport(c fiber.Ctx) error {
	cityID := optionalID(c, "city_id")

	filename, data, err := h.flow.ExportConversionReport(h.createRequestContext(c, "/api/v1/dashboard/analytics/conversions/export"), cityID)
	if err != nil {
		log.Println("Dashboard conversion export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate Excel", "EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// GetSegmentBreakdown returns the segment catalog counted per kind and interval
// @Summary Dashboard segment breakdown
// @Description Count stored segment descriptors per (filter kind, valid interval) bucket
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SegmentBreakdownResponse} "Breakdown retrieved"
// @Router /api/v1/dashboard/analytics/segments [get]
func (h *DashboardHandler) GetSegmentBreakdown(c fiber.Ctx) error {
	resp, err := h.flow.GetSegmentBreakdown(h.createRequestContext(c, "/api/v1/dashboard/analytics/segments"))
	if err != nil {
		log.Println("Dashboard segment breakdown failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to aggregate segments", "SEGMENT_BREAKDOWN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Segment breakdown retrieved", resp)
}

// ListCities returns the seedable city catalog
// @Summary Dashboard city catalog
// @Description List the cities the seeder can populate
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListCitiesResponse} "Cities retrieved"
// @Router /api/v1/dashboard/cities [get]
func (h *DashboardHandler) ListCities(c fiber.Ctx) error {
	resp, err := h.flow.ListCities(h.createRequestContext(c, "/api/v1/dashboard/cities"))
	if err != nil {
		log.Println("Dashboard city list failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list cities", "CITY_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Cities retrieved", resp)
}

// optionalID reads an optional integer query parameter, ignoring junk values
func optionalID(c fiber.Ctx, name string) *int64 {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (h *DashboardHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *DashboardHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx
}

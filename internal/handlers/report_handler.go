package handlers

import (
	"strconv"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/identity"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func listQuery(c *fiber.Ctx) dto.ListReportsQuery {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	return dto.ListReportsQuery{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Mine:     c.QueryBool("mine", false),
		Limit:    limit,
		Offset:   offset,
	}
}

func reportID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func (h *ReportHandler) List(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	resp, err := h.reportService.List(c.UserContext(), userID, listQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

func (h *ReportHandler) Create(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	report, err := h.reportService.Create(c.UserContext(), userID, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ReportHandler) Get(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	id, ok := reportID(c)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid report ID")
	}

	report, err := h.reportService.Get(c.UserContext(), userID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

func (h *ReportHandler) Update(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	id, ok := reportID(c)
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid report ID")
	}

	var req dto.UpdateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	report, err := h.reportService.Update(c.UserContext(), userID, id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

func (h *ReportHandler) Dashboard(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	resp, err := h.reportService.Dashboard(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

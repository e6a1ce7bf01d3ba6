package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/appeal-service/internal/api/dto"
	"github.com/spec-kit/appeal-service/internal/auth"
	"github.com/spec-kit/appeal-service/internal/domain"
	"github.com/spec-kit/appeal-service/internal/repository"
	"github.com/spec-kit/appeal-service/internal/service"
	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

// AppealsHandler manages appeal lifecycle endpoints.
type AppealsHandler struct {
	appeals     *service.AppealService
	assignments *service.AssignmentService
}

// NewAppealsHandler constructs handler.
func NewAppealsHandler(appeals *service.AppealService, assignments *service.AssignmentService) *AppealsHandler {
	return &AppealsHandler{appeals: appeals, assignments: assignments}
}

// CreateAppeal POST /appeals. Open to requesters; the requester id
// comes from the payload because requesters do not authenticate.
func (h *AppealsHandler) CreateAppeal(c *fiber.Ctx) error {
	var req dto.CreateAppealRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	appeal, err := h.appeals.CreateAppeal(c.Context(), service.AppealCreateInput{
		RequesterID:   req.RequesterID,
		RequesterName: req.RequesterName,
		Category:      req.Category,
		Subject:       req.Subject,
		Body:          req.Body,
	})
	if err != nil {
		return err
	}

	// Routing happens right after creation. A full queue is not an
	// error for the requester; the appeal simply stays unassigned.
	if _, err := h.assignments.AssignAppeal(c.Context(), appeal.ID); err != nil && !apperrors.IsNoAdminAvailable(err) {
		return err
	}

	created, err := h.appeals.GetAppeal(c.Context(), appeal.ID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": appealDetail(created)})
}

// ListAppeals GET /appeals.
func (h *AppealsHandler) ListAppeals(c *fiber.Ctx) error {
	appeals, err := h.appeals.ListAppeals(c.Context(), parseAppealQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.AppealSummary, 0, len(appeals))
	for i := range appeals {
		items = append(items, appealSummary(&appeals[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetAppeal GET /appeals/:id.
func (h *AppealsHandler) GetAppeal(c *fiber.Ctx) error {
	appealID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	appeal, err := h.appeals.GetAppeal(c.Context(), appealID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": appealDetail(appeal)})
}

// AddMessage POST /appeals/:id/messages.
func (h *AppealsHandler) AddMessage(c *fiber.Ctx) error {
	appealID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperrors.NewValidationError("body required", nil)
	}

	senderID := req.SenderID
	fromAdmin := req.FromAdmin
	if principal, ok := auth.PrincipalFromContext(c); ok {
		senderID = principal.Admin.ID
		fromAdmin = true
	}
	msg, err := h.appeals.AddMessage(c.Context(), appealID, senderID, fromAdmin, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// MarkMessagesRead POST /appeals/:id/messages/read.
func (h *AppealsHandler) MarkMessagesRead(c *fiber.Ctx) error {
	appealID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	_, readerIsAdmin := auth.PrincipalFromContext(c)
	count, err := h.appeals.MarkMessagesRead(c.Context(), appealID, readerIsAdmin)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"marked_read": count}})
}

// UpdatePriority PATCH /appeals/:id/priority.
func (h *AppealsHandler) UpdatePriority(c *fiber.Ctx) error {
	appealID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	appeal, err := h.appeals.UpdatePriority(c.Context(), appealID, req.Priority, actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": appealSummary(appeal)})
}

// ChangeStatus PATCH /appeals/:id/status.
func (h *AppealsHandler) ChangeStatus(c *fiber.Ctx) error {
	appealID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	appeal, err := h.appeals.ChangeStatus(c.Context(), appealID, req.Status, actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": appealSummary(appeal)})
}

// CloseAppeal POST /appeals/:id/close.
func (h *AppealsHandler) CloseAppeal(c *fiber.Ctx) error {
	appealID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("admin required")
	}
	var req dto.CloseAppealRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	appeal, err := h.appeals.CloseAppeal(c.Context(), appealID, principal.Admin.ID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": appealSummary(appeal)})
}

// ListHistory GET /appeals/:id/history.
func (h *AppealsHandler) ListHistory(c *fiber.Ctx) error {
	appealID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	page := parseIntQuery(c.Query("page"), 1)
	pageSize := parseIntQuery(c.Query("page_size"), 50)
	entries, err := h.appeals.ListHistory(c.Context(), appealID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.HistoryResponse{
			ID:         entry.ID,
			ChangeType: entry.ChangeType,
			ActorID:    entry.ActorID,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Reassign POST /appeals/:id/reassign.
func (h *AppealsHandler) Reassign(c *fiber.Ctx) error {
	appealID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	workload, err := h.assignments.ReassignAppeal(c.Context(), appealID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workloadResponse(workload)})
}

// Assign POST /appeals/:id/assign. Without a body the selector picks;
// with an admin_id the assignment is direct.
func (h *AppealsHandler) Assign(c *fiber.Ctx) error {
	appealID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		AdminID *int64 `json:"admin_id"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if req.AdminID != nil {
		if err := h.assignments.AssignAppealToAdmin(c.Context(), appealID, *req.AdminID); err != nil {
			return err
		}
		appeal, err := h.appeals.GetAppeal(c.Context(), appealID)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": appealSummary(appeal)})
	}
	workload, err := h.assignments.AssignAppeal(c.Context(), appealID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workloadResponse(workload)})
}

func parseAppealQuery(c *fiber.Ctx) repository.AppealFilter {
	filter := repository.AppealFilter{}
	if v := c.Query("requester_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			filter.RequesterID = &id
		}
	}
	if v := c.Query("admin_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			filter.AdminID = &id
		}
	}
	filter.Unassigned = c.QueryBool("unassigned")
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.AppealStatus(strings.TrimSpace(part)))
		}
	}
	if categoryStr := c.Query("category"); categoryStr != "" {
		for _, part := range strings.Split(categoryStr, ",") {
			filter.Categories = append(filter.Categories, domain.AppealCategory(strings.TrimSpace(part)))
		}
	}
	page := parseIntQuery(c.Query("page"), 1)
	pageSize := parseIntQuery(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{"param": name})
	}
	return id, nil
}

func parseIntQuery(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func actorID(c *fiber.Ctx) *int64 {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		id := principal.Admin.ID
		return &id
	}
	return nil
}

func appealSummary(appeal *domain.Appeal) dto.AppealSummary {
	info, _ := domain.CategoryDisplay(appeal.Category)
	return dto.AppealSummary{
		ID:              appeal.ID,
		RequesterID:     appeal.RequesterID,
		RequesterName:   appeal.RequesterName,
		Category:        appeal.Category,
		CategoryDisplay: info.DisplayName,
		Subject:         appeal.Subject,
		Status:          appeal.Status,
		Priority:        appeal.Priority,
		AssignedAdminID: appeal.AssignedAdminID,
		CreatedAt:       appeal.CreatedAt,
		UpdatedAt:       appeal.UpdatedAt,
	}
}

func appealDetail(appeal *domain.Appeal) dto.AppealDetailResponse {
	msgs := make([]dto.MessageResponse, 0, len(appeal.Messages))
	for i := range appeal.Messages {
		msgs = append(msgs, messageResponse(&appeal.Messages[i]))
	}
	return dto.AppealDetailResponse{
		AppealSummary:   appealSummary(appeal),
		Body:            appeal.Body,
		FirstResponseAt: appeal.FirstResponseAt,
		ClosedAt:        appeal.ClosedAt,
		ClosedBy:        appeal.ClosedBy,
		ClosedReason:    appeal.ClosedReason,
		Messages:        msgs,
	}
}

func messageResponse(msg *domain.AppealMessage) dto.MessageResponse {
	return dto.MessageResponse{
		ID:        msg.ID,
		AppealID:  msg.AppealID,
		SenderID:  msg.SenderID,
		FromAdmin: msg.FromAdmin,
		Body:      msg.Body,
		SentAt:    msg.SentAt,
		Read:      msg.Read,
		ReadAt:    msg.ReadAt,
	}
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/appeal-service/internal/api/dto"
	"github.com/spec-kit/appeal-service/internal/auth"
	"github.com/spec-kit/appeal-service/internal/domain"
	"github.com/spec-kit/appeal-service/internal/service"
	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

// AdminsHandler manages admin accounts, availability, expertise and
// workload reporting.
type AdminsHandler struct {
	authService *service.AuthService
	assignments *service.AssignmentService
	expertise   *service.ExpertiseService
	escalations *service.EscalationService
}

// NewAdminsHandler constructs handler.
func NewAdminsHandler(authService *service.AuthService, assignments *service.AssignmentService, expertise *service.ExpertiseService, escalations *service.EscalationService) *AdminsHandler {
	return &AdminsHandler{
		authService: authService,
		assignments: assignments,
		expertise:   expertise,
		escalations: escalations,
	}
}

// Register POST /auth/admins/register.
func (h *AdminsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	admin, err := h.authService.RegisterAdmin(c.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": adminResponse(admin)})
}

// Login POST /auth/admins/login.
func (h *AdminsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	admin, token, exp, err := h.authService.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     token,
		ExpiresAt: exp,
		Admin:     adminResponse(admin),
	}})
}

// SetAvailability PUT /admins/me/availability.
func (h *AdminsHandler) SetAvailability(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("admin required")
	}
	var req dto.SetAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.assignments.SetAdminAvailability(c.Context(), principal.Admin.ID, req.Available); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"available": req.Available}})
}

// SetExpertise PUT /admins/:id/expertise.
func (h *AdminsHandler) SetExpertise(c *fiber.Ctx) error {
	adminID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.SetExpertiseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	record, err := h.expertise.SetExperienceLevel(c.Context(), adminID, req.Category, req.Level)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": expertiseResponse(record)})
}

// ListExpertise GET /admins/:id/expertise.
func (h *AdminsHandler) ListExpertise(c *fiber.Ctx) error {
	adminID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	records, err := h.expertise.ListAdminExpertise(c.Context(), adminID)
	if err != nil {
		return err
	}
	items := make([]dto.ExpertiseResponse, 0, len(records))
	for i := range records {
		items = append(items, expertiseResponse(&records[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CategoryExperts GET /categories/:category/admins.
func (h *AdminsHandler) CategoryExperts(c *fiber.Ctx) error {
	category := domain.AppealCategory(c.Params("category"))
	admins, err := h.assignments.GetAvailableAdminsForCategory(c.Context(), category)
	if err != nil {
		return err
	}
	items := make([]fiber.Map, 0, len(admins))
	for i := range admins {
		items = append(items, fiber.Map{
			"workload":  workloadResponse(&admins[i].Workload),
			"expertise": expertiseResponse(&admins[i].Expertise),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// BestAdmin GET /categories/:category/best-admin. Dry-run of the
// selector: reports who would receive the next appeal without
// assigning anything.
func (h *AdminsHandler) BestAdmin(c *fiber.Ctx) error {
	category := domain.AppealCategory(c.Params("category"))
	workload, err := h.assignments.FindBestAdminForAppeal(c.Context(), category, domain.AppealPriorityNormal)
	if err != nil {
		return err
	}
	if workload == nil {
		return apperrors.NewNoAdminAvailable(map[string]any{"category": category})
	}
	return c.JSON(fiber.Map{"data": workloadResponse(workload)})
}

// CategoryLeaderboard GET /categories/:category/expertise. Unlike
// CategoryExperts this lists every expertise record for the category,
// available or not, strongest first.
func (h *AdminsHandler) CategoryLeaderboard(c *fiber.Ctx) error {
	category := domain.AppealCategory(c.Params("category"))
	records, err := h.expertise.ListCategoryExperts(c.Context(), category)
	if err != nil {
		return err
	}
	items := make([]dto.ExpertiseResponse, 0, len(records))
	for i := range records {
		items = append(items, expertiseResponse(&records[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// WorkloadStats GET /admins/workload.
func (h *AdminsHandler) WorkloadStats(c *fiber.Ctx) error {
	stats, err := h.assignments.GetWorkloadStats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// RunEscalationSweep POST /escalations/run. Manual trigger for the
// background sweep.
func (h *AdminsHandler) RunEscalationSweep(c *fiber.Ctx) error {
	count, err := h.escalations.EscalateOverdueAppeals(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"escalated": count}})
}

func adminResponse(admin *domain.Admin) dto.AdminResponse {
	return dto.AdminResponse{
		ID:        admin.ID,
		Name:      admin.Name,
		Email:     admin.Email,
		Active:    admin.Active,
		CreatedAt: admin.CreatedAt,
	}
}

func expertiseResponse(record *domain.AdminCategoryExpertise) dto.ExpertiseResponse {
	return dto.ExpertiseResponse{
		AdminID:               record.AdminID,
		Category:              record.Category,
		ExperienceLevel:       record.ExperienceLevel,
		SuccessfulResolutions: record.SuccessfulResolutions,
		TotalResolutions:      record.TotalResolutions,
		SuccessRate:           record.SuccessRate(),
		ExpertiseScore:        record.ExpertiseScore(),
	}
}

func workloadResponse(workload *domain.AdminWorkload) dto.WorkloadResponse {
	return dto.WorkloadResponse{
		AdminID:            workload.AdminID,
		ActiveAppeals:      workload.ActiveAppeals,
		TotalAppeals:       workload.TotalAppeals,
		Available:          workload.Available,
		LastAssignedAt:     workload.LastAssignedAt,
		LastActivityAt:     workload.LastActivityAt,
		AssignmentPriority: workload.AssignmentPriority(time.Now()),
	}
}

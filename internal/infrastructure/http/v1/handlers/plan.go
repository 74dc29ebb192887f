package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"pcp/internal/core/apperror"
	"pcp/internal/domain/plan"
	"pcp/internal/domain/planning"
	"pcp/internal/infrastructure/http/v1/dto"
	"pcp/internal/infrastructure/xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxForecastUpload caps the multipart body of a forecast import.
const maxForecastUpload = 10 << 20

// PlanService is the plan lifecycle used by PlanHandler.
type PlanService interface {
	Create(ctx context.Context, in plan.CreateInput) (*plan.Plan, error)
	Get(ctx context.Context, planID int64) (*plan.Plan, error)
	List(ctx context.Context, filter plan.ListFilter) ([]plan.Plan, error)
	Freeze(ctx context.Context, planID int64) (*plan.Plan, error)
	Unfreeze(ctx context.Context, planID int64) (*plan.Plan, error)
	Release(ctx context.Context, planID int64) (*plan.Plan, error)
	ReplaceForecast(ctx context.Context, planID int64, entries []planning.ForecastEntry) error
	CaptureStock(ctx context.Context, planID int64, kind planning.ItemKind, entries []planning.StockSnapshotEntry, source string) (int64, error)
	AddAdjustments(ctx context.Context, planID int64, kind planning.ItemKind, entries []planning.AdjustmentEntry) error
	Recalculate(ctx context.Context, planID int64) (*plan.RecalcSummary, error)
	ProductionRequirements(ctx context.Context, planID int64) ([]planning.RequiredProduction, error)
	MaterialRequirements(ctx context.Context, planID int64, kind planning.MaterialKind) ([]plan.MaterialRequirement, error)
	History(ctx context.Context, planID int64, limit int) ([]plan.AuditRecord, error)
}

// PlanHandler handles plan endpoints.
type PlanHandler struct {
	*BaseHandler
	service PlanService
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(base *BaseHandler, service PlanService) *PlanHandler {
	return &PlanHandler{BaseHandler: base, service: service}
}

// Create handles POST /plans.
func (h *PlanHandler) Create(c *gin.Context) {
	var req dto.CreatePlanRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), plan.CreateInput{
		RefYear:   req.RefYear,
		RefWeek:   req.RefWeek,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromPlan(p))
}

// List handles GET /plans.
func (h *PlanHandler) List(c *gin.Context) {
	var q dto.ListPlansQuery
	if !h.BindQuery(c, &q) {
		return
	}

	plans, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.PlanResponse, 0, len(plans))
	for i := range plans {
		items = append(items, dto.FromPlan(&plans[i]))
	}
	h.OK(c, dto.NewListResponse(items, q.Limit, q.Offset))
}

// Get handles GET /plans/:id.
func (h *PlanHandler) Get(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), planID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPlan(p))
}

// Status handles GET /plans/:id/status.
func (h *PlanHandler) Status(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), planID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.PlanStatusResponse{PlanID: p.ID, Status: string(p.Status)})
}

// Freeze handles POST /plans/:id/freeze.
func (h *PlanHandler) Freeze(c *gin.Context) {
	h.transition(c, h.service.Freeze)
}

// Unfreeze handles POST /plans/:id/unfreeze.
func (h *PlanHandler) Unfreeze(c *gin.Context) {
	h.transition(c, h.service.Unfreeze)
}

// Release handles POST /plans/:id/release.
func (h *PlanHandler) Release(c *gin.Context) {
	h.transition(c, h.service.Release)
}

func (h *PlanHandler) transition(c *gin.Context, move func(context.Context, int64) (*plan.Plan, error)) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := move(c.Request.Context(), planID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPlan(p))
}

// ReplaceForecast handles PUT /plans/:id/forecast.
func (h *PlanHandler) ReplaceForecast(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReplaceForecastRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entries := req.ToEntries()
	if err := h.service.ReplaceForecast(c.Request.Context(), planID, entries); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.CountResponse{Rows: int64(len(entries))})
}

// ImportForecast handles POST /plans/:id/forecast/import (multipart "file").
// Replaces the forecast with the readable rows and reports the skipped ones.
func (h *PlanHandler) ImportForecast(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxForecastUpload)
	fh, err := c.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewValidation("file is required").WithDetail("field", "file"))
		return
	}
	file, err := fh.Open()
	if err != nil {
		h.Error(c, apperror.NewValidation("cannot open uploaded file"))
		return
	}
	defer file.Close()

	imported, err := xlsx.ReadForecast(file)
	if err != nil {
		h.Error(c, apperror.NewValidation("file is not a readable xlsx workbook").WithCause(err))
		return
	}
	if len(imported.Entries) == 0 {
		h.Error(c, apperror.NewValidation("workbook has no forecast rows").
			WithDetail("skipped", imported.Skipped))
		return
	}

	if err := h.service.ReplaceForecast(c.Request.Context(), planID, imported.Entries); err != nil {
		h.Error(c, err)
		return
	}

	skipped := imported.Skipped
	if skipped == nil {
		skipped = []xlsx.RowError{}
	}
	h.OK(c, gin.H{
		"rows":    len(imported.Entries),
		"skipped": skipped,
	})
}

// CaptureStock handles POST /plans/:id/stock-snapshot.
func (h *PlanHandler) CaptureStock(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.StockSnapshotRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rows, err := h.service.CaptureStock(c.Request.Context(), planID,
		planning.ItemKind(req.ItemKind), req.ToEntries(), req.Source)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.CountResponse{Rows: rows})
}

// AddAdjustments handles POST /plans/:id/adjustments.
func (h *PlanHandler) AddAdjustments(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AdjustmentsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entries := req.ToEntries()
	if err := h.service.AddAdjustments(c.Request.Context(), planID, planning.ItemKind(req.ItemKind), entries); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.CountResponse{Rows: int64(len(entries))})
}

// Recalculate handles POST /mrp/recalculate/:id.
func (h *PlanHandler) Recalculate(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	summary, err := h.service.Recalculate(c.Request.Context(), planID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, summary)
}

// ProductionResults handles GET /plans/:id/results/production.
func (h *PlanHandler) ProductionResults(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	rows, err := h.service.ProductionRequirements(c.Request.Context(), planID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(rows, 0, 0))
}

// MaterialResults handles GET /plans/:id/results/materials?type=MP|EMB.
func (h *PlanHandler) MaterialResults(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var q dto.MaterialRequirementsQuery
	if !h.BindQuery(c, &q) {
		return
	}

	rows, err := h.service.MaterialRequirements(c.Request.Context(), planID, planning.MaterialKind(q.Type))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(rows, 0, 0))
}

// ExportMaterials handles GET /plans/:id/results/materials/export.
func (h *PlanHandler) ExportMaterials(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var q dto.MaterialRequirementsQuery
	if !h.BindQuery(c, &q) {
		return
	}

	ctx := c.Request.Context()
	p, err := h.service.Get(ctx, planID)
	if err != nil {
		h.Error(c, err)
		return
	}
	rows, err := h.service.MaterialRequirements(ctx, planID, planning.MaterialKind(q.Type))
	if err != nil {
		h.Error(c, err)
		return
	}

	f, filename, err := xlsx.MaterialRequirements(p, rows)
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		h.Error(c, apperror.NewInternal(fmt.Errorf("write workbook: %w", err)))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// History handles GET /plans/:id/audit.
func (h *PlanHandler) History(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 20)
	records, err := h.service.History(c.Request.Context(), planID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(records, limit, 0))
}

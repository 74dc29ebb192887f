package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"pcp/internal/domain/planning"
	"pcp/internal/domain/requisition"
	"pcp/internal/infrastructure/http/v1/dto"
)

// RequisitionService drafts purchase requisitions from frozen plans.
type RequisitionService interface {
	Create(ctx context.Context, planID int64, kind planning.MaterialKind) (*requisition.Requisition, error)
	Get(ctx context.Context, id int64) (*requisition.Requisition, error)
	ListByPlan(ctx context.Context, planID int64) ([]requisition.Requisition, error)
}

// RequisitionHandler handles requisition endpoints.
type RequisitionHandler struct {
	*BaseHandler
	service RequisitionService
}

// NewRequisitionHandler creates a new requisition handler.
func NewRequisitionHandler(base *BaseHandler, service RequisitionService) *RequisitionHandler {
	return &RequisitionHandler{BaseHandler: base, service: service}
}

// Create handles POST /requisitions.
func (h *RequisitionHandler) Create(c *gin.Context) {
	var req dto.CreateRequisitionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	r, err := h.service.Create(c.Request.Context(), req.PlanID, planning.MaterialKind(req.ReqType))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, r)
}

// Get handles GET /requisitions/:id.
func (h *RequisitionHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	r, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, r)
}

// ListByPlan handles GET /plans/:id/requisitions.
func (h *RequisitionHandler) ListByPlan(c *gin.Context) {
	planID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	items, err := h.service.ListByPlan(c.Request.Context(), planID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(items, 0, 0))
}

package dto

// CreateRequisitionRequest drafts a requisition from a frozen plan.
type CreateRequisitionRequest struct {
	PlanID  int64  `json:"planId" binding:"required,min=1"`
	ReqType string `json:"reqType" binding:"required,oneof=MP EMB"`
}

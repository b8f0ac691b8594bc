package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edufam/gradebook-api/internal/models"
	"github.com/edufam/gradebook-api/internal/service"
	appErrors "github.com/edufam/gradebook-api/pkg/errors"
	"github.com/edufam/gradebook-api/pkg/response"
)

// ApprovalHandler exposes the principal-side approval endpoints.
type ApprovalHandler struct {
	approvals *service.ApprovalService
}

// NewApprovalHandler constructs handler.
func NewApprovalHandler(approvals *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals}
}

// TransitionRequest identifies the scope being transitioned. Notes accompany
// rejections so the author knows what to fix.
type TransitionRequest struct {
	ClassID  string `json:"class_id"`
	Term     string `json:"term"`
	ExamType string `json:"exam_type"`
	Notes    string `json:"notes,omitempty"`
}

func (h *ApprovalHandler) scope(c *gin.Context, req TransitionRequest) (models.Scope, models.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Scope{}, models.Actor{}, false
	}
	scope := models.Scope{
		SchoolID: claims.SchoolID,
		ClassID:  req.ClassID,
		Term:     req.Term,
		ExamType: req.ExamType,
	}
	return scope, claims.Actor(), true
}

func (h *ApprovalHandler) bind(c *gin.Context) (TransitionRequest, bool) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return req, false
	}
	return req, true
}

// Approve godoc
// @Summary Approve submitted grades
// @Tags Approval
// @Accept json
// @Produce json
// @Param payload body TransitionRequest true "Scope"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /gradebook/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	scope, actor, ok := h.scope(c, req)
	if !ok {
		return
	}
	result, err := h.approvals.Approve(c.Request.Context(), scope, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject submitted grades back to their author
// @Tags Approval
// @Accept json
// @Produce json
// @Param payload body TransitionRequest true "Scope and notes"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /gradebook/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	scope, actor, ok := h.scope(c, req)
	if !ok {
		return
	}
	result, err := h.approvals.Reject(c.Request.Context(), scope, actor, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Release godoc
// @Summary Release approved grades to students and parents
// @Tags Approval
// @Accept json
// @Produce json
// @Param payload body TransitionRequest true "Scope"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /gradebook/release [post]
func (h *ApprovalHandler) Release(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	scope, actor, ok := h.scope(c, req)
	if !ok {
		return
	}
	result, err := h.approvals.Release(c.Request.Context(), scope, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

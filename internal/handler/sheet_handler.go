package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edufam/gradebook-api/internal/models"
	"github.com/edufam/gradebook-api/internal/service"
	appErrors "github.com/edufam/gradebook-api/pkg/errors"
	"github.com/edufam/gradebook-api/pkg/response"
)

// SheetHandler exposes the grading sheet endpoints. The school is always
// taken from the caller's token, never from the request.
type SheetHandler struct {
	gradebook *service.GradebookService
	curricula *service.CurriculumService
}

// NewSheetHandler constructs handler.
func NewSheetHandler(gradebook *service.GradebookService, curricula *service.CurriculumService) *SheetHandler {
	return &SheetHandler{gradebook: gradebook, curricula: curricula}
}

// SaveGradesRequest is the payload for draft saves and submissions.
type SaveGradesRequest struct {
	ClassID  string            `json:"class_id"`
	Term     string            `json:"term"`
	ExamType string            `json:"exam_type"`
	Grades   models.GradeBatch `json:"grades"`
}

func (h *SheetHandler) scopeFromQuery(c *gin.Context) (models.Scope, models.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Scope{}, models.Actor{}, false
	}
	scope := models.Scope{
		SchoolID: claims.SchoolID,
		ClassID:  c.Query("classId"),
		Term:     c.Query("term"),
		ExamType: c.Query("examType"),
	}
	return scope, claims.Actor(), true
}

func (h *SheetHandler) scopeFromBody(c *gin.Context, req SaveGradesRequest) (models.Scope, models.Actor, bool) {
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

// Load godoc
// @Summary Load the grading sheet for a class scope
// @Tags Gradebook
// @Produce json
// @Param classId query string true "Class ID"
// @Param term query string true "Term"
// @Param examType query string true "Exam type"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /gradebook/sheet [get]
func (h *SheetHandler) Load(c *gin.Context) {
	scope, actor, ok := h.scopeFromQuery(c)
	if !ok {
		return
	}
	sheet, err := h.gradebook.LoadSheet(c.Request.Context(), scope, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, sheet.Warnings)
}

// Curriculum godoc
// @Summary Describe the curriculum of a class
// @Tags Gradebook
// @Produce json
// @Param classId query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /gradebook/curriculum [get]
func (h *SheetHandler) Curriculum(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	curriculum, info, err := h.curricula.Describe(c.Request.Context(), claims.SchoolID, c.Query("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"curriculum": curriculum, "info": info}, nil)
}

// SaveDraft godoc
// @Summary Save grades as a draft
// @Tags Gradebook
// @Accept json
// @Produce json
// @Param payload body SaveGradesRequest true "Grade batch"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /gradebook/draft [post]
func (h *SheetHandler) SaveDraft(c *gin.Context) {
	var req SaveGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	scope, actor, ok := h.scopeFromBody(c, req)
	if !ok {
		return
	}
	result, err := h.gradebook.SaveDraft(c.Request.Context(), scope, actor, req.Grades)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Submit godoc
// @Summary Submit grades for approval
// @Tags Gradebook
// @Accept json
// @Produce json
// @Param payload body SaveGradesRequest true "Grade batch"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /gradebook/submit [post]
func (h *SheetHandler) Submit(c *gin.Context) {
	var req SaveGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	scope, actor, ok := h.scopeFromBody(c, req)
	if !ok {
		return
	}
	result, err := h.gradebook.Submit(c.Request.Context(), scope, actor, req.Grades)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

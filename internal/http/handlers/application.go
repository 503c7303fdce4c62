package handlers

import (
	"net/http"
	"strings"

	"internportal/internal/app"
	"internportal/internal/domain/application"
	"internportal/internal/http/response"
)

type ApplicationHandler struct {
	applications *app.ApplicationService
}

func NewApplicationHandler(applications *app.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

type applyRequest struct {
	InternshipID string `json:"internship_id"`
	CoverLetter  string `json:"cover_letter"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req applyRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	internshipID, err := uuidField(req.InternshipID, "internship_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.applications.Submit(r.Context(), subject, app.SubmitInput{InternshipID: internshipID, CoverLetter: req.CoverLetter})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	filter := application.Filter{Status: application.Status(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))))}
	if filter.InternshipID, err = optionalUUIDQuery(r, "internship_id"); err != nil {
		response.Error(w, err)
		return
	}
	if filter.StudentID, err = optionalUUIDQuery(r, "student_id"); err != nil {
		response.Error(w, err)
		return
	}
	if filter.Limit, filter.Offset, err = pageFromQuery(r); err != nil {
		response.Error(w, err)
		return
	}
	items, err := h.applications.List(r.Context(), subject, filter)
	if err != nil {
		response.Error(w, err)
		return
	}
	if items == nil {
		items = []application.Application{}
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	id, err := idFromPath(r, "id", "application")
	if err != nil {
		response.Error(w, err)
		return
	}
	item, err := h.applications.Get(r.Context(), subject, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	id, err := idFromPath(r, "id", "application")
	if err != nil {
		response.Error(w, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	next := application.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	updated, err := h.applications.UpdateStatus(r.Context(), subject, id, next)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

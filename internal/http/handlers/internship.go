package handlers

import (
	"net/http"
	"strings"

	"internportal/internal/app"
	"internportal/internal/common"
	"internportal/internal/domain/internship"
	"internportal/internal/http/response"
)

type InternshipHandler struct {
	internships *app.InternshipService
}

func NewInternshipHandler(internships *app.InternshipService) *InternshipHandler {
	return &InternshipHandler{internships: internships}
}

func (h *InternshipHandler) List(w http.ResponseWriter, r *http.Request) {
	query := app.InternshipQuery{ActiveOnly: strings.EqualFold(r.URL.Query().Get("scope"), "active")}
	if value := strings.TrimSpace(r.URL.Query().Get("status")); value != "" {
		status, ok := internship.ParseStatus(value)
		if !ok {
			response.Error(w, common.NewValidationError("invalid status", map[string]string{"status": "must be one of: pending_review active closed rejected"}))
			return
		}
		query.Status = status
	}
	employerID, err := optionalUUIDQuery(r, "employer_id")
	if err != nil {
		response.Error(w, err)
		return
	}
	query.EmployerID = employerID
	if query.Limit, query.Offset, err = pageFromQuery(r); err != nil {
		response.Error(w, err)
		return
	}
	items, err := h.internships.List(r.Context(), subjectOrAnonymous(r), query)
	if err != nil {
		response.Error(w, err)
		return
	}
	if items == nil {
		items = []internship.Internship{}
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *InternshipHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, "id", "internship")
	if err != nil {
		response.Error(w, err)
		return
	}
	item, err := h.internships.Get(r.Context(), subjectOrAnonymous(r), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *InternshipHandler) Create(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req app.InternshipInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	created, err := h.internships.Create(r.Context(), subject, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

// Update takes a status move, a field edit, or both in one body.
func (h *InternshipHandler) Update(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	id, err := idFromPath(r, "id", "internship")
	if err != nil {
		response.Error(w, err)
		return
	}
	var patch app.InternshipPatch
	if err := decodeJSON(r, &patch); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.internships.Revise(r.Context(), subject, id, patch)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"internportal/internal/app"
	"internportal/internal/common"
	"internportal/internal/domain/account"
	"internportal/internal/http/response"
)

type AdminHandler struct {
	admin *app.AdminService
}

func NewAdminHandler(admin *app.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListAccounts accepts ?role= in any form the signup routes accept.
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var role account.Role
	if value := strings.TrimSpace(r.URL.Query().Get("role")); value != "" {
		parsed, ok := account.ParseRole(value)
		if !ok {
			response.Error(w, common.NewValidationError("invalid filter", map[string]string{"role": "must be one of: student employer admin super_admin"}))
			return
		}
		role = parsed
	}
	limit, offset, err := pageFromQuery(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	items, err := h.admin.ListAccounts(r.Context(), subject, role, limit, offset)
	if err != nil {
		response.Error(w, err)
		return
	}
	if items == nil {
		items = []account.Account{}
	}
	response.JSON(w, http.StatusOK, items)
}

// ListEmployers serves the approval queue: ?approved=false lists pending
// employers.
func (h *AdminHandler) ListEmployers(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var approved *bool
	if value := strings.TrimSpace(r.URL.Query().Get("approved")); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			response.Error(w, common.NewValidationError("invalid filter", map[string]string{"approved": "must be true or false"}))
			return
		}
		approved = &parsed
	}
	limit, offset, err := pageFromQuery(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	items, err := h.admin.ListEmployers(r.Context(), subject, approved, limit, offset)
	if err != nil {
		response.Error(w, err)
		return
	}
	if items == nil {
		items = []account.Account{}
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *AdminHandler) ApproveEmployer(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	id, err := idFromPath(r, "id", "employer")
	if err != nil {
		response.Error(w, err)
		return
	}
	approved, err := h.admin.ApproveEmployer(r.Context(), subject, id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, approved)
}

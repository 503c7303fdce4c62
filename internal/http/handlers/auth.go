package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"internportal/internal/access"
	"internportal/internal/app"
	"internportal/internal/common"
	"internportal/internal/domain/account"
	"internportal/internal/http/middleware"
	"internportal/internal/http/response"
)

type AccountHandler struct {
	auth *app.AuthService
}

func NewAccountHandler(auth *app.AuthService) *AccountHandler {
	return &AccountHandler{auth: auth}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func roleFromPath(r *http.Request) (account.Role, error) {
	role, ok := account.ParseRole(mux.Vars(r)["role"])
	if !ok {
		return "", common.NewError(common.CodeNotFound, "unknown account type", nil)
	}
	return role, nil
}

// Signup is public for students and employers. The caller's token, when
// present, only matters for creating admins.
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	role, err := roleFromPath(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req app.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	req.Role = role
	actor, _ := middleware.SubjectFromContext(r.Context())
	created, err := h.auth.Register(r.Context(), actor, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, created)
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	role, err := roleFromPath(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	session, err := h.auth.Authenticate(r.Context(), role, req.Email, req.Password)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, session)
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	current, err := h.auth.Me(r.Context(), subject)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, current)
}

func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req app.ProfileInput
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.auth.UpdateProfile(r.Context(), subject, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

// subjectOrAnonymous is used by routes readable without a token.
func subjectOrAnonymous(r *http.Request) access.Subject {
	subject, _ := middleware.SubjectFromContext(r.Context())
	return subject
}

package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"internportal/internal/common"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Error
}

func TestErrorMapsCodes(t *testing.T) {
	cases := map[common.Code]int{
		common.CodeValidation:           http.StatusBadRequest,
		common.CodeDuplicateEmail:       http.StatusConflict,
		common.CodeInvalidCredentials:   http.StatusUnauthorized,
		common.CodeNotApproved:          http.StatusForbidden,
		common.CodeInvalidToken:         http.StatusUnauthorized,
		common.CodeForbidden:            http.StatusForbidden,
		common.CodeInvalidTransition:    http.StatusConflict,
		common.CodeInternshipNotActive:  http.StatusConflict,
		common.CodeDuplicateApplication: http.StatusConflict,
		common.CodeNotFound:             http.StatusNotFound,
		common.CodeRateLimited:          http.StatusTooManyRequests,
	}
	for code, status := range cases {
		rec := httptest.NewRecorder()
		Error(rec, common.NewError(code, "boom", nil))
		if rec.Code != status {
			t.Fatalf("%s: expected %d, got %d", code, status, rec.Code)
		}
		if got := decodeError(t, rec); got.Kind != code || got.Message != "boom" {
			t.Fatalf("%s: unexpected body %+v", code, got)
		}
	}
}

func TestErrorHidesInfrastructureDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, common.NewError(common.CodeStoreUnavailable, "pq: connection refused on 10.0.0.5", errors.New("dial tcp")))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") || strings.Contains(rec.Body.String(), "dial") {
		t.Fatalf("leaked detail: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	Error(rec, errors.New("sql: duplicate key value violates unique constraint"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Kind != common.CodeInternal || got.Message != "internal error" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestErrorIncludesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, common.NewValidationError("invalid", map[string]string{"email": "is required"}))
	if got := decodeError(t, rec); got.Fields["email"] != "is required" {
		t.Fatalf("expected field errors, got %+v", got)
	}
}

package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"internportal/internal/common"
)

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Kind    common.Code       `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var statusByCode = map[common.Code]int{
	common.CodeValidation:           http.StatusBadRequest,
	common.CodeDuplicateEmail:       http.StatusConflict,
	common.CodeInvalidCredentials:   http.StatusUnauthorized,
	common.CodeNotApproved:          http.StatusForbidden,
	common.CodeInvalidToken:         http.StatusUnauthorized,
	common.CodeUnauthorized:         http.StatusUnauthorized,
	common.CodeForbidden:            http.StatusForbidden,
	common.CodeInvalidTransition:    http.StatusConflict,
	common.CodeInternshipNotActive:  http.StatusConflict,
	common.CodeDuplicateApplication: http.StatusConflict,
	common.CodeNotFound:             http.StatusNotFound,
	common.CodeRateLimited:          http.StatusTooManyRequests,
	common.CodeStoreUnavailable:     http.StatusServiceUnavailable,
	common.CodeInternal:             http.StatusInternalServerError,
}

// Status maps an error code to its HTTP status.
func Status(code common.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// Error renders err. Infrastructure failures never expose their cause; the
// cause is left on the writer for the logging middleware.
func Error(w http.ResponseWriter, err error) {
	var appErr *common.Error
	if !errors.As(err, &appErr) {
		appErr = common.NewError(common.CodeInternal, "internal error", err)
	}
	payload := errorPayload{Kind: appErr.Code, Message: appErr.Message, Fields: appErr.Fields}
	switch appErr.Code {
	case common.CodeInternal:
		payload.Message = "internal error"
		payload.Fields = nil
	case common.CodeStoreUnavailable:
		payload.Message = "service temporarily unavailable"
		payload.Fields = nil
	}
	if recorder, ok := w.(ErrorRecorder); ok {
		recorder.RecordError(err)
	}
	JSON(w, Status(appErr.Code), errorBody{Error: payload})
}

// ErrorRecorder is implemented by wrapping writers that want the failure
// behind a response, e.g. for logging.
type ErrorRecorder interface {
	RecordError(err error)
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"internportal/internal/access"
	"internportal/internal/common"
	"internportal/internal/http/middleware"
)

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return common.NewValidationError("request body too large", nil)
		case errors.Is(err, io.EOF):
			return common.NewValidationError("request body is required", nil)
		default:
			return common.NewValidationError("invalid json body", map[string]string{"body": err.Error()})
		}
	}
	if decoder.More() {
		return common.NewValidationError("invalid json body", map[string]string{"body": "unexpected trailing data"})
	}
	return nil
}

func errUnauthorized() error {
	return common.NewError(common.CodeUnauthorized, "authentication required", nil)
}

func subjectFrom(r *http.Request) (access.Subject, error) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok || subject.Anonymous() {
		return access.Subject{}, errUnauthorized()
	}
	return subject, nil
}

// idFromPath reads a uuid route variable. A malformed id cannot name an
// existing row, so it is reported as not found.
func idFromPath(r *http.Request, name, noun string) (common.UUID, error) {
	id, err := common.ParseUUID(mux.Vars(r)[name])
	if err != nil {
		return "", common.NewError(common.CodeNotFound, noun+" not found", nil)
	}
	return id, nil
}

func uuidField(value, field string) (common.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", common.NewValidationError("invalid request", map[string]string{field: field + " is required"})
	}
	id, err := common.ParseUUID(value)
	if err != nil {
		return "", common.NewValidationError("invalid request", map[string]string{field: "invalid uuid"})
	}
	return id, nil
}

func optionalUUIDQuery(r *http.Request, field string) (common.UUID, error) {
	if strings.TrimSpace(r.URL.Query().Get(field)) == "" {
		return "", nil
	}
	return uuidField(r.URL.Query().Get(field), field)
}

func pageFromQuery(r *http.Request) (limit, offset int, err error) {
	query := r.URL.Query()
	fields := map[string]string{}
	if value := query.Get("limit"); value != "" {
		limit, err = strconv.Atoi(value)
		if err != nil || limit < 0 {
			fields["limit"] = "must be a non-negative integer"
		}
	}
	if value := query.Get("offset"); value != "" {
		offset, err = strconv.Atoi(value)
		if err != nil || offset < 0 {
			fields["offset"] = "must be a non-negative integer"
		}
	}
	if len(fields) > 0 {
		return 0, 0, common.NewValidationError("invalid paging", fields)
	}
	return limit, offset, nil
}

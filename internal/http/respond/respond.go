// Package respond holds the JSON plumbing shared by the HTTP handlers.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/treasury/internal/apperr"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes err as an error body. Errors without a kind become a 500
// whose message is logged and hidden from the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)

		JSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
			Kind:    "INTERNAL",
			Message: "internal error",
		}})

		return
	}

	JSON(w, apperr.HTTPStatus(appErr.Kind), errorBody{Error: errorDetail{
		Kind:    string(appErr.Kind),
		Message: appErr.Message,
	}})
}

// Decode reads a JSON body into T and validates it.
func Decode[T any](w http.ResponseWriter, r *http.Request) (*T, error) {
	var v T

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.InvalidInput("request body is empty")
		}

		return nil, apperr.InvalidInput("invalid request body: %v", err)
	}

	if err := Validate(&v); err != nil {
		return nil, err
	}

	return &v, nil
}

func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.InvalidInput("field %s failed on %s", fe.Field(), fe.Tag())
		}

		return apperr.InvalidInput("invalid request: %v", err)
	}

	return nil
}

// IDParam parses the chi URL parameter name as a UUID.
func IDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.InvalidInput("invalid %s", name)
	}

	return id, nil
}

// Page reads limit and offset query parameters. limit defaults to def and
// is capped at 500.
func Page(r *http.Request, def int) (limit, offset int, err error) {
	limit, offset = def, 0

	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 {
			return 0, 0, apperr.InvalidInput("invalid limit")
		}
	}

	if s := r.URL.Query().Get("offset"); s != "" {
		offset, err = strconv.Atoi(s)
		if err != nil || offset < 0 {
			return 0, 0, apperr.InvalidInput("invalid offset")
		}
	}

	return min(limit, 500), offset, nil
}

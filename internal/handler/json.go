package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
)

const maxBodyBytes = 1 << 20

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// envelope is the data object of a successful response.
type envelope map[string]any

func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.Validation("Request body must not be empty")
		case errors.As(err, &maxBytesErr):
			return apperror.Validation("Request body is too large")
		default:
			return apperror.Validation("Invalid request body")
		}
	}

	return nil
}

// decode reads the body into v and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := h.readJSON(w, r, v); err != nil {
		return err
	}
	return h.validator.Struct(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "method", r.Method, "path", r.URL.Path, "error", err)
	}
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{Success: true, Message: msg, Data: data})
}

func (h *Handler) createdResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusCreated, Response{Success: true, Message: msg, Data: data})
}

// fail is the only place an error becomes a response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.From(err)

	if appErr.Status >= http.StatusInternalServerError {
		slog.Error("internal server error", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	h.writeJSON(w, r, appErr.Status, Response{Success: false, Message: appErr.Message})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r, apperror.NotFound("Route not found"))
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusMethodNotAllowed, Response{Success: false, Message: "Method not allowed"})
}

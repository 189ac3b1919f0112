package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/apperror"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/auth"
	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		slog.Info("request handled",
			"request_id", middleware.GetReqID(r.Context()),
			"status", rw.StatusCode,
			"ip", r.RemoteAddr,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				h.fail(w, r, apperror.Unknown(fmt.Errorf("panic: %v", err)))
				if !h.config.IsProduction() {
					// raw print keeps the trace readable
					fmt.Fprint(h.traceOut, string(debug.Stack()))
				}
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the bearer token to a stored user and puts both in the context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			h.fail(w, r, err)
			return
		}

		claims, err := h.tokens.Parse(token)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		revoked, err := h.sessions.IsRevoked(r.Context(), token)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if revoked {
			h.fail(w, r, apperror.Auth("Token has been revoked"))
			return
		}

		user, err := h.store.GetUserByID(r.Context(), claims.Subject)
		if err != nil {
			if apperror.IsKind(err, apperror.KindNotFound) {
				h.fail(w, r, apperror.Auth("Invalid user"))
				return
			}
			h.fail(w, r, err)
			return
		}

		r = withValue(r, MeCtx, user)
		r = withValue(r, TokenCtx, token)
		next.ServeHTTP(w, r)
	})
}

// requireRole lets the request through when the caller's role is one of roles.
func (h *Handler) requireRole(roles ...domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !domain.IsAuthorized(me(r).Role, roles...) {
				h.fail(w, r, apperror.Authorization("You do not have permission to access"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) userInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.store.GetUserByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.fail(w, r, err)
			return
		}

		next.ServeHTTP(w, withValue(r, UserInfoCtx, user))
	})
}

func (h *Handler) permissionInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.store.GetPermissionByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.fail(w, r, err)
			return
		}

		next.ServeHTTP(w, withValue(r, PermissionCtx, p))
	})
}

func (h *Handler) preventOperateInitialAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userInfo(r).Email == normalizeEmail(h.config.InitialAdmin.Email) {
			h.fail(w, r, apperror.Authorization("Cannot operate on the initial admin"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

package handler

import (
	"context"
	"net/http"

	"github.com/sysu-ecnc-dev/permission-manager/backend/internal/domain"
)

type ContextKey string

var (
	MeCtx         ContextKey = "me"
	TokenCtx      ContextKey = "token"
	UserInfoCtx   ContextKey = "userInfo"
	PermissionCtx ContextKey = "permission"
)

func withValue(r *http.Request, key ContextKey, v any) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), key, v))
}

// me returns the authenticated caller. Only valid behind authenticate.
func me(r *http.Request) *domain.User {
	return r.Context().Value(MeCtx).(*domain.User)
}

func bearerToken(r *http.Request) string {
	return r.Context().Value(TokenCtx).(string)
}

func userInfo(r *http.Request) *domain.User {
	return r.Context().Value(UserInfoCtx).(*domain.User)
}

func permissionInfo(r *http.Request) *domain.Permission {
	return r.Context().Value(PermissionCtx).(*domain.Permission)
}

package app

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

type contextKey string

const (
	userIdContextKey   = contextKey("userId")
	userRoleContextKey = contextKey("userRole")
)

const roleAdmin = "admin"

func (app *Application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// withIdentity reads the identity headers set by the authenticating proxy in
// front of this service. Requests arriving without them are anonymous.
func (app *Application) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("X-User-Id")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		userId, err := strconv.Atoi(header)
		if err != nil || userId <= 0 {
			app.unauthorizedResponse(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userIdContextKey, userId)
		ctx = context.WithValue(ctx, userRoleContextKey, r.Header.Get("X-User-Role"))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *Application) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.contextGetUserId(r) == 0 {
			app.unauthorizedResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *Application) contextGetUserId(r *http.Request) int {
	userId, ok := r.Context().Value(userIdContextKey).(int)
	if !ok {
		return 0
	}

	return userId
}

func (app *Application) contextIsAdmin(r *http.Request) bool {
	role, ok := r.Context().Value(userRoleContextKey).(string)
	return ok && role == roleAdmin
}

package middlewarectx_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/insight-console/internal/http/middlewarectx"
	"github.com/magabrotheeeer/insight-console/internal/lib/dedup"
	"github.com/magabrotheeeer/insight-console/internal/models"
)

type AuthServiceMock struct {
	mock.Mock
}

func (m *AuthServiceMock) Verify(ctx context.Context, token string) (*models.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newWindow() *dedup.Window {
	return dedup.New(time.Minute, 100)
}

func TestJWTMiddleware(t *testing.T) {
	authMock := new(AuthServiceMock)
	logger := newNoopLogger()

	handlerCalled := false

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		uid := r.Context().Value(middlewarectx.UserUID)
		role := r.Context().Value(middlewarectx.Role)
		assert.Equal(t, "user-uid-1", uid)
		assert.Equal(t, models.RoleAnalyst, role)
		w.WriteHeader(http.StatusOK)
	})

	mw := middlewarectx.JWTMiddleware(authMock, newWindow(), logger)(nextHandler)

	tests := []struct {
		name           string
		authHeader     string
		mockUser       *models.User
		mockErr        error
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "missing Authorization header",
			authHeader:     "",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:           "token verification error",
			authHeader:     "Bearer badtoken",
			mockUser:       nil,
			mockErr:        errors.New("unauthorized"),
			wantStatusCode: http.StatusUnauthorized,
			wantCalled:     false,
		},
		{
			name:       "valid token",
			authHeader: "Bearer validtoken",
			mockUser: &models.User{
				UID:   "user-uid-1",
				Email: "analyst@example.com",
				Role:  models.RoleAnalyst,
			},
			mockErr:        nil,
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled = false
			authMock.ExpectedCalls = nil
			authMock.Calls = nil
			if tt.mockUser != nil || tt.mockErr != nil {
				authMock.On("Verify", mock.Anything, strings.TrimPrefix(tt.authHeader, "Bearer ")).
					Return(tt.mockUser, tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodGet, "/somepath", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			rec := httptest.NewRecorder()

			mw.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)
			authMock.AssertExpectations(t)
		})
	}
}

func TestRequireRole(t *testing.T) {
	logger := newNoopLogger()

	tests := []struct {
		name           string
		ctxRole        any
		allowed        []string
		wantStatusCode int
	}{
		{
			name:           "role allowed",
			ctxRole:        models.RoleAdmin,
			allowed:        []string{models.RoleAdmin},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "role denied",
			ctxRole:        models.RoleViewer,
			allowed:        []string{models.RoleAdmin},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "one of several roles",
			ctxRole:        models.RoleAnalyst,
			allowed:        []string{models.RoleAdmin, models.RoleOwner, models.RoleAnalyst},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "role missing from context",
			ctxRole:        nil,
			allowed:        []string{models.RoleAdmin},
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			mw := middlewarectx.RequireRole(logger, tt.allowed...)(next)

			req := httptest.NewRequest(http.MethodGet, "/somepath", nil)
			if tt.ctxRole != nil {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.Role, tt.ctxRole))
			}
			rec := httptest.NewRecorder()

			mw.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatusCode, rec.Code)
		})
	}
}

func TestRequirePermission(t *testing.T) {
	logger := newNoopLogger()

	tests := []struct {
		name           string
		role           string
		action         string
		resource       string
		wantStatusCode int
	}{
		{
			name:           "admin registers users",
			role:           models.RoleAdmin,
			action:         "user.register",
			resource:       "user",
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "viewer cannot refresh dashboards",
			role:           models.RoleViewer,
			action:         "dashboard.refresh",
			resource:       "dashboard",
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "analyst refreshes dashboards",
			role:           models.RoleAnalyst,
			action:         "dashboard.refresh",
			resource:       "dashboard",
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			mw := middlewarectx.RequirePermission(logger, tt.action, tt.resource)(next)

			req := httptest.NewRequest(http.MethodGet, "/somepath", nil)
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.Role, tt.role))
			rec := httptest.NewRecorder()

			mw.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatusCode, rec.Code)
		})
	}
}

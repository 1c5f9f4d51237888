package register_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/insight-console/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/insight-console/internal/http/middlewarectx"
	"github.com/magabrotheeeer/insight-console/internal/models"
	"github.com/magabrotheeeer/insight-console/internal/services/auth"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(ctx context.Context, email, name, password, role string) (*models.User, error) {
	args := m.Called(ctx, email, name, password, role)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

type AuditorMock struct {
	mock.Mock
}

func (m *AuditorMock) Record(event models.AuditEvent) {
	m.Called(event)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestRegisterHandler(t *testing.T) {
	created := &models.User{
		UID:    "new-uid",
		Email:  "new@example.com",
		Name:   "New User",
		Role:   models.RoleViewer,
		Status: models.StatusActive,
	}

	tests := []struct {
		name           string
		body           string
		mockUser       *models.User
		mockErr        error
		expectCall     bool
		expectAudit    bool
		wantStatusCode int
	}{
		{
			name:           "success",
			body:           `{"email":"new@example.com","name":"New User","password":"secret123","role":"viewer"}`,
			mockUser:       created,
			expectCall:     true,
			expectAudit:    true,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "duplicate email",
			body:           `{"email":"taken@example.com","name":"Taken","password":"secret123","role":"viewer"}`,
			mockErr:        auth.ErrUserExists,
			expectCall:     true,
			wantStatusCode: http.StatusConflict,
		},
		{
			name:           "unknown role",
			body:           `{"email":"new@example.com","name":"New User","password":"secret123","role":"superuser"}`,
			wantStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:           "malformed json",
			body:           `{not json`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			auditor := new(AuditorMock)
			if tt.expectCall {
				svc.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(tt.mockUser, tt.mockErr).Once()
			}
			if tt.expectAudit {
				auditor.On("Record", mock.MatchedBy(func(e models.AuditEvent) bool {
					return e.Action == "user.register" &&
						e.ActorUID == "admin-uid" &&
						e.ResourceID == created.UID
				})).Once()
			}
			handler := register.New(newNoopLogger(), svc, auditor)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, "admin-uid"))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			svc.AssertExpectations(t)
			auditor.AssertExpectations(t)
		})
	}
}

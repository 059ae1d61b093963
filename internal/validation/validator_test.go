package validation_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
	"github.com/taskboard/taskboard-server/internal/validation"
)

type TestRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
	Name     string `json:"name" validate:"notblank"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=admin member"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		Email:    "test@example.com",
		Password: "password123",
		Name:     "Test User",
	}

	assert.NoError(t, v.Validate(req))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       TestRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "blank name",
			req:       TestRequest{Email: "test@example.com", Password: "password123", Name: "   "},
			wantField: "name",
			wantMsg:   "name is required",
		},
		{
			name:      "invalid email",
			req:       TestRequest{Email: "not-an-email", Password: "password123", Name: "Test"},
			wantField: "email",
			wantMsg:   "email must be a valid email address",
		},
		{
			name:      "password too short",
			req:       TestRequest{Email: "test@example.com", Password: "short", Name: "Test"},
			wantField: "password",
			wantMsg:   "password must be at least 8 characters",
		},
		{
			name:      "password too long",
			req:       TestRequest{Email: "test@example.com", Password: strings.Repeat("x", 1025), Name: "Test"},
			wantField: "password",
			wantMsg:   "password must not exceed 1024 characters",
		},
		{
			name:      "unknown role",
			req:       TestRequest{Email: "test@example.com", Password: "password123", Name: "Test", Role: "owner"},
			wantField: "role",
			wantMsg:   "role must be one of: admin member",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
			assert.Equal(t, tt.wantMsg, domainErr.Message)

			fields := validation.FieldErrors(err)
			require.Len(t, fields, 1)
			assert.Equal(t, tt.wantField, fields[0].Field)
		})
	}
}

func TestValidator_CollectsEveryField(t *testing.T) {
	v := validation.New()

	err := v.Validate(TestRequest{})
	require.Error(t, err)

	fields := validation.FieldErrors(err)
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	assert.ElementsMatch(t, []string{"email", "password", "name"}, names)
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(TestRequest{Password: "password123", Name: "Test"})
	require.Error(t, err)

	// Should use JSON tag name "email", not struct field name "Email"
	assert.Contains(t, err.Error(), "email")
	assert.NotContains(t, err.Error(), "Email")
}

func TestFieldErrors_NonValidation(t *testing.T) {
	assert.Nil(t, validation.FieldErrors(domainerrors.NotFound("Board not found")))
	assert.Nil(t, validation.FieldErrors(nil))
}

package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"validation", apperr.NewValidation("missing field"), apperr.Validation},
		{"wrapped transport", fmt.Errorf("refresh: %w", apperr.NewTransport("fetch orders", cause)), apperr.Transport},
		{"protocol", apperr.NewProtocol("save", "malformed", nil), apperr.Protocol},
		{"auth", apperr.NewAuth("verify", "expired"), apperr.Auth},
		{"plain", cause, ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.KindOf(tt.err))
		})
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := apperr.NewTransport("fetch orders", cause)

	assert.Equal(t, "fetch orders: transport error: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, apperr.IsTransport(err))
	assert.False(t, apperr.IsAuth(err))

	assert.Equal(t, "validation error: no slots selected", apperr.NewValidation("no slots selected").Error())
	assert.Equal(t, "save: protocol error: bad shape: eof",
		apperr.NewProtocol("save", "bad shape", errors.New("eof")).Error())
}

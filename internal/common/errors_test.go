package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, KindPermanent, KindOf(errors.New("boom")), "untagged errors are never retried")
	assert.Equal(t, KindTransient, KindOf(NewTransientError("", errors.New("dial tcp"))))

	wrapped := fmt.Errorf("saving profile: %w", NewNotFoundError(nil))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.False(t, IsTransient(wrapped))
}

func TestServiceError_Unwrap(t *testing.T) {
	root := errors.New("connection reset")
	err := NewTransientError(CodeNetworkRequestFailed, root)

	assert.ErrorIs(t, err, root)
	assert.Contains(t, err.Error(), "transient/network-request-failed")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "untagged", err: errors.New("weird"), want: MsgGeneric},
		{name: "validation keeps field message", err: NewValidationError("Email is required"), want: "Email is required"},
		{name: "transient is connection flavored", err: NewTransientError(CodeUnavailable, nil), want: MsgConnection},
		{name: "mapped code", err: NewPermanentError(CodeWrongPassword, nil), want: "Incorrect password. Please try again."},
		{name: "unmapped code falls back", err: NewPermanentError("quota-exceeded", nil), want: MsgGeneric},
		{name: "not authenticated", err: ErrNotAuthenticated, want: "You need to sign in first."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestFail(t *testing.T) {
	res := Fail[string](NewPermanentError(CodeEmailAlreadyInUse, nil))

	assert.False(t, res.Success)
	assert.Equal(t, KindPermanent, res.Kind)
	assert.Equal(t, CodeEmailAlreadyInUse, res.Code)
	assert.Equal(t, "This email is already registered. Try logging in instead.", res.Error)
}

func TestStatusForResult(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusForResult(KindValidation, CodeValidation))
	assert.Equal(t, http.StatusServiceUnavailable, StatusForResult(KindTransient, CodeUnavailable))
	assert.Equal(t, http.StatusUnauthorized, StatusForResult(KindNotAuthenticated, CodeNotAuthenticated))
	assert.Equal(t, http.StatusNotFound, StatusForResult(KindNotFound, CodeNotFound))
	assert.Equal(t, http.StatusConflict, StatusForResult(KindPermanent, CodeEmailAlreadyInUse))
	assert.Equal(t, http.StatusBadRequest, StatusForResult(KindPermanent, CodeWrongPassword))
	assert.Equal(t, http.StatusInternalServerError, StatusForResult(KindPermanent, CodeInternal))
}

func TestAPIError_WithDetailsCopies(t *testing.T) {
	detailed := ErrBadRequest.WithDetails("bad json")

	assert.Equal(t, "bad json", detailed.Details)
	assert.Nil(t, ErrBadRequest.Details)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(45, 2, 20)

	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	empty := NewPagination(0, 1, 20)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
}

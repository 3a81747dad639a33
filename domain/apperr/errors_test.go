package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same kind", NotFound("task %s not found", "1"), ErrNotFound, true},
		{"different kind", NotFound("task not found"), ErrValidation, false},
		{"wrapped", fmt.Errorf("get: %w", Validation("title is required")), ErrValidation, true},
		{"plain error", errors.New("boom"), ErrNotFound, false},
		{"non-sentinel target", AlreadyExists("x"), AlreadyExists("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindAuthentication, KindOf(fmt.Errorf("login: %w", Authentication("bad"))))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "title is required", Message(Validation("title is required")))
	assert.Equal(t, "an internal error occurred", Message(errors.New("driver exploded")))
	assert.Equal(t, "not_found", Message(ErrNotFound))
}

func TestWrap_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindInternal, cause, "failed to save task")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to save task: connection reset", err.Error())
}

func TestPayload_RoundTrip(t *testing.T) {
	assert.Nil(t, ToPayload(nil))
	assert.NoError(t, (*Payload)(nil).Err())

	p := ToPayload(fmt.Errorf("update: %w", NotFound("task 42 not found")))
	err := p.Err()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "task 42 not found", err.Error())

	internal := ToPayload(errors.New("pq: connection refused")).Err()
	assert.Equal(t, KindInternal, KindOf(internal))
	assert.NotContains(t, internal.Error(), "pq")
}

package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkSurvivesFmtWrapping(t *testing.T) {
	err := Mark(fmt.Errorf("parse state: %w", io.ErrUnexpectedEOF), ErrCorruptState)
	wrapped := fmt.Errorf("load history: %w", err)

	assert.True(t, Is(wrapped, ErrCorruptState))
	assert.True(t, Is(wrapped, io.ErrUnexpectedEOF))
	assert.False(t, Is(wrapped, ErrStateUnavailable))
	assert.Contains(t, wrapped.Error(), "unexpected EOF")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "corrupt", err: Mark(New("bad json"), ErrCorruptState), want: 1},
		{name: "lock", err: fmt.Errorf("run: %w", Mark(New("held"), ErrLockContention)), want: 1},
		{name: "argument", err: Mark(New("mode"), ErrInvalidArgument), want: 2},
		{name: "config", err: Mark(New("token"), ErrConfig), want: 2},
		{name: "other", err: New("boom"), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestIsAbort(t *testing.T) {
	assert.True(t, IsAbort(Mark(New("x"), ErrStateUnavailable)))
	assert.False(t, IsAbort(Mark(New("x"), ErrPublish)))
	assert.False(t, IsAbort(nil))
}

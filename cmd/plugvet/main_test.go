package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateBlockedError(t *testing.T) {
	err := &GateBlockedError{
		Message: "gate blocked: 2 failed, 1 critical regression(s)",
	}

	assert.Equal(t, "gate blocked: 2 failed, 1 critical regression(s)", err.Error())
}

func TestCheckFailedError(t *testing.T) {
	err := &CheckFailedError{Problems: 3}

	assert.Equal(t, "check found 3 problem(s)", err.Error())
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, "plugvet dev\n", out.String())
}

func TestErrorTypeDetection(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantBlocked bool
	}{
		{
			name:        "GateBlockedError",
			err:         &GateBlockedError{Message: "gate blocked: 1 failed"},
			wantBlocked: true,
		},
		{
			name:        "CheckFailedError",
			err:         &CheckFailedError{Problems: 1},
			wantBlocked: true,
		},
		{
			name:        "regular error",
			err:         errors.New("config error"),
			wantBlocked: false,
		},
		{
			name:        "wrapped GateBlockedError",
			err:         fmt.Errorf("run: %w", &GateBlockedError{Message: "gate blocked: no results"}),
			wantBlocked: true,
		},
		{
			name:        "wrapped CheckFailedError",
			err:         errors.Join(&CheckFailedError{Problems: 2}, errors.New("additional context")),
			wantBlocked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gateErr *GateBlockedError
			var checkErr *CheckFailedError
			blocked := errors.As(tt.err, &gateErr) || errors.As(tt.err, &checkErr)

			assert.Equal(t, tt.wantBlocked, blocked)
		})
	}
}

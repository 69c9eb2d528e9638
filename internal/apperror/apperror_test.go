package apperror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIs(t *testing.T) {
	err := SessionBusy("sess-1")
	assert.True(t, Is(err, KindSessionBusy))
	assert.False(t, Is(err, KindSessionNotFound))
}

func TestWrap(t *testing.T) {
	cause := errors.New("boom")
	err := ToolExecution("bash", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bash failed")
	assert.Contains(t, err.Error(), "boom")
}

func TestProtocolLaggedByCarriesN(t *testing.T) {
	err := ProtocolLaggedBy(7)

	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 7, appErr.N)
	assert.Equal(t, KindProtocolLaggedBy, appErr.Kind)
}

func TestConfigInvalidMessage(t *testing.T) {
	err := ConfigInvalid("workspace.kind", "must be one of local|remote|container")
	assert.Equal(t, "workspace.kind: must be one of local|remote|container", err.Message)
}

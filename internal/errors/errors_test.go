package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransportError(t *testing.T) {
	root := errors.New("dial failed")
	err := &TransportError{Op: "connect", Err: root}

	require.Equal(t, "transport connect failed: dial failed", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsRuntimeError())
}

func TestTransportError_Disconnect(t *testing.T) {
	root := errors.New("broken pipe")
	err := &TransportError{Op: "disconnect", Err: root}

	require.Equal(t, "transport disconnect failed: broken pipe", err.Error())
	require.ErrorIs(t, err, root)
}

func TestTaskError(t *testing.T) {
	err := &TaskError{TaskID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Message: "division by zero"}

	require.Equal(
		t,
		"task 01ARZ3NDEKTSV4RRFFQ69G5FAV failed: division by zero",
		err.Error(),
	)
	require.True(t, err.IsRuntimeError())
}

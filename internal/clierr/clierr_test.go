package clierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(StoreFailure, cause, "updating task #3")

	assert.Equal(t, "updating task #3: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 2, err.ExitCode())
}

func TestCodeOfThroughWrapping(t *testing.T) {
	err := fmt.Errorf("context: %w", Newf(TaskNotFound, "task not found: #%d", 9))
	assert.Equal(t, TaskNotFound, CodeOf(err))
	assert.True(t, Is(err, TaskNotFound))
	assert.False(t, Is(err, StoreFailure))
	assert.False(t, Is(nil, TaskNotFound))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, New(TaskNotFound, "").HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, New(InvalidStatus, "").HTTPStatus())
	assert.Equal(t, http.StatusConflict, New(StatusConflict, "").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, New(StoreFailure, "").HTTPStatus())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, New(InvalidInput, "").ExitCode())
	assert.Equal(t, 2, New(InternalError, "").ExitCode())
}

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/haierkeys/edu-program-service/pkg/code"
	"github.com/stretchr/testify/assert"
)

func TestStorageWrapsCause(t *testing.T) {
	cause := fmt.Errorf("disk I/O error")
	err := Storage(cause)

	assert.True(t, errors.Is(err, code.ErrorStorage))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, code.ErrorConflict))
	assert.Nil(t, Storage(nil))
}

func TestStoragePassesCodedErrors(t *testing.T) {
	conflict := code.ErrorConflict.WithDetails("course 3")
	err := Storage(conflict)

	assert.Same(t, conflict, err)
	assert.True(t, errors.Is(err, code.ErrorConflict))
	assert.False(t, errors.Is(err, code.ErrorStorage))
}

func TestWithDetailsDoesNotMutateRegisteredCode(t *testing.T) {
	_ = code.ErrorNotFound.WithDetails("institution 9")
	assert.False(t, code.ErrorNotFound.HaveDetails())
	assert.Empty(t, code.ErrorNotFound.Details())
}

package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, KindNotOpen, KindOf(NotOpen("closed")))
	assert.Equal(t, KindCapacityExceeded, KindOf(fmt.Errorf("wrap: %w", CapacityExceeded("full"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("connection refused")))
}

func TestError_Is(t *testing.T) {
	err := AlreadyRegistered("user %s already registered", "u1")

	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.NotErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, "AlreadyRegistered: user u1 already registered", err.Error())
}

func TestAsError_HidesInternalCause(t *testing.T) {
	e := AsError(errors.New("pq: relation \"events\" does not exist"))
	assert.Equal(t, KindInternal, e.Kind)
	assert.NotContains(t, e.Message, "relation")

	v := Validation("notes", "too long")
	assert.Same(t, v, AsError(v))
	assert.Nil(t, AsError(nil))
}

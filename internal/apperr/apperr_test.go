package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Validation, KindOf(Validationf("bad input")))
	assert.Equal(t, NotFound, KindOf(NotFoundf("missing")))
	assert.Equal(t, Conflict, KindOf(Conflictf("already decided")))
	assert.Equal(t, Auth, KindOf(Authf("forbidden")))
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
	assert.Equal(t, Internal, KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("applying payment: %w", Conflictf("installment settled"))
	assert.True(t, Is(err, Conflict))
	assert.False(t, Is(err, Validation))
}

func TestInternalfKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internalf(cause, "failed to list credits")
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "failed to list credits")
}

package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("decide: %w", Conflict("already_decided", "verification already decided"))

	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, Is(err, KindConflict))
	assert.Equal(t, http.StatusConflict, Status(KindOf(err)))
}

func TestUnclassifiedErrorIsTransient(t *testing.T) {
	assert.Equal(t, KindTransient, KindOf(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, Status(KindTransient))
}

func TestStepUpKindsAreUnauthorized(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Status(KindStepUpRequired))
	assert.Equal(t, http.StatusUnauthorized, Status(KindStepUpInvalid))
	assert.Equal(t, http.StatusUnauthorized, Status(KindUnauthenticated))
}

func TestTransientUnwrapsCause(t *testing.T) {
	err := Transient("identity provider unavailable", context.DeadlineExceeded)

	assert.True(t, IsTimeout(err))
	assert.Equal(t, KindTransient, KindOf(err))
}

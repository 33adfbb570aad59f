package response

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_MatchesBaseAndCause(t *testing.T) {
	base := NewError(http.StatusBadGateway, "model call failed")
	cause := errors.New("connection reset")

	err := Wrap(base, cause)

	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "model call failed: connection reset", err.Error())
	assert.Equal(t, http.StatusBadGateway, Code(err, http.StatusInternalServerError))
}

func TestWrap_NilCause(t *testing.T) {
	base := NewError(http.StatusNotFound, "missing")
	assert.Same(t, base, Wrap(base, nil))
}

func TestError_IsComparesCodeAndMessage(t *testing.T) {
	a := NewError(http.StatusNotFound, "missing")

	assert.ErrorIs(t, a, NewError(http.StatusNotFound, "missing"))
	assert.NotErrorIs(t, a, NewError(http.StatusBadRequest, "missing"))
	assert.NotErrorIs(t, a, NewError(http.StatusNotFound, "gone"))
}

func TestCode_Fallback(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, Code(errors.New("plain"), http.StatusInternalServerError))
}

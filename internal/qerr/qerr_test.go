package qerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadRequest(t *testing.T) {
	err := BadRequest("field %s is unknown", "title")
	assert.EqualError(t, err, "field title is unknown")
	assert.True(t, IsBadRequest(err))
}

func TestIsBadRequestUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("building query: %w", BadRequest("bad input"))
	assert.True(t, IsBadRequest(wrapped))
}

func TestIsBadRequestRejectsOtherErrors(t *testing.T) {
	assert.False(t, IsBadRequest(errors.New("database is down")))
	assert.False(t, IsBadRequest(nil))
}

package logsvc

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/harmony/core/session"
)

func TestLogrusLogger(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogrusLogger(out, false)

	logger.Debug("hidden")
	logger.Error(
		"approve failed",
		errors.New("boom"),
		map[string]interface{}{"registration_id": "r-1"},
		&session.User{ID: "u-1", Email: "admin@test.test"},
	)

	printed := out.String()
	assert.NotContains(t, printed, "hidden")
	assert.Contains(t, printed, "approve failed")
	assert.Contains(t, printed, "error=boom")
	assert.Contains(t, printed, "registration_id=r-1")
	assert.Contains(t, printed, "user_id=u-1")
}

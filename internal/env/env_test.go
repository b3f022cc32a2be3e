package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetString(t *testing.T) {
	t.Setenv("TEST_STRING", "hello")

	assert.Equal(t, "hello", GetString("TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", GetString("TEST_STRING_MISSING", "fallback"))
}

func TestGetInt(t *testing.T) {
	t.Setenv("TEST_INT", "4444")
	t.Setenv("TEST_INT_BAD", "not a number")

	assert.Equal(t, 4444, GetInt("TEST_INT", 1))
	assert.Equal(t, 1, GetInt("TEST_INT_BAD", 1))
	assert.Equal(t, 1, GetInt("TEST_INT_MISSING", 1))
}

func TestGetBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_BOOL_BAD", "yep")

	assert.True(t, GetBool("TEST_BOOL", false))
	assert.False(t, GetBool("TEST_BOOL_BAD", false))
	assert.True(t, GetBool("TEST_BOOL_MISSING", true))
}

func TestGetDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")

	assert.Equal(t, 90*time.Second, GetDuration("TEST_DURATION", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("TEST_DURATION_MISSING", time.Minute))
}

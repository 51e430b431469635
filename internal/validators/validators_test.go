package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("jane.doe+shop@example.co"))
	assert.Error(t, ValidateEmail("jane@"))
	assert.Error(t, ValidateEmail("not-an-email"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret"))
	assert.Error(t, ValidatePassword("short"))
}

func TestValidateString(t *testing.T) {
	assert.NoError(t, ValidateString("name", "Ada", 1, 50))
	assert.Error(t, ValidateString("name", "", 1, 50))
	assert.EqualError(t, ValidateString("name", "abcdef", 1, 5), "name must be between 1 and 5 characters")
}

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone("+1 555-123-4567"))
	assert.Error(t, ValidatePhone("call me"))
}

func TestValidateRange(t *testing.T) {
	assert.NoError(t, ValidateRange("rating", 5, 1, 5))
	assert.Error(t, ValidateRange("rating", 6, 1, 5))
}

func TestValidateObjectID(t *testing.T) {
	assert.NoError(t, ValidateObjectID("product", "64b7f0c2a1b2c3d4e5f60718"))
	assert.Error(t, ValidateObjectID("product", "123"))
}

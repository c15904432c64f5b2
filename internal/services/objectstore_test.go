package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyScheme(t *testing.T) {
	assert.Equal(t, "events/shared/123456/images/a.jpg", EventImageKey("123456", "a.jpg"))
	assert.Equal(t, "events/shared/123456/images/", EventImagePrefix("123456"))
	assert.Equal(t, "events/shared/123456/cover.jpg", EventCoverKey("123456"))
	assert.Equal(t, "events/shared/123456/selfies/me.jpg", EventSelfieKey("123456", "me.jpg"))
	assert.Equal(t, "users/user@example.com/selfies/me.jpg", UserSelfieKey("user@example.com", "me.jpg"))
}

func TestUniqueFilename(t *testing.T) {
	a := uniqueFilename("photo.png")
	b := uniqueFilename("photo.png")

	assert.NotEqual(t, a, b)
	assert.Contains(t, a, ".png")
	assert.Contains(t, uniqueFilename("noext"), ".jpg")
}

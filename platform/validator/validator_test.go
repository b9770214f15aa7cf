package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFieldPath(t *testing.T) {
	valid := []string{"name", "general.firstName", "a.b.c", "postal_code", "check-in"}
	for _, p := range valid {
		assert.True(t, IsFieldPath(p), p)
	}

	invalid := []string{"", ".name", "name.", "a..b", "$where", "general.$ne", "a b"}
	for _, p := range invalid {
		assert.False(t, IsFieldPath(p), p)
	}
}

func TestCustomTags(t *testing.T) {
	v := New()

	type req struct {
		Collection string `validate:"required,collection"`
		Field      string `validate:"omitempty,fieldpath"`
	}

	assert.NoError(t, v.Struct(req{Collection: "contacts", Field: "general.email"}))
	assert.Error(t, v.Struct(req{Collection: "Contacts"}))
	assert.Error(t, v.Struct(req{Collection: "contacts", Field: "general.$regex"}))
}

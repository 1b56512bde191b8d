package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataClone(t *testing.T) {
	var nilMeta Metadata
	assert.Nil(t, nilMeta.Clone())

	m := Metadata{"a": 1, "b": "x"}
	c := m.Clone()
	c["a"] = 2
	assert.Equal(t, 1, m["a"])
	assert.Equal(t, 2, c["a"])
}

func TestMetadataValidate(t *testing.T) {
	valid := Metadata{
		"s": "str", "b": true, "i": 42, "f": 3.14, "n": nil,
	}
	assert.NoError(t, valid.Validate())

	assert.Error(t, Metadata{"nested": map[string]any{}}.Validate())
	assert.Error(t, Metadata{"list": []string{"a"}}.Validate())
}

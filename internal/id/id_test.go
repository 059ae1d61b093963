package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for range count {
		id, err := Generate(PrefixCard)
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{PrefixBoard, PrefixList, PrefixCard, PrefixUser} {
		t.Run(prefix, func(t *testing.T) {
			id := MustGenerate(prefix)

			assert.True(t, strings.HasPrefix(id, prefix+"-"))
			assert.Len(t, id, len(prefix)+1+21)
		})
	}
}

func TestLabel_IsUUID(t *testing.T) {
	_, err := uuid.Parse(Label())
	assert.NoError(t, err)
}

func TestTemp(t *testing.T) {
	tmp := Temp()

	assert.True(t, IsTemp(tmp))
	assert.False(t, IsTemp(MustGenerate(PrefixCard)))
	assert.NotEqual(t, tmp, Temp())
}

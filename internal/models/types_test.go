package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList(t *testing.T) {
	t.Run("should store an empty list as an empty JSON array", func(t *testing.T) {
		v, err := StringList(nil).Value()
		require.NoError(t, err)
		assert.Equal(t, "[]", v)
	})

	t.Run("should scan both text and bytes", func(t *testing.T) {
		var fromString StringList
		require.NoError(t, fromString.Scan(`["egg","flour"]`))
		assert.Equal(t, StringList{"egg", "flour"}, fromString)

		var fromBytes StringList
		require.NoError(t, fromBytes.Scan([]byte(`["salt"]`)))
		assert.Equal(t, StringList{"salt"}, fromBytes)
	})

	t.Run("should scan NULL as empty", func(t *testing.T) {
		list := StringList{"stale"}
		require.NoError(t, list.Scan(nil))
		assert.Empty(t, list)
	})

	t.Run("should reject unsupported sources", func(t *testing.T) {
		var list StringList
		assert.Error(t, list.Scan(42))
	})
}

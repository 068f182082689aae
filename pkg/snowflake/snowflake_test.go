package snowflake

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	require.NoError(t, Init(7))
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateId()
		require.False(t, seen[id])
		seen[id] = true
	}
	require.NotEqual(t, GenerateString(), GenerateString())
}

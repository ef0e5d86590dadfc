package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithForeignKeys(t *testing.T) {
	require.Equal(t,
		"file:app.db?_pragma=foreign_keys(1)",
		withForeignKeys("file:app.db"))

	require.Equal(t,
		"file:test?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		withForeignKeys("file:test?mode=memory&cache=shared"))

	// Already present, not duplicated.
	dsn := "file:app.db?_pragma=foreign_keys(1)"
	require.Equal(t, dsn, withForeignKeys(dsn))
}

package pgmigrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingSortsSQLFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_more.sql": {Data: []byte("SELECT 2;")},
		"0001_init.sql": {Data: []byte("SELECT 1;")},
		"README.md":     {Data: []byte("notes")},
		"old/0000.sql":  {Data: []byte("SELECT 0;")},
	}

	names, err := Pending(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql", "0002_more.sql"}, names)
}

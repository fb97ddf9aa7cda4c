package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	in := `-- header
CREATE TABLE a (
  id INT
);

INSERT INTO a VALUES (1);
SELECT 1`
	got := splitStatements(in)
	require.Len(t, got, 3)
	assert.True(t, strings.HasPrefix(got[0], "CREATE TABLE a ("))
	assert.False(t, strings.HasSuffix(got[0], ";"))
	assert.Equal(t, "INSERT INTO a VALUES (1)", got[1])
	assert.Equal(t, "SELECT 1", got[2])
}

func TestEmbeddedMigrationsOrdered(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestMigrationIDChangesWithBody(t *testing.T) {
	a := migrationID("0001_init.sql", []byte("CREATE TABLE x (id INT);"))
	b := migrationID("0001_init.sql", []byte("CREATE TABLE y (id INT);"))
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "0001_init.sql:"))
}

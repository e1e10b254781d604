package routes_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifhub/notifhub/pkg/routes"
)

const sampleTable = `
routes:
  - path: /tasks
    label: Tasks
    types: [task_assigned, task_due]
  - path: /inbox
    types: [mention, comment_added]
`

func TestParseTable(t *testing.T) {
	t.Parallel()

	t.Run("valid table", func(t *testing.T) {
		t.Parallel()
		table, err := routes.ParseTable([]byte(sampleTable))
		require.NoError(t, err)

		assert.Equal(t, []string{"/tasks", "/inbox"}, table.Paths())
		assert.Equal(t, []string{"/tasks"}, table.RoutesFor("task_due"))
		assert.Equal(t, []string{"/inbox"}, table.RoutesFor("mention"))
	})

	t.Run("type routed to several paths", func(t *testing.T) {
		t.Parallel()
		table, err := routes.ParseTable([]byte(`
routes:
  - path: /a
    types: [mention]
  - path: /b
    types: [mention]
`))
		require.NoError(t, err)
		assert.Equal(t, []string{"/a", "/b"}, table.RoutesFor("mention"))
	})

	t.Run("unknown type has no route", func(t *testing.T) {
		t.Parallel()
		table, err := routes.ParseTable([]byte(sampleTable))
		require.NoError(t, err)
		assert.Empty(t, table.RoutesFor("no_such_type"))
	})

	t.Run("empty table rejected", func(t *testing.T) {
		t.Parallel()
		_, err := routes.ParseTable([]byte("routes: []"))
		require.ErrorIs(t, err, routes.ErrEmptyTable)
	})

	t.Run("duplicate path rejected", func(t *testing.T) {
		t.Parallel()
		_, err := routes.ParseTable([]byte(`
routes:
  - path: /tasks
    types: [task_due]
  - path: /tasks
    types: [mention]
`))
		require.ErrorIs(t, err, routes.ErrDuplicateRoute)
	})

	t.Run("malformed yaml rejected", func(t *testing.T) {
		t.Parallel()
		_, err := routes.ParseTable([]byte("routes: {not a list"))
		require.Error(t, err)
	})
}

func TestLoadTable(t *testing.T) {
	t.Parallel()

	t.Run("reads from disk", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "routes.yaml")
		require.NoError(t, os.WriteFile(path, []byte(sampleTable), 0o644))

		table, err := routes.LoadTable(path)
		require.NoError(t, err)
		assert.Len(t, table.Routes, 2)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := routes.LoadTable(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}

func TestDefaultTable(t *testing.T) {
	t.Parallel()

	table := routes.DefaultTable()
	assert.Equal(t, []string{"/tasks", "/inbox", "/billing", "/documents", "/team"}, table.Paths())
	assert.Equal(t, []string{"/tasks"}, table.RoutesFor("task_assigned"))
	assert.Equal(t, []string{"/billing"}, table.RoutesFor("invoice_overdue"))
}

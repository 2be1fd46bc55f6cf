package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/cyclingapi/config"
)

func TestCreateTables(t *testing.T) {
	ctx := context.Background()
	bdb, err := Open(ctx, config.Database{Driver: "sqlite", SQLitePath: ":memory:"}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdb.Close() })

	require.NoError(t, CreateTables(ctx, bdb))
	require.NoError(t, CreateTables(ctx, bdb), "second run")

	var indexes []string
	err = bdb.NewRaw(`SELECT name FROM sqlite_master WHERE type = 'index' AND name LIKE '%_idx' ORDER BY name`).Scan(ctx, &indexes)
	require.NoError(t, err)
	assert.Equal(t, []string{"cyclists_last_name_idx", "race_results_uci_id_idx", "races_date_idx"}, indexes)
}

func TestCreateTablesReportsFailures(t *testing.T) {
	ctx := context.Background()
	bdb, err := Open(ctx, config.Database{Driver: "sqlite", SQLitePath: ":memory:"}, false)
	require.NoError(t, err)
	require.NoError(t, bdb.Close())

	assert.Error(t, CreateTables(ctx, bdb))
}

package db

import (
	"context"
	"io"
	"testing"

	"github.com/lyzr/entityeditor/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteMemory(t *testing.T) {
	ctx := context.Background()
	log := logger.NewWithWriter(io.Discard, "error", "json")

	handle, err := Open(ctx, "sqlite", ":memory:", log)
	require.NoError(t, err)
	defer handle.Close()

	assert.Equal(t, "sqlite", handle.Driver())
	require.NoError(t, handle.Health(ctx))

	_, err = handle.ExecContext(ctx, `CREATE TABLE t (id INTEGER)`)
	require.NoError(t, err)
	_, err = handle.ExecContext(ctx, `INSERT INTO t (id) VALUES (1)`)
	require.NoError(t, err)

	var n int
	require.NoError(t, handle.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "", logger.NewWithWriter(io.Discard, "error", "json"))
	assert.ErrorContains(t, err, "unsupported driver")
}

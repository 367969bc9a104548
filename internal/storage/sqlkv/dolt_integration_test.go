//go:build integration

package sqlkv

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/dolt"

	"github.com/cd3-tool/cd3/internal/storage"
)

func TestDoltServerKV(t *testing.T) {
	ctx := context.Background()

	ctr, err := dolt.Run(ctx, "dolthub/dolt-sql-server:1.32.4",
		dolt.WithDatabase("cd3"),
		dolt.WithUsername("cd3"),
		dolt.WithPassword("cd3"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)
	p, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	b, err := Open(ctx, Config{
		Dialect:    DialectDolt,
		Host:       host,
		Port:       p,
		User:       "cd3",
		Password:   "cd3",
		Database:   "cd3",
		AutoCommit: true,
	})
	require.NoError(t, err, "dsn host %s", net.JoinHostPort(host, port.Port()))
	defer b.Close()

	require.NoError(t, b.Put(ctx, storage.KeyItems, []byte(`[]`)))
	require.NoError(t, b.Put(ctx, storage.KeyItems, []byte(`[{"id":"cd3-1"}]`)))
	got, err := b.Get(ctx, storage.KeyItems)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"cd3-1"}]`, string(got))

	var commits int
	require.NoError(t, b.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM dolt_log").Scan(&commits))
	assert.GreaterOrEqual(t, commits, 2)
}

package database

import (
	"context"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestConnectDispatchesSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mindful.db")

	db, err := Connect("sqlite://" + path)
	require.NoError(t, err)

	var enabled int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&enabled).Error)
	require.Equal(t, 1, enabled)
}

func TestConnectRejectsEmptyDSN(t *testing.T) {
	_, err := Connect("")
	require.Error(t, err)

	_, err = Connect("sqlite://")
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client, err := ConnectRedis(context.Background(), "redis://"+mini.Addr())
	require.NoError(t, err)
	defer client.Close()

	_, err = ConnectRedis(context.Background(), "")
	require.Error(t, err)
}

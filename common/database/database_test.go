package database

import (
	"path/filepath"
	"testing"

	"github.com/jaxongirtoshpolatov1225-droid/inv/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "inv.db")}
	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestOpen_Rejects(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "sqlite"})
	assert.Error(t, err)

	_, err = Open(&config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

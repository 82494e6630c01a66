package postgres

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywars/warcore/internal/database"
	"github.com/tinywars/warcore/internal/model"
	"github.com/tinywars/warcore/internal/storage"
	gormstorage "github.com/tinywars/warcore/internal/storage/gorm"
	"github.com/tinywars/warcore/pkg/core"
)

var _ storage.Backend = (*Backend)(nil)

func TestInit_InjectedDB(t *testing.T) {
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "wars.db"))
	require.NoError(t, err)

	b := New(gormstorage.Dependencies{DB: db, Logger: zerolog.New(io.Discard)})
	require.NoError(t, b.Init())
	defer b.Close()

	assert.True(t, db.Migrator().HasTable(&model.ServerInfo{}))
	require.NoError(t, b.StartWar(&core.SerializedWar{WarID: 1}))
	require.NoError(t, b.EndWar(1, storage.WarResult{Outcome: "Ended"}))
}

func TestInit_Unreachable(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")

	b := New(gormstorage.Dependencies{Logger: zerolog.New(io.Discard)})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

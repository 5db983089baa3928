package database

import (
	"bytes"
	"database/sql"
	"errors"
	"testing"
	"time"

	"habilitaciones/internal/config"
	"habilitaciones/internal/logging"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	base := config.DatabaseConfig{Host: "db", Port: "5432", User: "forms", Name: "habilitaciones"}
	with := func(fn func(*config.DatabaseConfig)) config.DatabaseConfig {
		c := base
		fn(&c)
		return c
	}

	tests := map[string]struct {
		cfg  config.DatabaseConfig
		want string
	}{
		"no password, no sslmode": {base, "postgres://forms@db:5432/habilitaciones"},
		"password and sslmode": {
			with(func(c *config.DatabaseConfig) { c.Password = "secret"; c.SSLMode = "disable" }),
			"postgres://forms:secret@db:5432/habilitaciones?sslmode=disable",
		},
		"password is escaped": {
			with(func(c *config.DatabaseConfig) { c.Password = "p@ss/word" }),
			"postgres://forms:p%40ss%2Fword@db:5432/habilitaciones",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := BuildPostgresDSN(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, missing := range []func(*config.DatabaseConfig){
		func(c *config.DatabaseConfig) { c.Host = "" },
		func(c *config.DatabaseConfig) { c.Port = "" },
		func(c *config.DatabaseConfig) { c.User = "" },
		func(c *config.DatabaseConfig) { c.Name = "" },
	} {
		_, err := BuildPostgresDSN(with(missing))
		assert.Error(t, err)
	}
}

// stubOpen swaps sqlOpen for the duration of the test.
func stubOpen(t *testing.T, db *sql.DB, err error) {
	t.Helper()
	orig := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return db, err }
	t.Cleanup(func() { sqlOpen = orig })
}

func TestNewPostgres(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "db", Port: "5432", User: "forms", Password: "secret", Name: "habilitaciones",
		MaxOpenConns: 3, MaxIdleConns: 2, ConnMaxLifetimeSec: 60,
	}

	t.Run("connects and applies pool limits", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		stubOpen(t, db, nil)
		mock.ExpectPing()

		var logs bytes.Buffer
		got, err := NewPostgres(cfg, logging.New(&logs, time.UTC))
		require.NoError(t, err)
		assert.Same(t, db, got)
		assert.Equal(t, 3, got.Stats().MaxOpenConnections)
		assert.Contains(t, logs.String(), `"db_name":"habilitaciones"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open failure", func(t *testing.T) {
		stubOpen(t, nil, errors.New("open error"))

		got, err := NewPostgres(cfg, logging.Nop())
		assert.ErrorContains(t, err, "sql open: open error")
		assert.Nil(t, got)
	})

	t.Run("ping failure closes the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)
		mock.ExpectPing().WillReturnError(errors.New("ping failed"))
		mock.ExpectClose()

		var logs bytes.Buffer
		got, err := NewPostgres(cfg, logging.New(&logs, time.UTC))
		assert.ErrorContains(t, err, "db ping: ping failed")
		assert.Nil(t, got)
		assert.Contains(t, logs.String(), `"level":"error"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("incomplete config", func(t *testing.T) {
		got, err := NewPostgres(config.DatabaseConfig{}, logging.Nop())
		assert.Error(t, err)
		assert.Nil(t, got)
	})
}

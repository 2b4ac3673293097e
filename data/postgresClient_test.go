package data

import (
	"testing"

	"github.com/KotFed0t/fondos_backoffice/config"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{}
	cfg.Postgres.Host = "db"
	cfg.Postgres.Port = 5432
	cfg.Postgres.User = "fondos"
	cfg.Postgres.DbName = "backoffice"
	cfg.Postgres.SSLMode = "require"
	cfg.Postgres.Password = "secret"

	require.Equal(t, "host=db port=5432 user=fondos dbname=backoffice sslmode=require password=secret", PostgresDSN(cfg))
}

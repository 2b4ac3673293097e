package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapPgError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "funds_client_id_name_key"}
	require.ErrorIs(t, MapPgError(dup), ErrAlreadyExists)
	require.Contains(t, MapPgError(dup).Error(), "funds_client_id_name_key")

	fk := &pgconn.PgError{Code: "23503", ConstraintName: "funds_client_id_fkey"}
	require.ErrorIs(t, MapPgError(fk), ErrNotFound)

	other := &pgconn.PgError{Code: "40001"}
	require.Same(t, other, MapPgError(other))

	plain := errors.New("connection reset")
	require.Equal(t, plain, MapPgError(plain))
}

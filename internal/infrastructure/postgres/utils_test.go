package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/fernanda-api/internal/domain"
)

func TestDBError_Clasificacion(t *testing.T) {
	assert.NoError(t, dbError("x", nil))

	err := dbError("count negociacoes", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"})
	assert.ErrorIs(t, err, domain.ErrRemote)
	assert.Contains(t, err.Error(), "count negociacoes")

	assert.ErrorIs(t, dbError("lock", &pgconn.PgError{Code: codeLockTimeout}), domain.ErrConnectivity)

	err = dbError("list", fmt.Errorf("wrap: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrRemote)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: codeUniqueViolation})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("23505 en el texto no alcanza")))
}

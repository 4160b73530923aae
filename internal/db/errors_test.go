package db

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	assert.ErrorIs(t, classify(sql.ErrNoRows), ErrNotFound)

	unique := &pq.Error{Code: pgUniqueViolation}
	assert.ErrorIs(t, classify(unique), ErrDuplicateKey)
	assert.ErrorIs(t, classify(fmt.Errorf("insert rule: %w", unique)), ErrDuplicateKey)

	other := &pq.Error{Code: "23503"}
	assert.NotErrorIs(t, classify(other), ErrDuplicateKey)

	plain := errors.New("connection refused")
	assert.Equal(t, plain, classify(plain))
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, IsDuplicateKey(ErrDuplicateKey))
	assert.True(t, IsDuplicateKey(fmt.Errorf("wrapped: %w", ErrDuplicateKey)))
	assert.False(t, IsDuplicateKey(ErrNotFound))
	assert.False(t, IsDuplicateKey(nil))
}

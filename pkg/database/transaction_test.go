package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx records commit and rollback calls. Any other pgx.Tx method panics.
type fakeTx struct {
	pgx.Tx
	commitErr  error
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if f.committed {
		return pgx.ErrTxClosed
	}
	f.rolledBack = true
	return nil
}

type fakeManager struct {
	tx       *fakeTx
	beginErr error
}

func (m *fakeManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return m.tx, nil
}

func TestWithTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits when fn succeeds", func(t *testing.T) {
		m := &fakeManager{tx: &fakeTx{}}
		err := WithTransaction(ctx, m, func(tx pgx.Tx) error { return nil })
		require.NoError(t, err)
		assert.True(t, m.tx.committed)
		assert.False(t, m.tx.rolledBack)
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		m := &fakeManager{tx: &fakeTx{}}
		boom := errors.New("boom")
		err := WithTransaction(ctx, m, func(tx pgx.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.False(t, m.tx.committed)
		assert.True(t, m.tx.rolledBack)
	})

	t.Run("surfaces begin errors", func(t *testing.T) {
		m := &fakeManager{beginErr: errors.New("pool closed")}
		called := false
		err := WithTransaction(ctx, m, func(tx pgx.Tx) error {
			called = true
			return nil
		})
		require.Error(t, err)
		assert.False(t, called)
	})

	t.Run("surfaces commit errors", func(t *testing.T) {
		commitErr := errors.New("connection reset")
		m := &fakeManager{tx: &fakeTx{commitErr: commitErr}}
		err := WithTransaction(ctx, m, func(tx pgx.Tx) error { return nil })
		assert.ErrorIs(t, err, commitErr)
		assert.True(t, m.tx.rolledBack)
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, true},
		{"exclusion violation", &pgconn.PgError{Code: "23P01"}, true},
		{"wrapped deadlock", fmt.Errorf("accept: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("nope"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

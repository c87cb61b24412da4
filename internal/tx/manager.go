package tx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var ErrRetryExhausted = errors.New("transaction retry exhausted")

type Manager struct {
	DB        *sql.DB
	Isolation sql.IsolationLevel
}

const maxRetries = 5

func (m *Manager) WithTx(
	ctx context.Context,
	fn func(ctx context.Context, tx *sql.Tx) error,
) error {

	isolation := m.Isolation
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted
	}

	for i := 0; i < maxRetries; i++ {

		tx, err := m.DB.BeginTx(ctx, &sql.TxOptions{Isolation: isolation})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}

		err = fn(ctx, tx)
		if err != nil {
			_ = tx.Rollback()
			if IsRetryable(err) {
				observability.GetLogger(ctx).Debug("retrying transaction", zap.Int("attempt", i+1), zap.Error(err))
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if IsRetryable(err) {
				continue
			}
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	}

	return ErrRetryExhausted
}

// IsRetryable reports serialization failures and deadlocks.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01":
		return true
	}
	return false
}

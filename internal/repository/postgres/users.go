package postgres

import (
	"context"
	"database/sql"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// GetUsers returns the users that exist among ids. Missing ids are simply absent from the map.
func (r *Repository) GetUsers(
	ctx context.Context,
	ids []string,
) (map[string]domain.User, error) {
	found := make(map[string]domain.User, len(ids))
	missing := ids

	if r.Cache != nil {
		cached, miss, err := r.Cache.GetUsers(ctx, ids)
		if err != nil {
			observability.GetLogger(ctx).Debug("user cache read failed", zap.Error(err))
		} else {
			found = cached
			missing = miss
		}
	}
	if len(missing) == 0 {
		return found, nil
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, username, first_name, last_name, avatar, status, last_seen
		FROM users
		WHERE id = ANY($1)
	`, pq.Array(missing))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loaded := make(map[string]domain.User)
	for rows.Next() {
		var u domain.User
		var lastSeen sql.NullTime
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Avatar, &u.Status, &lastSeen); err != nil {
			return nil, err
		}
		if lastSeen.Valid {
			u.LastSeen = &lastSeen.Time
		}
		loaded[u.ID] = u
		found[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if r.Cache != nil {
		_ = r.Cache.SetUsers(ctx, loaded)
	}
	return found, nil
}

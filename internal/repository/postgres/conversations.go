package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/repository"
	"github.com/lib/pq"
)

const conversationColumns = `id, type, title, avatar, created_by, created_at, last_message_at`

func scanConversation(row interface{ Scan(...interface{}) error }) (*domain.Conversation, error) {
	var c domain.Conversation
	var title, avatar sql.NullString
	if err := row.Scan(
		&c.ID,
		&c.Type,
		&title,
		&avatar,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.LastMessageAt,
	); err != nil {
		return nil, err
	}
	c.Title = title.String
	c.Avatar = avatar.String
	return &c, nil
}

func (r *Repository) CreateConversation(
	ctx context.Context,
	tx *sql.Tx,
	c *domain.Conversation,
	privateKey *string,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO conversations (
			id, type, title, avatar, created_by,
			created_at, last_message_at, private_key
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		c.ID,
		c.Type,
		c.Title,
		c.Avatar,
		c.CreatedBy,
		c.CreatedAt,
		c.LastMessageAt,
		privateKey,
	)
	return mapErr(err)
}

func (r *Repository) GetConversationForUpdate(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) (*domain.Conversation, error) {
	return r.fetchConversation(ctx, tx, id, true)
}

// GetConversation reads through the cache when called outside a transaction.
func (r *Repository) GetConversation(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) (*domain.Conversation, error) {
	if tx == nil && r.Cache != nil {
		conv, err := r.Cache.GetConversation(ctx, id)
		if err == nil && conv != nil {
			return conv, nil
		}
	}

	conv, err := r.fetchConversation(ctx, tx, id, false)
	if err != nil {
		return nil, err
	}

	if tx == nil && r.Cache != nil {
		_ = r.Cache.SetConversation(ctx, conv)
	}
	return conv, nil
}

func (r *Repository) InvalidateConversation(ctx context.Context, id string) error {
	if r.Cache != nil {
		return r.Cache.DeleteConversation(ctx, id)
	}
	return nil
}

func (r *Repository) fetchConversation(
	ctx context.Context,
	tx *sql.Tx,
	id string,
	forUpdate bool,
) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	q := r.getter(tx)
	conv, err := scanConversation(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFoundError(domain.ResourceConversation, id)
		}
		return nil, err
	}

	conv.Members, err = r.ListMembers(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// FindPrivateConversationBetween intersects the private memberships of both users.
func (r *Repository) FindPrivateConversationBetween(
	ctx context.Context,
	tx *sql.Tx,
	userA, userB string,
) (*domain.Conversation, error) {
	q := r.getter(tx)
	var id string
	err := q.QueryRowContext(ctx, `
		SELECT c.id
		FROM conversations c
		JOIN conversation_members a ON a.conversation_id = c.id AND a.user_id = $1
		JOIN conversation_members b ON b.conversation_id = c.id AND b.user_id = $2
		WHERE c.type = 'private'
		LIMIT 1
	`, userA, userB).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFoundError(domain.ResourceConversation, domain.PrivateKey(userA, userB))
		}
		return nil, err
	}
	return r.fetchConversation(ctx, tx, id, false)
}

func (r *Repository) ListConversations(
	ctx context.Context,
	userID string,
) ([]*domain.Conversation, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.type, c.title, c.avatar, c.created_by, c.created_at, c.last_message_at
		FROM conversations c
		JOIN conversation_members m ON m.conversation_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.last_message_at DESC, c.id
	`, userID)
	if err != nil {
		return nil, err
	}
	return r.collectConversations(ctx, rows)
}

func (r *Repository) ListAllConversations(
	ctx context.Context,
	filter repository.ConversationFilter,
) ([]*domain.Conversation, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE ($1 = '' OR type = $1)
		ORDER BY last_message_at DESC, id
		LIMIT $2 OFFSET $3
	`, string(filter.Type), limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	return r.collectConversations(ctx, rows)
}

func scanConversations(rows *sql.Rows) ([]*domain.Conversation, error) {
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// collectConversations scans rows and loads every conversation's members in one query.
func (r *Repository) collectConversations(ctx context.Context, rows *sql.Rows) ([]*domain.Conversation, error) {
	conversations, err := scanConversations(rows)
	if err != nil {
		return nil, err
	}
	if len(conversations) == 0 {
		return conversations, nil
	}

	byID := make(map[string]*domain.Conversation, len(conversations))
	ids := make([]string, 0, len(conversations))
	for _, c := range conversations {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	mrows, err := r.DB.QueryContext(ctx, `
		SELECT conversation_id, user_id, role, joined_at
		FROM conversation_members
		WHERE conversation_id = ANY($1)
		ORDER BY joined_at, user_id
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer mrows.Close()

	for mrows.Next() {
		var m domain.Member
		if err := mrows.Scan(&m.ConversationID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		if c, ok := byID[m.ConversationID]; ok {
			c.Members = append(c.Members, m)
		}
	}
	return conversations, mrows.Err()
}

// TouchLastMessageAt never moves the timestamp backwards.
func (r *Repository) TouchLastMessageAt(
	ctx context.Context,
	tx *sql.Tx,
	conversationID string,
	at time.Time,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		UPDATE conversations
		SET last_message_at = GREATEST(last_message_at, $2)
		WHERE id = $1
	`, conversationID, at)
	return err
}

func (r *Repository) DeleteConversation(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) error {
	q := r.getter(tx)
	res, err := q.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, domain.NewNotFoundError(domain.ResourceConversation, id))
}

func (r *Repository) AddMember(
	ctx context.Context,
	tx *sql.Tx,
	m domain.Member,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO conversation_members (conversation_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
	`, m.ConversationID, m.UserID, m.Role, m.JoinedAt)
	return mapErr(err)
}

func (r *Repository) RemoveMember(
	ctx context.Context,
	tx *sql.Tx,
	conversationID, userID string,
) error {
	q := r.getter(tx)
	res, err := q.ExecContext(ctx, `
		DELETE FROM conversation_members
		WHERE conversation_id = $1 AND user_id = $2
	`, conversationID, userID)
	if err != nil {
		return err
	}
	return expectAffected(res, domain.NewNotFoundError(domain.ResourceMember, userID))
}

func (r *Repository) ListMembers(
	ctx context.Context,
	tx *sql.Tx,
	conversationID string,
) ([]domain.Member, error) {
	q := r.getter(tx)
	rows, err := q.QueryContext(ctx, `
		SELECT conversation_id, user_id, role, joined_at
		FROM conversation_members
		WHERE conversation_id = $1
		ORDER BY joined_at, user_id
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ConversationID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

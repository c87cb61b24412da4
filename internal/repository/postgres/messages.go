package postgres

import (
	"context"
	"database/sql"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/lib/pq"
)

const messageColumns = `id, conversation_id, sender_id, text, sent_at, edited_at, is_edited`

func scanMessage(row interface{ Scan(...interface{}) error }) (*domain.Message, error) {
	var msg domain.Message
	var editedAt sql.NullTime
	if err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.Text,
		&msg.SentAt,
		&editedAt,
		&msg.IsEdited,
	); err != nil {
		return nil, err
	}
	if editedAt.Valid {
		msg.EditedAt = &editedAt.Time
	}
	return &msg, nil
}

func (r *Repository) CreateMessage(
	ctx context.Context,
	tx *sql.Tx,
	msg *domain.Message,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO messages (
			id, conversation_id, sender_id,
			text, sent_at, edited_at, is_edited
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		msg.ID,
		msg.ConversationID,
		msg.SenderID,
		msg.Text,
		msg.SentAt,
		msg.EditedAt,
		msg.IsEdited,
	)
	return mapErr(err)
}

func (r *Repository) GetMessage(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) (*domain.Message, error) {
	return r.fetchMessage(ctx, tx, id, false)
}

func (r *Repository) GetMessageForUpdate(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) (*domain.Message, error) {
	return r.fetchMessage(ctx, tx, id, true)
}

func (r *Repository) fetchMessage(
	ctx context.Context,
	tx *sql.Tx,
	id string,
	forUpdate bool,
) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	q := r.getter(tx)
	msg, err := scanMessage(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFoundError(domain.ResourceMessage, id)
		}
		return nil, err
	}

	msg.Attachments, err = r.ListAttachments(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *Repository) UpdateMessage(
	ctx context.Context,
	tx *sql.Tx,
	msg *domain.Message,
) error {
	q := r.getter(tx)
	res, err := q.ExecContext(ctx, `
		UPDATE messages
		SET text = $2, edited_at = $3, is_edited = $4
		WHERE id = $1
	`, msg.ID, msg.Text, msg.EditedAt, msg.IsEdited)
	if err != nil {
		return err
	}
	return expectAffected(res, domain.NewNotFoundError(domain.ResourceMessage, msg.ID))
}

func (r *Repository) DeleteMessage(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) error {
	q := r.getter(tx)
	res, err := q.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, domain.NewNotFoundError(domain.ResourceMessage, id))
}

// ListMessages returns the conversation's messages by sent_at ascending, attachments included.
func (r *Repository) ListMessages(
	ctx context.Context,
	conversationID string,
) ([]*domain.Message, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return messages, nil
	}

	byID := make(map[string]*domain.Message, len(messages))
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	arows, err := r.DB.QueryContext(ctx, `
		SELECT `+attachmentColumns+`
		FROM message_attachments
		WHERE message_id = ANY($1)
		ORDER BY uploaded_at, id
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	attachments, err := scanAttachments(arows)
	if err != nil {
		return nil, err
	}
	for _, a := range attachments {
		if m, ok := byID[a.MessageID]; ok {
			m.Attachments = append(m.Attachments, a)
		}
	}
	return messages, nil
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *Repository) ListMessageIDs(
	ctx context.Context,
	tx *sql.Tx,
	conversationID string,
) ([]string, error) {
	q := r.getter(tx)
	rows, err := q.QueryContext(ctx, `
		SELECT id FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

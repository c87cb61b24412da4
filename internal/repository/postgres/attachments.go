package postgres

import (
	"context"
	"database/sql"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
)

const attachmentColumns = `id, message_id, locator, file_name, file_size, mime_type, uploaded_at`

func scanAttachment(row interface{ Scan(...interface{}) error }) (domain.Attachment, error) {
	var a domain.Attachment
	var messageID sql.NullString
	err := row.Scan(
		&a.ID,
		&messageID,
		&a.Locator,
		&a.FileName,
		&a.FileSize,
		&a.MimeType,
		&a.UploadedAt,
	)
	a.MessageID = messageID.String
	return a, err
}

func scanAttachments(rows *sql.Rows) ([]domain.Attachment, error) {
	defer rows.Close()

	var out []domain.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) CreateAttachment(
	ctx context.Context,
	tx *sql.Tx,
	a *domain.Attachment,
) error {
	q := r.getter(tx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO message_attachments (
			id, message_id, locator, file_name,
			file_size, mime_type, uploaded_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		a.ID,
		nullString(a.MessageID),
		a.Locator,
		a.FileName,
		a.FileSize,
		a.MimeType,
		a.UploadedAt,
	)
	return mapErr(err)
}

func (r *Repository) GetAttachment(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) (*domain.Attachment, error) {
	q := r.getter(tx)
	a, err := scanAttachment(q.QueryRowContext(ctx, `
		SELECT `+attachmentColumns+` FROM message_attachments WHERE id = $1
	`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFoundError(domain.ResourceAttachment, id)
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repository) ListAttachments(
	ctx context.Context,
	tx *sql.Tx,
	messageID string,
) ([]domain.Attachment, error) {
	q := r.getter(tx)
	rows, err := q.QueryContext(ctx, `
		SELECT `+attachmentColumns+`
		FROM message_attachments
		WHERE message_id = $1
		ORDER BY uploaded_at, id
	`, messageID)
	if err != nil {
		return nil, err
	}
	return scanAttachments(rows)
}

func (r *Repository) ListAttachmentsByConversation(
	ctx context.Context,
	tx *sql.Tx,
	conversationID string,
) ([]domain.Attachment, error) {
	q := r.getter(tx)
	rows, err := q.QueryContext(ctx, `
		SELECT a.id, a.message_id, a.locator, a.file_name, a.file_size, a.mime_type, a.uploaded_at
		FROM message_attachments a
		JOIN messages m ON m.id = a.message_id
		WHERE m.conversation_id = $1
		ORDER BY a.uploaded_at, a.id
	`, conversationID)
	if err != nil {
		return nil, err
	}
	return scanAttachments(rows)
}

func (r *Repository) DeleteAttachment(
	ctx context.Context,
	tx *sql.Tx,
	id string,
) error {
	q := r.getter(tx)
	res, err := q.ExecContext(ctx, `DELETE FROM message_attachments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res, domain.NewNotFoundError(domain.ResourceAttachment, id))
}

package application

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/mimetypes"
)

type URLPurpose string

const (
	PurposeDefault  URLPurpose = "default"
	PurposeDownload URLPurpose = "download"
	PurposePreview  URLPurpose = "preview"
)

var urlTTL = map[URLPurpose]time.Duration{
	PurposeDefault:  time.Hour,
	PurposeDownload: 5 * time.Minute,
	PurposePreview:  24 * time.Hour,
}

type AddAttachmentCommand struct {
	MessageID string
	ActorID   string
	Upload    Upload
	Bulk      bool
}

// AddAttachment links one more file to an existing message. Only the sender may do it.
func (s *Service) AddAttachment(ctx context.Context, cmd AddAttachmentCommand) (*domain.Attachment, error) {
	current, err := s.repo.GetMessage(ctx, nil, cmd.MessageID)
	if err != nil {
		return nil, err
	}
	if err := current.CanEdit(cmd.ActorID); err != nil {
		return nil, domain.NewPermissionError("add attachment", err)
	}

	limit := MaxAttachmentSize
	if cmd.Bulk {
		limit = MaxBulkAttachmentSize
	}
	prepared, err := prepare([]Upload{cmd.Upload}, limit)
	if err != nil {
		return nil, err
	}
	stored, err := s.storeAll(ctx, prepared)
	if err != nil {
		return nil, err
	}

	att := stored[0].attachment(cmd.MessageID, s.now())
	var msg *domain.Message

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		m, err := s.repo.GetMessageForUpdate(ctx, tx, cmd.MessageID)
		if err != nil {
			return err
		}
		if err := s.repo.CreateAttachment(ctx, tx, &att); err != nil {
			return fmt.Errorf("failed to insert attachment: %w", err)
		}
		m.Attachments = append(m.Attachments, att)
		msg = m
		return nil
	})
	if err != nil {
		s.cleanup(ctx, stored)
		return nil, err
	}

	s.publish(ctx, domain.EventMessageUpdated, msg)
	return &att, nil
}

type AttachmentURLQuery struct {
	AttachmentID string
	RequesterID  string
	Purpose      URLPurpose
}

type AttachmentURL struct {
	URL       string
	ExpiresAt time.Time
}

func (s *Service) AttachmentURL(ctx context.Context, q AttachmentURLQuery) (*AttachmentURL, error) {
	purpose := q.Purpose
	if purpose == "" {
		purpose = PurposeDefault
	}
	ttl, ok := urlTTL[purpose]
	if !ok {
		return nil, domain.NewValidationError("purpose", "unknown purpose", string(purpose))
	}

	att, err := s.repo.GetAttachment(ctx, nil, q.AttachmentID)
	if err != nil {
		return nil, err
	}
	msg, err := s.repo.GetMessage(ctx, nil, att.MessageID)
	if err != nil {
		return nil, err
	}
	conv, err := s.repo.GetConversation(ctx, nil, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if err := conv.CanRead(q.RequesterID); err != nil {
		return nil, domain.NewPermissionError("view attachment", err)
	}

	if purpose == PurposePreview && !mimetypes.Previewable(mimetypes.Normalize(att.MimeType)) {
		return nil, domain.NewValidationError("purpose", "preview is only available for images and PDF", att.MimeType)
	}

	downloadName := ""
	if purpose == PurposeDownload {
		downloadName = att.FileName
	}

	issued := s.now()
	u, err := s.storage.URLFor(ctx, att.Locator, ttl, downloadName)
	if err != nil {
		return nil, err
	}
	return &AttachmentURL{URL: u, ExpiresAt: issued.Add(ttl)}, nil
}

package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/mimetypes"
	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MaxAttachmentSize     int64 = 10 << 20
	MaxBulkAttachmentSize int64 = 100 << 20
)

// Upload is one attachment as received from the client.
type Upload struct {
	Reader      io.Reader
	Name        string
	ContentType string
}

type preparedUpload struct {
	data []byte
	name string
	mime mimetypes.MIME
}

type storedUpload struct {
	preparedUpload
	locator string
}

// prepare reads each upload up to limit and resolves its MIME type against the allow-list.
func prepare(uploads []Upload, limit int64) ([]preparedUpload, error) {
	out := make([]preparedUpload, 0, len(uploads))
	for i, u := range uploads {
		if u.Reader == nil {
			return nil, domain.NewValidationError("attachments", "attachment has no content", u.Name)
		}

		var buf bytes.Buffer
		n, err := io.Copy(&buf, io.LimitReader(u.Reader, limit+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %q: %w", u.Name, err)
		}
		if n > limit {
			return nil, domain.NewValidationError("attachments",
				fmt.Sprintf("file exceeds %s", mimetypes.HumanSize(limit)), u.Name)
		}
		if n == 0 {
			return nil, domain.NewValidationError("attachments", "attachment is empty", u.Name)
		}

		m, err := mimetypes.Check(u.ContentType, buf.Bytes())
		if err != nil {
			return nil, domain.NewValidationError("attachments", "mime type not allowed", string(m))
		}

		out = append(out, preparedUpload{
			data: buf.Bytes(),
			name: uploadName(u.Name, m, i),
			mime: m,
		})
	}
	return out, nil
}

func uploadName(name string, m mimetypes.MIME, i int) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return fmt.Sprintf("attachment-%d%s", i+1, mimetypes.Extension(m))
	}
	return name
}

// storeAll uploads every file. If one fails, the ones already stored are removed.
func (s *Service) storeAll(ctx context.Context, uploads []preparedUpload) ([]storedUpload, error) {
	stored := make([]storedUpload, 0, len(uploads))
	for _, u := range uploads {
		locator, err := s.storage.Store(ctx, bytes.NewReader(u.data), int64(len(u.data)), u.name, string(u.mime))
		if err != nil {
			s.cleanup(ctx, stored)
			return nil, err
		}
		stored = append(stored, storedUpload{preparedUpload: u, locator: locator})
	}
	return stored, nil
}

// cleanup is best-effort. Objects it fails to delete are orphaned and counted.
func (s *Service) cleanup(ctx context.Context, stored []storedUpload) {
	log := observability.GetLogger(ctx)
	for _, u := range stored {
		if err := s.storage.Delete(ctx, u.locator); err != nil {
			observability.StorageOrphansTotal.Inc()
			log.Error("failed to clean up stored attachment",
				zap.String("locator", u.locator),
				zap.Error(err),
			)
		}
	}
}

func (u storedUpload) attachment(messageID string, now time.Time) domain.Attachment {
	return domain.Attachment{
		ID:         uuid.NewString(),
		MessageID:  messageID,
		Locator:    u.locator,
		FileName:   u.name,
		FileSize:   int64(len(u.data)),
		MimeType:   string(u.mime),
		UploadedAt: now,
	}
}

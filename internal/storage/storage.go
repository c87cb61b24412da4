package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Gateway stores attachment bytes and hands out time-limited URLs for them.
// A locator is the opaque object key returned by Store.
type Gateway interface {
	Store(ctx context.Context, r io.Reader, size int64, suggestedName, contentType string) (string, error)
	// URLFor presigns a GET. A non-empty downloadName forces an attachment disposition.
	URLFor(ctx context.Context, locator string, ttl time.Duration, downloadName string) (string, error)
	Delete(ctx context.Context, locator string) error
}

// ObjectKey builds a collision-free key, keeping the extension of the suggested name.
func ObjectKey(suggestedName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(suggestedName, "\\", "/"))))
	if len(ext) > 16 || strings.ContainsAny(ext, " ?#%") {
		ext = ""
	}
	return fmt.Sprintf("attachments/%s/%s%s", now.UTC().Format("2006/01/02"), uuid.NewString(), ext)
}

func contentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}

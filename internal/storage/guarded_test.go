package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	storeFn  func(ctx context.Context) (string, error)
	deleteFn func(ctx context.Context) error
	calls    int
}

func (s *stubGateway) Store(ctx context.Context, r io.Reader, size int64, name, ct string) (string, error) {
	s.calls++
	return s.storeFn(ctx)
}

func (s *stubGateway) URLFor(ctx context.Context, locator string, ttl time.Duration, downloadName string) (string, error) {
	s.calls++
	return "https://example.test/" + locator, nil
}

func (s *stubGateway) Delete(ctx context.Context, locator string) error {
	s.calls++
	return s.deleteFn(ctx)
}

func TestGuarded_TimeoutIsTyped(t *testing.T) {
	stub := &stubGateway{storeFn: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	g := NewGuarded(stub, GuardConfig{StoreTimeout: 20 * time.Millisecond})

	_, err := g.Store(context.Background(), strings.NewReader("x"), 1, "a.txt", "text/plain")
	require.Error(t, err)

	var serr *domain.StorageError
	require.True(t, errors.As(err, &serr))
	assert.True(t, serr.Timeout)
	assert.Equal(t, "store", serr.Op)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestGuarded_StoreIgnoresCallerCancellation(t *testing.T) {
	stub := &stubGateway{storeFn: func(ctx context.Context) (string, error) {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "obj/1", nil
	}}
	g := NewGuarded(stub, GuardConfig{StoreTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loc, err := g.Store(ctx, strings.NewReader("x"), 1, "a.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "obj/1", loc)
}

func TestGuarded_BreakerOpens(t *testing.T) {
	boom := errors.New("s3 down")
	stub := &stubGateway{deleteFn: func(ctx context.Context) error { return boom }}
	g := NewGuarded(stub, GuardConfig{MaxFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		err := g.Delete(context.Background(), "obj")
		assert.ErrorIs(t, err, boom)
	}

	err := g.Delete(context.Background(), "obj")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, 2, stub.calls)
}

func TestGuarded_URLFor(t *testing.T) {
	g := NewGuarded(&stubGateway{}, GuardConfig{})
	u, err := g.URLFor(context.Background(), "obj/1", time.Hour, "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/obj/1", u)
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	k := ObjectKey("Report.PDF", now)
	assert.True(t, strings.HasPrefix(k, "attachments/2026/10/19/"))
	assert.True(t, strings.HasSuffix(k, ".pdf"))

	assert.NotEqual(t, ObjectKey("a.txt", now), ObjectKey("a.txt", now))
	assert.False(t, strings.Contains(ObjectKey(`..\..\etc\passwd`, now), ".."))
}

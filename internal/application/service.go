package application

import (
	"context"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/SARVESHVARADKAR123/messenger/internal/policy"
	"github.com/SARVESHVARADKAR123/messenger/internal/repository"
	"github.com/SARVESHVARADKAR123/messenger/internal/storage"
	"github.com/SARVESHVARADKAR123/messenger/internal/tx"
)

// Publisher hands events to the fan-out bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev domain.Event) error
}

type Service struct {
	repo    repository.Repository
	tx      tx.Transactor
	storage storage.Gateway
	bus     Publisher
	authz   *policy.Authorizer
	now     func() time.Time
}

func New(
	repo repository.Repository,
	transactor tx.Transactor,
	store storage.Gateway,
	publisher Publisher,
	authz *policy.Authorizer,
) *Service {
	if authz == nil {
		authz = policy.NewAuthorizer()
	}
	return &Service{
		repo:    repo,
		tx:      transactor,
		storage: store,
		bus:     publisher,
		authz:   authz,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

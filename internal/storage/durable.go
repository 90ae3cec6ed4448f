package storage

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/shopcart/internal/domain"
	"github.com/fjod/go_cart/shopcart/internal/repository"
)

// DurableBackend keeps cart state in the account's durable record.
type DurableBackend struct {
	repo        repository.CartRepository
	accountID   string
	predecessor Backend
}

func NewDurableBackend(repo repository.CartRepository, accountID string) *DurableBackend {
	return &DurableBackend{repo: repo, accountID: accountID}
}

// Load creates the account record on first access.
func (d *DurableBackend) Load(ctx context.Context) (domain.State, error) {
	record, err := d.repo.GetOrCreate(ctx, d.accountID)
	if err != nil {
		return nil, err
	}
	if record.Carts == nil {
		return domain.State{}, nil
	}
	return record.Carts, nil
}

func (d *DurableBackend) Save(ctx context.Context, state domain.State) error {
	return d.repo.Upsert(ctx, d.accountID, state)
}

func (d *DurableBackend) Clear(ctx context.Context) error {
	err := d.repo.Delete(ctx, d.accountID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil
	}
	return err
}

func (d *DurableBackend) Predecessor() Backend { return d.predecessor }

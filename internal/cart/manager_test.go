package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/fjod/go_cart/shopcart/internal/domain"
	"github.com/fjod/go_cart/shopcart/internal/identity"
	"github.com/fjod/go_cart/shopcart/internal/repository"
	"github.com/fjod/go_cart/shopcart/internal/session"
	"github.com/fjod/go_cart/shopcart/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	mu      sync.Mutex
	records map[string]domain.State
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{records: make(map[string]domain.State)}
}

func (m *memoryRepository) Get(_ context.Context, accountID string) (*repository.CartRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.records[accountID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return &repository.CartRecord{AccountID: accountID, Carts: state}, nil
}

func (m *memoryRepository) GetOrCreate(_ context.Context, accountID string) (*repository.CartRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.records[accountID]
	if !ok {
		state = domain.State{}
		m.records[accountID] = state
	}
	return &repository.CartRecord{AccountID: accountID, Carts: state}, nil
}

func (m *memoryRepository) Upsert(_ context.Context, accountID string, state domain.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[accountID] = state
	return nil
}

func (m *memoryRepository) Delete(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[accountID]; !ok {
		return repository.ErrCartNotFound
	}
	delete(m.records, accountID)
	return nil
}

func newDurableManager(t *testing.T, repo *memoryRepository, resolver *fakeResolver) *Manager {
	t.Helper()
	selector, err := storage.NewSelector(storage.Options{Kind: storage.KindDurable, Repository: repo})
	require.NoError(t, err)
	return NewManager(selector, resolver)
}

func TestManager_LoginMigratesSessionCart(t *testing.T) {
	f := newFixture(t)
	repo := newMemoryRepository()
	manager := newDurableManager(t, repo, f.resolver)
	ctx := context.Background()

	// stale account cart from an earlier visit
	account, err := manager.New(ctx, identity.ForAccount("acc-1"), "")
	require.NoError(t, err)
	_, err = account.Add(ctx, f.productB, 9)
	require.NoError(t, err)

	sess := session.New("s1")
	anon, err := manager.New(ctx, identity.Anonymous("s1", sess), "")
	require.NoError(t, err)
	_, err = anon.Add(ctx, f.productA, 2)
	require.NoError(t, err)

	loggedIn, err := manager.New(ctx, identity.New("acc-1", "s1", sess), "")
	require.NoError(t, err)
	require.Equal(t, 1, loggedIn.UniqueCount())
	assert.Equal(t, f.productA.Ref(), loggedIn.Items()[0].Ref)
	assert.Equal(t, 2, loggedIn.Count())

	// the session was drained, so the next anonymous view is empty
	again, err := manager.New(ctx, identity.Anonymous("s1", sess), "")
	require.NoError(t, err)
	assert.True(t, again.IsEmpty())
}

func TestManager_LoginWithEmptySessionKeepsAccountCart(t *testing.T) {
	f := newFixture(t)
	repo := newMemoryRepository()
	manager := newDurableManager(t, repo, f.resolver)
	ctx := context.Background()

	account, err := manager.New(ctx, identity.ForAccount("acc-1"), "")
	require.NoError(t, err)
	_, err = account.Add(ctx, f.productB, 9)
	require.NoError(t, err)

	loggedIn, err := manager.New(ctx, identity.New("acc-1", "s1", session.New("s1")), "")
	require.NoError(t, err)
	assert.Equal(t, 9, loggedIn.Count())
	assert.Equal(t, f.productB.Ref(), loggedIn.Items()[0].Ref)
}

func TestManager_MergesDuplicateRecordsOnLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, storage.NewSessionBackend(f.sess, "").Save(ctx, domain.State{DefaultPrefix: {
		Items: []domain.ItemRecord{
			{ID: "a", Quantity: 2, Product: f.productA.Ref()},
			{ID: "b", Quantity: 3, Product: f.productA.Ref()},
			{ID: "c", Quantity: 0, Product: f.productB.Ref()},
		},
	}}))

	c := f.cart(t, "")
	require.Equal(t, 1, c.UniqueCount())
	assert.Equal(t, "a", c.Items()[0].ID)
	assert.Equal(t, 5, c.Count())
	assert.NotNil(t, c.Metadata())
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/inventory/internal/apperr"
	"github.com/Skotchmaster/inventory/internal/db"
	"github.com/Skotchmaster/inventory/internal/events"
	"github.com/Skotchmaster/inventory/internal/models"
	"github.com/Skotchmaster/inventory/internal/repo"
	"github.com/Skotchmaster/inventory/internal/search"
	"github.com/Skotchmaster/inventory/internal/tokens"
)

var testSecret = []byte("test-jwt-secret")

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	gdb, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	return &repo.GormRepo{DB: gdb}
}

type recordingPublisher struct {
	events []events.Event
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, ev events.Event) error {
	p.topics = append(p.topics, topic)
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingIndex struct {
	indexed map[uint]models.Product
	deleted []uint
	hits    []search.Document
	err     error
}

func newRecordingIndex() *recordingIndex {
	return &recordingIndex{indexed: map[uint]models.Product{}}
}

func (i *recordingIndex) IndexProduct(_ context.Context, p models.Product) error {
	if i.err != nil {
		return i.err
	}
	i.indexed[p.ID] = p
	return nil
}

func (i *recordingIndex) DeleteProduct(_ context.Context, id uint) error {
	i.deleted = append(i.deleted, id)
	delete(i.indexed, id)
	return i.err
}

func (i *recordingIndex) Search(_ context.Context, _ string, from, size int) (int64, []search.Document, error) {
	if i.err != nil {
		return 0, nil, i.err
	}
	return int64(len(i.hits)), i.hits, nil
}

// blindUserRepo never reports a field as taken, so only the unique indexes
// can catch a duplicate.
type blindUserRepo struct {
	*repo.GormRepo
}

func (blindUserRepo) UserFieldTaken(context.Context, string, string, uint) (bool, error) {
	return false, nil
}

type failingUserRepo struct {
	*repo.GormRepo
}

func (failingUserRepo) UserFieldTaken(context.Context, string, string, uint) (bool, error) {
	return false, errors.New("connection reset")
}

func newUserService(t *testing.T) (*UserService, *repo.GormRepo, *recordingPublisher) {
	t.Helper()

	r := newTestRepo(t)
	pub := &recordingPublisher{}
	return NewUserService(r, pub, &tokens.Issuer{Secret: testSecret, TTL: time.Minute}), r, pub
}

func seedRole(t *testing.T, r *repo.GormRepo, name string) models.Role {
	t.Helper()

	role := models.Role{Name: name}
	require.NoError(t, r.CreateRole(context.Background(), &role))
	return role
}

func seedCategory(t *testing.T, r *repo.GormRepo, name string) models.Category {
	t.Helper()

	category := models.Category{Name: name}
	require.NoError(t, r.CreateCategory(context.Background(), &category))
	return category
}

func strPtr(s string) *string { return &s }

func requireNotFound(t *testing.T, err error, message string) {
	t.Helper()

	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, message, nf.Message)
}

// vanishingUserRepo deletes a user right after it is read, as a concurrent
// DELETE landing between the read and the write would.
type vanishingUserRepo struct {
	*repo.GormRepo
}

func (r vanishingUserRepo) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	u, err := r.GormRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.GormRepo.DeleteUser(ctx, id); err != nil {
		return nil, err
	}
	return u, nil
}

// vanishingProductRepo does the same for products.
type vanishingProductRepo struct {
	*repo.GormRepo
}

func (r vanishingProductRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	p, err := r.GormRepo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.GormRepo.DeleteProduct(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

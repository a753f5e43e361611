package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/inventory/internal/apperr"
	"github.com/Skotchmaster/inventory/internal/events"
	"github.com/Skotchmaster/inventory/internal/logging"
	"github.com/Skotchmaster/inventory/internal/models"
	"github.com/Skotchmaster/inventory/internal/search"
	"github.com/Skotchmaster/inventory/internal/uniqueness"
	"github.com/Skotchmaster/inventory/internal/util"
)

type ProductRepo interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error)
	SaveProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	ProductFieldTaken(ctx context.Context, field, value string, excludeID uint) (bool, error)

	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

type ProductService struct {
	Repo      ProductRepo
	Index     search.Indexer
	Publisher events.Publisher

	unique *uniqueness.Validator
}

func NewProductService(r ProductRepo, idx search.Indexer, pub events.Publisher) *ProductService {
	if idx == nil {
		idx = search.Nop{}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &ProductService{
		Repo:      r,
		Index:     idx,
		Publisher: pub,
		unique:    uniqueness.New(uniqueness.ProberFunc(r.ProductFieldTaken)),
	}
}

type ProductInput struct {
	Name        string
	Brand       string
	Description string
	CategoryID  uint
	Barcode     string
}

// authorize resolves the actor to a stored user. A token for a user that has
// since been deleted counts as no identity.
func (s *ProductService) authorize(ctx context.Context, actor *Actor) error {
	if actor == nil || actor.UserID == 0 {
		return apperr.ErrUnauthenticated
	}
	if _, err := s.Repo.GetUserByID(ctx, actor.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrUnauthenticated
		}
		return err
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, actor *Actor, in ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "products.create")

	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}
	if err := s.unique.Check(ctx, 0, uniqueness.Field("barcode", in.Barcode)); err != nil {
		return nil, err
	}
	if _, err := s.Repo.GetCategory(ctx, in.CategoryID); err != nil {
		return nil, notFound(err, "category", "category not found")
	}

	prod := models.Product{CreatedBy: actor.UserID}
	apply(&prod, in)
	if err := s.Repo.CreateProduct(ctx, &prod); err != nil {
		return nil, asDuplicate(err, map[string]string{"barcode": in.Barcode})
	}

	l.Info("product_created", "product_id", prod.ID, "actor_id", actor.UserID, "actor_role", actor.Role)
	s.reindex(ctx, prod)
	publish(ctx, s.Publisher, events.ProductTopic, productEvent("product_created", prod, actor))
	return &prod, nil
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	prod, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product", "product not found")
	}
	return prod, nil
}

func (s *ProductService) List(ctx context.Context, page, size int) (util.Page[models.Product], error) {
	offset, limit := util.Calculate(page, size)

	total, items, err := s.Repo.GetProducts(ctx, offset, limit)
	if err != nil {
		return util.Page[models.Product]{}, err
	}
	return util.Page[models.Product]{Data: items, Meta: util.BuildMeta(page, offset, limit, total)}, nil
}

// Update overwrites every mutable field and re-attributes the product to actor.
func (s *ProductService) Update(ctx context.Context, actor *Actor, id uint, in ProductInput) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "products.update", "product_id", id)

	if err := s.authorize(ctx, actor); err != nil {
		return nil, err
	}
	if _, err := s.Repo.GetCategory(ctx, in.CategoryID); err != nil {
		return nil, notFound(err, "category", "category not found")
	}
	prod, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product", "product not found")
	}
	if err := s.unique.Check(ctx, id, uniqueness.Field("barcode", in.Barcode)); err != nil {
		return nil, err
	}

	apply(prod, in)
	prod.CreatedBy = actor.UserID
	if err := s.Repo.SaveProduct(ctx, prod); err != nil {
		return nil, notFound(asDuplicate(err, map[string]string{"barcode": in.Barcode}), "product", "product not found")
	}

	l.Info("product_updated", "actor_id", actor.UserID, "actor_role", actor.Role)
	s.reindex(ctx, *prod)
	publish(ctx, s.Publisher, events.ProductTopic, productEvent("product_updated", *prod, actor))
	return prod, nil
}

func (s *ProductService) Delete(ctx context.Context, actor *Actor, id uint) error {
	l := logging.FromContext(ctx).With("svc", "products.delete", "product_id", id)

	if err := s.authorize(ctx, actor); err != nil {
		return err
	}
	if _, err := s.Repo.GetProduct(ctx, id); err != nil {
		return notFound(err, "product", "product not found")
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return notFound(err, "product", "product not found")
	}

	l.Info("product_deleted", "actor_id", actor.UserID, "actor_role", actor.Role)

	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := s.Index.DeleteProduct(ictx, id); err != nil {
		l.Warn("index_error", "reason", "cannot remove product from index", "error", err)
	}

	publish(ctx, s.Publisher, events.ProductTopic, events.Event{Type: "product_deleted", EntityID: id, ActorID: actor.UserID})
	return nil
}

// Search runs a full-text query. It returns search.ErrDisabled when no search
// backend is configured.
func (s *ProductService) Search(ctx context.Context, query string, page, size int) (util.Page[search.Document], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return util.Page[search.Document]{}, apperr.Invalid([]apperr.FieldError{{Field: "q", Message: "Query is required"}})
	}

	offset, limit := util.Calculate(page, size)
	total, docs, err := s.Index.Search(ctx, query, offset, limit)
	if err != nil {
		return util.Page[search.Document]{}, err
	}
	if docs == nil {
		docs = []search.Document{}
	}
	return util.Page[search.Document]{Data: docs, Meta: util.BuildMeta(page, offset, limit, total)}, nil
}

func (s *ProductService) reindex(ctx context.Context, p models.Product) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := s.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("index_error", "product_id", p.ID, "error", err)
	}
}

func apply(p *models.Product, in ProductInput) {
	p.Name = in.Name
	p.Brand = in.Brand
	p.Description = in.Description
	p.CategoryID = in.CategoryID
	p.Barcode = in.Barcode
}

func productEvent(typ string, p models.Product, actor *Actor) events.Event {
	return events.Event{
		Type:     typ,
		EntityID: p.ID,
		ActorID:  actor.UserID,
		Payload: map[string]any{
			"name":       p.Name,
			"barcode":    p.Barcode,
			"categoryId": p.CategoryID,
		},
	}
}

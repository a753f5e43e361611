// Package search keeps an Elasticsearch index of products and queries it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/inventory/internal/models"
)

var ErrDisabled = errors.New("search backend is not configured")

type Document struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Description string `json:"description"`
	Barcode     string `json:"barcode"`
	CategoryID  uint   `json:"categoryId"`
}

func DocumentFrom(p models.Product) Document {
	return Document{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		Description: p.Description,
		Barcode:     p.Barcode,
		CategoryID:  p.CategoryID,
	}
}

type Indexer interface {
	IndexProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []Document, error)
}

// Nop accepts writes and refuses searches.
type Nop struct{}

func (Nop) IndexProduct(context.Context, models.Product) error { return nil }
func (Nop) DeleteProduct(context.Context, uint) error          { return nil }
func (Nop) Search(context.Context, string, int, int) (int64, []Document, error) {
	return 0, nil, ErrDisabled
}

type Config struct {
	URL      string
	Username string
	Password string
	Index    string
}

type Client struct {
	es    *elasticsearch.Client
	index string
}

func NewClient(cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: new client: %w", err)
	}
	return &Client{es: es, index: cfg.Index}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("elasticsearch: info: %s: %s", res.Status(), body)
	}
	return nil
}

func (c *Client) IndexProduct(ctx context.Context, p models.Product) error {
	body, err := json.Marshal(DocumentFrom(p))
	if err != nil {
		return err
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: index product %d: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch: index product %d: %s", p.ID, res.Status())
	}
	return nil
}

func (c *Client) DeleteProduct(ctx context.Context, id uint) error {
	res, err := c.es.Delete(
		c.index,
		strconv.FormatUint(uint64(id), 10),
		c.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch: delete product %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("elasticsearch: delete product %d: %s", id, res.Status())
	}
	return nil
}

func (c *Client) Search(ctx context.Context, query string, from, size int) (int64, []Document, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "brand", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("elasticsearch: search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("elasticsearch: decode search: %w", err)
	}

	docs := make([]Document, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}

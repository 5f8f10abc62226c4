package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Skotchmaster/bookstore/services/catalog/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
)

// Index keeps a searchable copy of the catalog. The database stays the
// source of truth; Query only returns ids.
type Index interface {
	Put(ctx context.Context, doc Document) error
	Remove(ctx context.Context, id uint) error
	Query(ctx context.Context, q string, from, size int) (int64, []uint, error)
}

type Document struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	AuthorName  string  `json:"author_name"`
	Description string  `json:"description"`
	ISBN        string  `json:"isbn,omitempty"`
	Format      string  `json:"format"`
	Price       float64 `json:"price"`
	IsActive    bool    `json:"is_active"`
}

func DocumentFrom(b models.Book) Document {
	d := Document{
		ID:          b.ID,
		Title:       b.Title,
		AuthorName:  b.AuthorName,
		Description: b.Description,
		Format:      b.Format,
		Price:       b.Price,
		IsActive:    b.IsActive,
	}
	if b.ISBN != nil {
		d.ISBN = *b.ISBN
	}
	return d
}

// NewClient connects and checks the cluster answers.
func NewClient(ctx context.Context, url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}
	return client, nil
}

type Elastic struct {
	Client *elasticsearch.Client
	Index  string
}

func docID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (e *Elastic) Put(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := e.Client.Index(e.Index, bytes.NewReader(body),
		e.Client.Index.WithDocumentID(docID(doc.ID)),
		e.Client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index book %d: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index book %d: %s", doc.ID, res.Status())
	}
	return nil
}

func (e *Elastic) Remove(ctx context.Context, id uint) error {
	res, err := e.Client.Delete(e.Index, docID(id), e.Client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("unindex book %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("unindex book %d: %s", id, res.Status())
	}
	return nil
}

func (e *Elastic) Query(ctx context.Context, q string, from, size int) (int64, []uint, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     q,
						"fields":    []string{"title^3", "author_name^2", "description", "isbn"},
						"fuzziness": "AUTO",
					},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"is_active": true}},
				},
			},
		},
		"_source": []string{"id"},
		"from":    from,
		"size":    size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(e.Index),
		e.Client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search books: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search books: %s", res.Status())
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
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]uint, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		ids[i] = hit.Source.ID
	}
	return r.Hits.Total.Value, ids, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	dbpkg "github.com/Skotchmaster/bookstore/pkg/db"
	"github.com/Skotchmaster/bookstore/pkg/events"
	"github.com/Skotchmaster/bookstore/pkg/logging"
	"github.com/Skotchmaster/bookstore/pkg/util"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/models"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/repo"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/search"
	"github.com/Skotchmaster/bookstore/services/catalog/internal/transport"
	"gorm.io/gorm"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

const reindexBatch = 200

type CatalogService struct {
	Repo *repo.GormRepo
	// Index is optional; without it search falls back to the database.
	Index  search.Index
	Events events.Publisher
	Topic  string
}

func validFormat(f string) bool {
	switch f {
	case models.FormatEbook, models.FormatPhysical, models.FormatBoth:
		return true
	}
	return false
}

func validate(b *models.Book) error {
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("title is required: %w", ErrValidation)
	}
	if math.IsNaN(b.Price) || math.IsInf(b.Price, 0) || b.Price < 0 {
		return fmt.Errorf("price cannot be negative: %w", ErrValidation)
	}
	if !validFormat(b.Format) {
		return fmt.Errorf("format must be ebook, physical or both: %w", ErrValidation)
	}
	if b.StockQuantity < 0 || b.LowStockThreshold < 0 {
		return fmt.Errorf("stock values cannot be negative: %w", ErrValidation)
	}
	return nil
}

func optionalISBN(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *CatalogService) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	b, err := s.Repo.GetBook(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return b, err
}

func (s *CatalogService) GetBooks(ctx context.Context, page, size int, activeOnly bool) (int64, []models.Book, error) {
	offset, limit := util.Calculate(page, size)
	return s.Repo.GetBooks(ctx, offset, limit, activeOnly)
}

func (s *CatalogService) CreateBook(ctx context.Context, req transport.CreateBookRequest) (*models.Book, error) {
	b := &models.Book{
		Title:             strings.TrimSpace(req.Title),
		AuthorName:        strings.TrimSpace(req.AuthorName),
		Description:       req.Description,
		ISBN:              optionalISBN(req.ISBN),
		Price:             req.Price,
		Format:            strings.ToLower(strings.TrimSpace(req.Format)),
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
		IsActive:          req.IsActive == nil || *req.IsActive,
	}
	if err := validate(b); err != nil {
		return nil, err
	}

	if err := s.Repo.CreateBook(ctx, b); err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return nil, fmt.Errorf("isbn already used: %w", ErrConflict)
		}
		return nil, err
	}

	s.index(ctx, b)
	s.publish(ctx, b.ID, BookChanged{Kind: "created", BookID: b.ID, Title: b.Title, Price: b.Price, IsActive: b.IsActive})
	return b, nil
}

func (s *CatalogService) PatchBook(ctx context.Context, id uint, req transport.PatchBookRequest) (*models.Book, error) {
	b, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		b.Title = strings.TrimSpace(*req.Title)
	}
	if req.AuthorName != nil {
		b.AuthorName = strings.TrimSpace(*req.AuthorName)
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.ISBN != nil {
		b.ISBN = optionalISBN(*req.ISBN)
	}
	if req.Price != nil {
		b.Price = *req.Price
	}
	if req.Format != nil {
		b.Format = strings.ToLower(strings.TrimSpace(*req.Format))
	}
	if req.StockQuantity != nil {
		b.StockQuantity = *req.StockQuantity
	}
	if req.LowStockThreshold != nil {
		b.LowStockThreshold = *req.LowStockThreshold
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}
	if err := validate(b); err != nil {
		return nil, err
	}

	if err := s.Repo.SaveBook(ctx, b); err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return nil, fmt.Errorf("isbn already used: %w", ErrConflict)
		}
		return nil, err
	}

	s.index(ctx, b)
	s.publish(ctx, b.ID, BookChanged{Kind: "updated", BookID: b.ID, Title: b.Title, Price: b.Price, IsActive: b.IsActive})
	return b, nil
}

// DeleteBook removes a book and everything that references it except
// order history. The report is returned even when the delete fails.
func (s *CatalogService) DeleteBook(ctx context.Context, id uint) (models.CascadeReport, error) {
	report, err := s.Repo.DeleteBook(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return report, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return report, err
	}

	if s.Index != nil {
		if err := s.Index.Remove(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("unindex_book_error", "book_id", id, "error", err)
		}
	}
	s.publish(ctx, id, BookChanged{Kind: "deleted", BookID: id})
	return report, nil
}

func (s *CatalogService) SearchBooks(ctx context.Context, q string, page, size int) (int64, []models.Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, nil, fmt.Errorf("q is required: %w", ErrValidation)
	}
	offset, limit := util.Calculate(page, size)

	if s.Index == nil {
		return s.Repo.SearchBooks(ctx, q, offset, limit)
	}

	total, ids, err := s.Index.Query(ctx, q, offset, limit)
	if err != nil {
		return 0, nil, err
	}
	books, err := s.Repo.BooksByIDs(ctx, ids)
	if err != nil {
		return 0, nil, err
	}
	return total, books, nil
}

// Reindex pushes every book to the search index.
func (s *CatalogService) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, fmt.Errorf("search index not configured: %w", ErrValidation)
	}
	n := 0
	err := s.Repo.AllBooks(ctx, reindexBatch, func(books []models.Book) error {
		for _, b := range books {
			if err := s.Index.Put(ctx, search.DocumentFrom(b)); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func (s *CatalogService) index(ctx context.Context, b *models.Book) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Put(ctx, search.DocumentFrom(*b)); err != nil {
		logging.FromContext(ctx).Warn("index_book_error", "book_id", b.ID, "error", err)
	}
}

func (s *CatalogService) publish(ctx context.Context, bookID uint, event BookChanged) {
	if s.Events == nil {
		return
	}
	topic := s.Topic
	if topic == "" {
		topic = TopicBooks
	}
	key := strconv.FormatUint(uint64(bookID), 10)
	if err := s.Events.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_error", "topic", topic, "key", key, "error", err)
	}
}

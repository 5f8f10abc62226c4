package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Skotchmaster/bookstore/pkg/events"
	"github.com/Skotchmaster/bookstore/pkg/logging"
	"github.com/Skotchmaster/bookstore/services/cart/internal/models"
	"github.com/Skotchmaster/bookstore/services/cart/internal/repo"
	"gorm.io/gorm"
)

const TopicCart = "cart_events"

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
)

type CartService struct {
	Repo            *repo.GormRepo
	Events          events.Publisher
	MaxLineQuantity uint
}

type AddInput struct {
	UserID   uint
	BookID   uint
	Quantity uint
	Format   string
}

func (s *CartService) GetCart(ctx context.Context, userID uint) ([]models.CartLine, error) {
	return s.Repo.GetCart(ctx, userID)
}

// resolveFormat picks the line format for a book. Books sold in both
// formats need an explicit choice.
func resolveFormat(b *models.Book, format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		if b.Format == models.FormatBoth {
			return "", fmt.Errorf("format required for book %d: %w", b.ID, ErrValidation)
		}
		return b.Format, nil
	}
	if !b.Offers(format) {
		return "", fmt.Errorf("book %d is not sold as %q: %w", b.ID, format, ErrValidation)
	}
	return format, nil
}

func (s *CartService) AddToCart(ctx context.Context, in AddInput) (*models.CartItem, error) {
	if in.BookID == 0 {
		return nil, fmt.Errorf("book_id must be set: %w", ErrValidation)
	}
	if in.Quantity == 0 {
		return nil, fmt.Errorf("quantity must be more than zero: %w", ErrValidation)
	}

	b, err := s.Repo.BookByID(ctx, in.BookID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !b.IsActive) {
		return nil, fmt.Errorf("book %d: %w", in.BookID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	format, err := resolveFormat(b, in.Format)
	if err != nil {
		return nil, err
	}

	item := &models.CartItem{UserID: in.UserID, BookID: in.BookID, Quantity: in.Quantity, Format: format}
	if err := s.Repo.AddToCart(ctx, item, s.MaxLineQuantity); err != nil {
		if errors.Is(err, repo.ErrQuantityLimit) {
			return nil, fmt.Errorf("at most %d copies per book: %w", s.MaxLineQuantity, ErrValidation)
		}
		return nil, err
	}

	s.publish(ctx, in.UserID, CartItemChanged{UserID: in.UserID, BookID: item.BookID, Quantity: item.Quantity, Format: item.Format})
	return item, nil
}

// SetQuantity replaces the quantity of a line. Zero removes it.
func (s *CartService) SetQuantity(ctx context.Context, userID, bookID, qty uint) (*models.CartItem, error) {
	if bookID == 0 {
		return nil, fmt.Errorf("book_id must be set: %w", ErrValidation)
	}
	if s.MaxLineQuantity > 0 && qty > s.MaxLineQuantity {
		return nil, fmt.Errorf("at most %d copies per book: %w", s.MaxLineQuantity, ErrValidation)
	}

	item, err := s.Repo.SetQuantity(ctx, userID, bookID, qty)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("book %d not in cart: %w", bookID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, userID, CartItemChanged{UserID: userID, BookID: bookID, Quantity: item.Quantity, Format: item.Format})
	return item, nil
}

func (s *CartService) DeleteOneFromCart(ctx context.Context, bookID, userID uint) (bool, *models.CartItem, error) {
	if bookID == 0 {
		return false, nil, fmt.Errorf("book_id must be set: %w", ErrValidation)
	}

	deleted, item, err := s.Repo.DeleteOneFromCart(ctx, bookID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, fmt.Errorf("book %d not in cart: %w", bookID, ErrNotFound)
	}
	if err != nil {
		return false, nil, err
	}

	qty := item.Quantity
	if deleted {
		qty = 0
	}
	s.publish(ctx, userID, CartItemChanged{UserID: userID, BookID: bookID, Quantity: qty, Format: item.Format})
	return deleted, item, nil
}

func (s *CartService) DeleteAllFromCart(ctx context.Context, userID uint) (int64, error) {
	n, err := s.Repo.DeleteAllFromCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.publish(ctx, userID, CartCleared{UserID: userID, Removed: n})
	}
	return n, nil
}

func (s *CartService) publish(ctx context.Context, userID uint, event any) {
	if s.Events == nil {
		return
	}
	key := strconv.FormatUint(uint64(userID), 10)
	if err := s.Events.PublishEvent(ctx, TopicCart, key, event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_error", "topic", TopicCart, "key", key, "error", err)
	}
}

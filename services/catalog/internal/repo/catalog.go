package repo

import (
	"context"
	"strings"

	"github.com/Skotchmaster/bookstore/services/catalog/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *GormRepo) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := r.DB.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *GormRepo) GetBooks(ctx context.Context, offset, limit int, activeOnly bool) (int64, []models.Book, error) {
	q := r.DB.WithContext(ctx).Model(&models.Book{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Book
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// BooksByIDs returns active books in the order of ids; missing ids are skipped.
func (r *GormRepo) BooksByIDs(ctx context.Context, ids []uint) ([]models.Book, error) {
	if len(ids) == 0 {
		return []models.Book{}, nil
	}
	var found []models.Book
	if err := r.DB.WithContext(ctx).Where("id IN ? AND is_active = ?", ids, true).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Book, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	out := make([]models.Book, 0, len(found))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// AllBooks walks every book in id order, batch rows at a time.
func (r *GormRepo) AllBooks(ctx context.Context, batch int, fn func([]models.Book) error) error {
	var rows []models.Book
	res := r.DB.WithContext(ctx).Order("id ASC").FindInBatches(&rows, batch, func(tx *gorm.DB, _ int) error {
		return fn(rows)
	})
	return res.Error
}

func (r *GormRepo) CreateBook(ctx context.Context, book *models.Book) error {
	return r.DB.WithContext(ctx).Create(book).Error
}

func (r *GormRepo) SaveBook(ctx context.Context, book *models.Book) error {
	return r.DB.WithContext(ctx).Save(book).Error
}

// SearchBooks is the database fallback when no search index is configured.
func (r *GormRepo) SearchBooks(ctx context.Context, q string, offset, limit int) (int64, []models.Book, error) {
	like := "%" + strings.ToLower(q) + "%"
	where := r.DB.WithContext(ctx).Model(&models.Book{}).
		Where("is_active = ?", true).
		Where("LOWER(title) LIKE ? OR LOWER(author_name) LIKE ? OR LOWER(description) LIKE ?", like, like, like).
		Session(&gorm.Session{})

	var total int64
	if err := where.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Book, 0, limit)
	if err := where.Order("title ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// DeleteBook clears every table referencing the book, each in its own
// savepoint, then deletes the book. The report lists every table. If any
// table fails the whole transaction rolls back and ErrCascadeIncomplete is
// returned together with the report.
func (r *GormRepo) DeleteBook(ctx context.Context, id uint) (models.CascadeReport, error) {
	report := models.CascadeReport{BookID: id}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, id).Error; err != nil {
			return err
		}

		for _, table := range cascadeTables {
			step := models.CascadeStep{Table: table}
			err := tx.Transaction(func(sp *gorm.DB) error {
				res := sp.Exec("DELETE FROM "+table+" WHERE book_id = ?", id)
				step.Deleted = res.RowsAffected
				return res.Error
			})
			if err != nil {
				step.Deleted = 0
				step.Error = err.Error()
			}
			report.Steps = append(report.Steps, step)
		}
		if len(report.Failed()) > 0 {
			return ErrCascadeIncomplete
		}

		if err := tx.Delete(&models.Book{}, id).Error; err != nil {
			return err
		}
		report.Deleted = true
		return nil
	})
	if err != nil {
		report.Deleted = false
		return report, err
	}
	return report, nil
}

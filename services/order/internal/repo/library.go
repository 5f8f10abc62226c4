package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"gorm.io/gorm/clause"
)

var userBookConflict = []clause.Column{{Name: "user_id"}, {Name: "book_id"}}

// InsertLibraryItems adds the items that are not in the library yet and
// reports how many rows were new.
func (r *GormRepo) InsertLibraryItems(ctx context.Context, items []models.UserLibraryItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: userBookConflict, DoNothing: true}).
		Create(&items)
	return res.RowsAffected, res.Error
}

// UpsertLibraryItem reactivates an existing entry without touching its
// access type.
func (r *GormRepo) UpsertLibraryItem(ctx context.Context, item *models.UserLibraryItem) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   userBookConflict,
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(item).Error
}

func (r *GormRepo) UpsertAssignment(ctx context.Context, a *models.BookAssignment) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: userBookConflict,
			DoUpdates: clause.Assignments(map[string]any{
				"assigned_by": a.AssignedBy,
				"status":      models.AssignmentActive,
				"reason":      a.Reason,
				"assigned_at": a.AssignedAt,
				"updated_at":  a.AssignedAt,
				"removed_at":  nil,
				"removed_by":  nil,
			}),
		}).
		Create(a).Error
}

func (r *GormRepo) Assignment(ctx context.Context, userID, bookID uint) (*models.BookAssignment, error) {
	var a models.BookAssignment
	if err := r.DB.WithContext(ctx).Where("user_id = ? AND book_id = ?", userID, bookID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormRepo) DeleteLibraryItem(ctx context.Context, userID, bookID uint) (bool, error) {
	res := r.DB.WithContext(ctx).Where("user_id = ? AND book_id = ?", userID, bookID).Delete(&models.UserLibraryItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) MarkAssignmentRemoved(ctx context.Context, userID, bookID uint, by *uint, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.BookAssignment{}).
		Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, models.AssignmentActive).
		Updates(map[string]any{
			"status":     models.AssignmentRemoved,
			"removed_at": at,
			"removed_by": by,
		}).Error
}

func (r *GormRepo) ListLibrary(ctx context.Context, userID uint) ([]models.UserLibraryItem, error) {
	var items []models.UserLibraryItem
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("added_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// OrphanedLibraryItems lists library rows whose book no longer exists.
func (r *GormRepo) OrphanedLibraryItems(ctx context.Context, userID *uint) ([]models.LibraryDrift, error) {
	q := r.DB.WithContext(ctx).
		Table("user_library_items AS li").
		Select("li.user_id, li.book_id").
		Joins("LEFT JOIN books AS b ON b.id = li.book_id").
		Where("b.id IS NULL")
	if userID != nil {
		q = q.Where("li.user_id = ?", *userID)
	}
	var out []models.LibraryDrift
	if err := q.Order("li.user_id, li.book_id").Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UnsyncedAssignments lists active assignments with no library row.
func (r *GormRepo) UnsyncedAssignments(ctx context.Context, userID *uint) ([]models.LibraryDrift, error) {
	q := r.DB.WithContext(ctx).
		Table("book_assignments AS a").
		Select("a.user_id, a.book_id").
		Joins("LEFT JOIN user_library_items AS li ON li.user_id = a.user_id AND li.book_id = a.book_id").
		Where("a.status = ? AND li.id IS NULL", models.AssignmentActive)
	if userID != nil {
		q = q.Where("a.user_id = ?", *userID)
	}
	var out []models.LibraryDrift
	if err := q.Order("a.user_id, a.book_id").Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return r.DB.WithContext(ctx).Create(entry).Error
}

func (r *GormRepo) AuditLogs(ctx context.Context, entityType, entityID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := r.DB.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at, id").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

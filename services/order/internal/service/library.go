package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Skotchmaster/bookstore/pkg/logging"
	"github.com/Skotchmaster/bookstore/services/order/internal/models"
	"github.com/Skotchmaster/bookstore/services/order/internal/repo"
	"gorm.io/gorm"
)

type LibraryService struct {
	Runtime
	Repo *repo.GormRepo
}

type AssignInput struct {
	UserID  uint
	BookID  uint
	AdminID uint
	Reason  string
	// NotifyEmail, when set, receives the library_book_assigned email.
	NotifyEmail string
}

type LibraryReport struct {
	Orphaned []models.LibraryDrift `json:"orphaned"`
	Unsynced []models.LibraryDrift `json:"unsynced"`
	Repaired int64                 `json:"repaired"`
}

// libraryGrant describes a committed grant so it can be announced afterwards.
type libraryGrant struct {
	UserID     uint
	BookIDs    []uint
	AccessType string
	OrderID    *uint
	Added      int64
}

func (s *LibraryService) announce(ctx context.Context, g libraryGrant) {
	if g.Added > 0 {
		libraryGrants.WithLabelValues(g.AccessType).Add(float64(g.Added))
	}
	s.publish(ctx, TopicLibrary, strconv.FormatUint(uint64(g.UserID), 10), LibraryGranted{
		UserID:     g.UserID,
		BookIDs:    g.BookIDs,
		AccessType: g.AccessType,
		OrderID:    g.OrderID,
	})
}

// SyncOrderToLibrary grants every distinct book of a paid order. Running it
// again for the same order adds nothing. A zero userID skips the owner check.
func (s *LibraryService) SyncOrderToLibrary(ctx context.Context, orderID, userID uint) (int64, error) {
	var grant *libraryGrant
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if userID != 0 && o.UserID != userID {
			return fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
		}
		if o.PaymentStatus != models.PaymentStatusPaid {
			return fmt.Errorf("%w: order %s is %s", ErrOrderNotPaid, o.OrderNumber, o.PaymentStatus)
		}
		grant, err = s.syncOrder(ctx, r, o)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.announce(ctx, *grant)
	return grant.Added, nil
}

func (s *LibraryService) syncOrder(ctx context.Context, r *repo.GormRepo, o *models.Order) (*libraryGrant, error) {
	items := o.Items
	if items == nil {
		full, err := loadOrder(ctx, r, o.ID)
		if err != nil {
			return nil, err
		}
		items = full.Items
	}

	now := s.now()
	orderID := o.ID
	seen := make(map[uint]bool, len(items))
	rows := make([]models.UserLibraryItem, 0, len(items))
	bookIDs := make([]uint, 0, len(items))
	for _, it := range items {
		if seen[it.BookID] {
			continue
		}
		seen[it.BookID] = true
		bookIDs = append(bookIDs, it.BookID)
		rows = append(rows, models.UserLibraryItem{
			UserID:     o.UserID,
			BookID:     it.BookID,
			AccessType: models.AccessPurchased,
			OrderID:    &orderID,
			Status:     models.LibraryActive,
			AddedAt:    now,
		})
	}

	added, err := r.InsertLibraryItems(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("sync order %d to library: %w", o.ID, err)
	}
	return &libraryGrant{
		UserID:     o.UserID,
		BookIDs:    bookIDs,
		AccessType: models.AccessPurchased,
		OrderID:    &orderID,
		Added:      added,
	}, nil
}

// AssignBookToUser grants a book on an admin's behalf. Assigning the same
// book again refreshes the reason and timestamps.
func (s *LibraryService) AssignBookToUser(ctx context.Context, in AssignInput) (*models.BookAssignment, error) {
	if in.UserID == 0 || in.BookID == 0 || in.AdminID == 0 {
		return nil, fmt.Errorf("%w: user_id, book_id and admin required", ErrValidation)
	}
	reason := SanitizeNote(in.Reason)

	var (
		assignment *models.BookAssignment
		book       *models.Book
	)
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		var err error
		if book, err = r.BookByID(ctx, in.BookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", ErrBookNotFound, in.BookID)
			}
			return err
		}

		now := s.now()
		if err := r.UpsertLibraryItem(ctx, &models.UserLibraryItem{
			UserID:     in.UserID,
			BookID:     in.BookID,
			AccessType: models.AccessAdminAssigned,
			Status:     models.LibraryActive,
			AddedAt:    now,
			UpdatedAt:  now,
		}); err != nil {
			return fmt.Errorf("upsert library item: %w", err)
		}
		if err := r.UpsertAssignment(ctx, &models.BookAssignment{
			UserID:     in.UserID,
			BookID:     in.BookID,
			AssignedBy: in.AdminID,
			Status:     models.AssignmentActive,
			Reason:     reason,
			AssignedAt: now,
			UpdatedAt:  now,
		}); err != nil {
			return fmt.Errorf("upsert assignment: %w", err)
		}

		a, err := r.Assignment(ctx, in.UserID, in.BookID)
		if err != nil {
			return err
		}
		assignment = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, in.AdminID, "library.assign", in.UserID, in.BookID, map[string]any{"reason": reason})
	s.announce(ctx, libraryGrant{
		UserID:     in.UserID,
		BookIDs:    []uint{in.BookID},
		AccessType: models.AccessAdminAssigned,
		Added:      1,
	})
	s.email(ctx, strings.TrimSpace(in.NotifyEmail), EmailLibraryBookAssigned, map[string]string{
		"book_title":  book.Title,
		"author_name": book.AuthorName,
		"reason":      reason,
	})
	return assignment, nil
}

// RemoveBookFromUser revokes a library entry. adminID is nil when the
// removal is not an admin action.
func (s *LibraryService) RemoveBookFromUser(ctx context.Context, userID, bookID uint, adminID *uint) error {
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		deleted, err := r.DeleteLibraryItem(ctx, userID, bookID)
		if err != nil {
			return fmt.Errorf("delete library item: %w", err)
		}
		if !deleted {
			return fmt.Errorf("%w: user %d book %d", ErrNotInLibrary, userID, bookID)
		}
		return r.MarkAssignmentRemoved(ctx, userID, bookID, adminID, s.now())
	})
	if err != nil {
		return err
	}

	if adminID != nil {
		s.audit(ctx, *adminID, "library.remove", userID, bookID, nil)
	}
	s.publish(ctx, TopicLibrary, strconv.FormatUint(uint64(userID), 10), LibraryRevoked{UserID: userID, BookID: bookID})
	return nil
}

// audit is best effort: a failed write is logged and the caller carries on.
func (s *LibraryService) audit(ctx context.Context, actorID uint, action string, userID, bookID uint, details map[string]any) {
	entry := &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: "user_library",
		EntityID:   fmt.Sprintf("%d:%d", userID, bookID),
	}
	if len(details) > 0 {
		if b, err := json.Marshal(details); err == nil {
			entry.Details = string(b)
		}
	}
	if err := s.Repo.CreateAuditLog(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("audit_log_error", "action", action, "entity_id", entry.EntityID, "error", err)
	}
}

func (s *LibraryService) ListLibrary(ctx context.Context, userID uint) ([]models.UserLibraryItem, error) {
	return s.Repo.ListLibrary(ctx, userID)
}

// VerifyUserLibrary reports drift for one user and, with repair set,
// re-creates library rows for active assignments that lost theirs.
func (s *LibraryService) VerifyUserLibrary(ctx context.Context, userID uint, repair bool) (*LibraryReport, error) {
	return s.reconcile(ctx, &userID, repair)
}

// SyncAssignmentsToLibrary repairs unsynced assignments of every user.
func (s *LibraryService) SyncAssignmentsToLibrary(ctx context.Context) (*LibraryReport, error) {
	return s.reconcile(ctx, nil, true)
}

func (s *LibraryService) reconcile(ctx context.Context, userID *uint, repair bool) (*LibraryReport, error) {
	report := &LibraryReport{}
	err := s.Repo.Transaction(ctx, func(r *repo.GormRepo) error {
		orphaned, err := r.OrphanedLibraryItems(ctx, userID)
		if err != nil {
			return fmt.Errorf("find orphaned library items: %w", err)
		}
		unsynced, err := r.UnsyncedAssignments(ctx, userID)
		if err != nil {
			return fmt.Errorf("find unsynced assignments: %w", err)
		}
		report.Orphaned = orphaned
		report.Unsynced = unsynced

		if !repair || len(unsynced) == 0 {
			return nil
		}
		now := s.now()
		rows := make([]models.UserLibraryItem, 0, len(unsynced))
		for _, d := range unsynced {
			rows = append(rows, models.UserLibraryItem{
				UserID:     d.UserID,
				BookID:     d.BookID,
				AccessType: models.AccessAdminAssigned,
				Status:     models.LibraryActive,
				AddedAt:    now,
			})
		}
		report.Repaired, err = r.InsertLibraryItems(ctx, rows)
		return err
	})
	if err != nil {
		return nil, err
	}

	if report.Repaired > 0 {
		libraryGrants.WithLabelValues(models.AccessAdminAssigned).Add(float64(report.Repaired))
		logging.FromContext(ctx).Info("library_drift_repaired", "repaired", report.Repaired, "orphaned", len(report.Orphaned))
	}
	return report, nil
}

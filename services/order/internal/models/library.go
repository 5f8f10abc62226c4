package models

import "time"

const (
	AccessPurchased     = "purchased"
	AccessAdminAssigned = "admin_assigned"
	AccessPromotional   = "promotional"
)

const (
	LibraryActive = "active"

	AssignmentActive  = "active"
	AssignmentRemoved = "removed"
	AssignmentExpired = "expired"
)

type UserLibraryItem struct {
	ID            uint      `gorm:"primaryKey"                                 json:"id"`
	UserID        uint      `gorm:"uniqueIndex:idx_library_user_book;not null" json:"user_id"`
	BookID        uint      `gorm:"uniqueIndex:idx_library_user_book;not null" json:"book_id"`
	AccessType    string    `gorm:"size:32;not null"                           json:"access_type"`
	OrderID       *uint     `gorm:"index"                                      json:"order_id,omitempty"`
	Status        string    `gorm:"size:16;not null"                           json:"status"`
	AddedAt       time.Time `gorm:"not null"                                   json:"added_at"`
	DownloadCount int       `gorm:"not null;default:0"                         json:"download_count"`
	IsFavorite    bool      `gorm:"not null"                                   json:"is_favorite"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (UserLibraryItem) TableName() string { return "user_library_items" }

type BookAssignment struct {
	ID         uint       `gorm:"primaryKey"                                    json:"id"`
	UserID     uint       `gorm:"uniqueIndex:idx_assignment_user_book;not null" json:"user_id"`
	BookID     uint       `gorm:"uniqueIndex:idx_assignment_user_book;not null" json:"book_id"`
	AssignedBy uint       `gorm:"not null"                                      json:"assigned_by"`
	Status     string     `gorm:"size:16;not null"                              json:"status"`
	Reason     string     `gorm:"type:text"                                     json:"reason,omitempty"`
	AssignedAt time.Time  `gorm:"not null"                                      json:"assigned_at"`
	RemovedAt  *time.Time `json:"removed_at,omitempty"`
	RemovedBy  *uint      `json:"removed_by,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (BookAssignment) TableName() string { return "book_assignments" }

// LibraryDrift identifies one (user, book) pair that is out of sync.
type LibraryDrift struct {
	UserID uint `json:"user_id"`
	BookID uint `json:"book_id"`
}

type AuditLog struct {
	ID         uint      `gorm:"primaryKey"        json:"id"`
	ActorID    uint      `gorm:"index;not null"    json:"actor_id"`
	Action     string    `gorm:"size:64;not null"  json:"action"`
	EntityType string    `gorm:"size:64;not null"  json:"entity_type"`
	EntityID   string    `gorm:"size:128;not null" json:"entity_id"`
	Details    string    `gorm:"type:text"         json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"rental-portal/internal/apperr"
)

// DeletionLog is the append-only audit row written once per removed entity.
// Only the actor reference may change afterwards, when the actor's own
// account is privacy-erased.
type DeletionLog struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	DeletedByID    *uint  `gorm:"index" json:"deleted_by_id,omitempty"`
	DeletedBy      *User  `gorm:"foreignKey:DeletedByID;constraint:OnDelete:SET NULL" json:"-"`
	DeletedByToken string `gorm:"type:varchar(64);index" json:"deleted_by_token,omitempty"`

	// (DeletedModel, DeletedObjectID) is a weak reference: it is never used
	// for ownership and survives the referenced row.
	DeletedModel     string `gorm:"type:varchar(64);not null;index:idx_deletion_logs_object" json:"deleted_model"`
	DeletedModelName string `gorm:"type:varchar(100);not null" json:"deleted_model_name"`
	DeletedObjectID  uint   `gorm:"not null;index:idx_deletion_logs_object,priority:2" json:"deleted_object_id"`

	Reason       string       `gorm:"type:text" json:"reason,omitempty"`
	DeletionType DeletionType `gorm:"type:varchar(20);not null;default:'SOFT_DELETE';index" json:"deletion_type"`
	IsCascade    bool         `gorm:"not null" json:"is_cascade"`

	ParentLogID   *uint        `gorm:"index" json:"parent_log_id,omitempty"`
	ParentLog     *DeletionLog `gorm:"foreignKey:ParentLogID" json:"-"`
	ParentLogName string       `gorm:"type:varchar(150)" json:"parent_log_name,omitempty"`
	CascadeID     string       `gorm:"type:varchar(36);index" json:"cascade_id"`

	Metadata datatypes.JSON `json:"metadata,omitempty"`

	DeletedAt time.Time `gorm:"not null;index" json:"deleted_at"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// DeletionType says how the entity was removed.
type DeletionType string

const (
	DeletionTypeCascade       DeletionType = "CASCADE"
	DeletionTypeSoftDelete    DeletionType = "SOFT_DELETE"
	DeletionTypePrivacyDelete DeletionType = "PRIVACY_DELETE"
)

func (DeletionLog) TableName() string {
	return "deletion_logs"
}

// Label is the display name copied into children's ParentLogName.
func (l *DeletionLog) Label() string {
	return fmt.Sprintf("%s #%d", l.DeletedModelName, l.DeletedObjectID)
}

// BeforeCreate enforces the row invariants regardless of which code path
// inserts it.
func (l *DeletionLog) BeforeCreate(tx *gorm.DB) error {
	if l.DeletedObjectID < 1 {
		return apperr.Validation("deletion log: deleted_object_id must be positive")
	}
	if l.DeletedModel == "" {
		return apperr.Validation("deletion log: deleted_model is required")
	}
	if l.IsCascade != (l.ParentLogID != nil) {
		return apperr.Validation("deletion log: is_cascade must match presence of parent_log")
	}
	if l.ParentLogID != nil && l.ID != 0 && *l.ParentLogID == l.ID {
		return apperr.Validation("deletion log: a log cannot be its own parent")
	}
	if l.DeletionType == "" {
		l.DeletionType = DeletionTypeSoftDelete
	}
	if l.DeletedAt.IsZero() {
		l.DeletedAt = time.Now()
	}
	return nil
}

// BeforeDelete refuses physical deletion of audit rows.
func (l *DeletionLog) BeforeDelete(tx *gorm.DB) error {
	return apperr.ErrImmutable
}

package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Review is a tenant's feedback on a property.
type Review struct {
	ID         uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID uint         `gorm:"not null;index" json:"property_id"`
	AuthorID   uint         `gorm:"not null;index" json:"author_id"`
	Author     *User        `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Rating     int          `gorm:"not null" json:"rating"`
	Feedback   string       `gorm:"type:text" json:"feedback,omitempty"`
	Status     ReviewStatus `gorm:"type:varchar(20);not null;default:'published';index" json:"status"`
	RemovedAt  *time.Time   `json:"removed_at,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type ReviewStatus string

const (
	ReviewStatusPublished ReviewStatus = "published"
	ReviewStatusDeleted   ReviewStatus = "deleted"
)

func (Review) TableName() string {
	return "reviews"
}

func (r *Review) ModelTag() string  { return ModelTagReview }
func (r *Review) ModelName() string { return "Review" }
func (r *Review) ObjectID() uint    { return r.ID }

func (r *Review) IsDeleted() bool {
	return r.Status == ReviewStatusDeleted
}

// SoftDelete hides the review and keeps its feedback untouched.
func (r *Review) SoftDelete(tx *gorm.DB) error {
	now := time.Now()
	r.Status = ReviewStatusDeleted
	r.RemovedAt = &now
	return tx.Model(r).Updates(map[string]interface{}{
		"status":     r.Status,
		"removed_at": &now,
	}).Error
}

// SoftDeleteWithContent hides the review and overwrites the feedback with
// already sanitized text.
func (r *Review) SoftDeleteWithContent(tx *gorm.DB, scrubbed string) error {
	now := time.Now()
	r.Status = ReviewStatusDeleted
	r.RemovedAt = &now
	r.Feedback = scrubbed
	return tx.Model(r).Updates(map[string]interface{}{
		"status":     r.Status,
		"removed_at": &now,
		"feedback":   scrubbed,
	}).Error
}

// ScrubbableContent returns the feedback together with the author's email
// and profile phone numbers.
func (r *Review) ScrubbableContent(tx *gorm.DB) (string, []string, error) {
	if r.Feedback == "" {
		return "", nil, nil
	}

	var known []string
	if err := tx.Model(&User{}).Where("id = ?", r.AuthorID).Pluck("email", &known).Error; err != nil {
		return "", nil, fmt.Errorf("failed to load author email for review %d: %w", r.ID, err)
	}

	var phones []string
	if err := tx.Model(&UserProfile{}).Where("user_id = ?", r.AuthorID).Pluck("phone", &phones).Error; err != nil {
		return "", nil, fmt.Errorf("failed to load author phone for review %d: %w", r.ID, err)
	}

	return r.Feedback, append(known, phones...), nil
}

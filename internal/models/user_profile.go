package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// UserProfile holds the personal data attached to a User. Privacy erasure
// detaches the user and leaves a token in its place.
type UserProfile struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      *uint      `gorm:"index" json:"user_id,omitempty"`
	User        *User      `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	UserToken   string     `gorm:"type:varchar(64);index" json:"user_token,omitempty"`
	Phone       string     `gorm:"type:varchar(50);not null;uniqueIndex" json:"phone"`
	Gender      string     `gorm:"type:varchar(50)" json:"gender,omitempty"`
	Citizenship string     `gorm:"type:varchar(100)" json:"citizenship,omitempty"`
	Favorites   []Property `gorm:"many2many:user_favorites;" json:"favorites,omitempty"`

	ErasureRequestedAt *time.Time `gorm:"index" json:"erasure_requested_at,omitempty"`
	AnonymizedAt       *time.Time `json:"anonymized_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

func (p *UserProfile) ModelTag() string  { return ModelTagUserProfile }
func (p *UserProfile) ModelName() string { return "User profile" }
func (p *UserProfile) ObjectID() uint    { return p.ID }

// IsAnonymized reports whether the live user reference is gone.
func (p *UserProfile) IsAnonymized() bool {
	return p.UserID == nil
}

// PrivacyDelete irreversibly anonymizes the profile. It is a no-op once the
// user reference is already detached.
func (p *UserProfile) PrivacyDelete(tx *gorm.DB, tokens TokenMaker, context string) error {
	if p.UserID == nil {
		return nil
	}

	now := time.Now()
	p.UserToken = tokens.MakeUserToken(*p.UserID, context)
	p.UserID = nil
	p.User = nil
	p.Phone = fmt.Sprintf("deleted_%d", p.ID)
	p.Gender = ""
	p.Citizenship = ""
	p.AnonymizedAt = &now

	if err := tx.Model(p).Association("Favorites").Clear(); err != nil {
		return fmt.Errorf("failed to clear favorites of user profile %d: %w", p.ID, err)
	}
	p.Favorites = nil

	if err := tx.Model(p).Updates(map[string]interface{}{
		"user_id":       nil,
		"user_token":    p.UserToken,
		"phone":         p.Phone,
		"gender":        "",
		"citizenship":   "",
		"anonymized_at": &now,
	}).Error; err != nil {
		return fmt.Errorf("failed to anonymize user profile %d: %w", p.ID, err)
	}
	return nil
}

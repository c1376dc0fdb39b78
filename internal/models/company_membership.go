package models

import (
	"time"

	"gorm.io/gorm"
)

// CompanyMembership is a user's role inside a company landlord profile.
type CompanyMembership struct {
	ID                uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	LandlordProfileID uint             `gorm:"not null;index" json:"landlord_profile_id"`
	UserID            uint             `gorm:"not null;index" json:"user_id"`
	User              *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role              string           `gorm:"type:varchar(50);not null;default:'agent'" json:"role"` // owner, manager, agent
	Status            MembershipStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	RemovedAt         *time.Time       `json:"removed_at,omitempty"`
	CreatedAt         time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type MembershipStatus string

const (
	MembershipStatusActive  MembershipStatus = "active"
	MembershipStatusDeleted MembershipStatus = "deleted"
)

func (CompanyMembership) TableName() string {
	return "company_memberships"
}

func (m *CompanyMembership) ModelTag() string  { return ModelTagCompanyMembership }
func (m *CompanyMembership) ModelName() string { return "Company membership" }
func (m *CompanyMembership) ObjectID() uint    { return m.ID }

func (m *CompanyMembership) IsDeleted() bool {
	return m.Status == MembershipStatusDeleted
}

func (m *CompanyMembership) SoftDelete(tx *gorm.DB) error {
	now := time.Now()
	m.Status = MembershipStatusDeleted
	m.RemovedAt = &now
	return tx.Model(m).Updates(map[string]interface{}{
		"status":     m.Status,
		"removed_at": &now,
	}).Error
}

package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// LandlordProfile is an individual or company account that owns properties.
// It is the root of every ownership cascade.
type LandlordProfile struct {
	ID        uint                  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint                  `gorm:"not null;index" json:"user_id"`
	User      *User                 `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Kind      LandlordKind          `gorm:"type:varchar(20);not null;default:'individual'" json:"kind"`
	Name      string                `gorm:"type:varchar(255);not null" json:"name"`
	Status    LandlordProfileStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	RemovedAt *time.Time            `json:"removed_at,omitempty"`

	Properties  []Property          `gorm:"foreignKey:LandlordProfileID" json:"properties,omitempty"`
	Memberships []CompanyMembership `gorm:"foreignKey:LandlordProfileID" json:"memberships,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type LandlordKind string

const (
	LandlordKindIndividual LandlordKind = "individual"
	LandlordKindCompany    LandlordKind = "company"
)

type LandlordProfileStatus string

const (
	LandlordProfileStatusActive  LandlordProfileStatus = "active"
	LandlordProfileStatusDeleted LandlordProfileStatus = "deleted"
)

func (LandlordProfile) TableName() string {
	return "landlord_profiles"
}

func (p *LandlordProfile) ModelTag() string  { return ModelTagLandlordProfile }
func (p *LandlordProfile) ModelName() string { return "Landlord profile" }
func (p *LandlordProfile) ObjectID() uint    { return p.ID }

func (p *LandlordProfile) IsCompany() bool {
	return p.Kind == LandlordKindCompany
}

func (p *LandlordProfile) IsDeleted() bool {
	return p.Status == LandlordProfileStatusDeleted
}

func (p *LandlordProfile) SoftDelete(tx *gorm.DB) error {
	now := time.Now()
	p.Status = LandlordProfileStatusDeleted
	p.RemovedAt = &now
	return tx.Model(p).Updates(map[string]interface{}{
		"status":     p.Status,
		"removed_at": &now,
	}).Error
}

// Dependents lists what a profile owns: active memberships first (company
// profiles only), then every property that is not already deleted.
func (p *LandlordProfile) Dependents(tx *gorm.DB) ([]Deletable, error) {
	var deps []Deletable

	if p.IsCompany() {
		var memberships []CompanyMembership
		if err := tx.Where("landlord_profile_id = ? AND status = ?", p.ID, MembershipStatusActive).
			Order("id").
			Find(&memberships).Error; err != nil {
			return nil, fmt.Errorf("failed to list memberships of landlord profile %d: %w", p.ID, err)
		}
		for i := range memberships {
			deps = append(deps, &memberships[i])
		}
	}

	var properties []Property
	if err := tx.Where("landlord_profile_id = ? AND status <> ?", p.ID, PropertyStatusDeleted).
		Order("id").
		Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to list properties of landlord profile %d: %w", p.ID, err)
	}
	for i := range properties {
		deps = append(deps, &properties[i])
	}

	return deps, nil
}

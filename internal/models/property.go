package models

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

type Property struct {
	ID                uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	LandlordProfileID uint   `gorm:"not null;index" json:"landlord_profile_id"`
	Title             string `gorm:"type:varchar(255);not null" json:"title"`
	Address           string `gorm:"type:text" json:"address,omitempty"`
	Rent              *int   `gorm:"index" json:"rent,omitempty"`

	// Status tracks the soft delete; IsListed is the public listing flag.
	Status    PropertyStatus `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	IsListed  bool           `gorm:"not null" json:"is_listed"`
	RemovedAt *time.Time     `json:"removed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// PropertyStatus is the availability of a property.
type PropertyStatus string

const (
	PropertyStatusAvailable PropertyStatus = "available"
	PropertyStatusRented    PropertyStatus = "rented"
	PropertyStatusDeleted   PropertyStatus = "deleted"
)

func (Property) TableName() string {
	return "properties"
}

func (p *Property) ModelTag() string  { return ModelTagProperty }
func (p *Property) ModelName() string { return "Property" }
func (p *Property) ObjectID() uint    { return p.ID }
func (p *Property) IndexID() string   { return strconv.FormatUint(uint64(p.ID), 10) }

func (p *Property) IsDeleted() bool {
	return p.Status == PropertyStatusDeleted
}

// SoftDelete flips the status to deleted and unlists the property in one write.
func (p *Property) SoftDelete(tx *gorm.DB) error {
	now := time.Now()
	p.Status = PropertyStatusDeleted
	p.IsListed = false
	p.RemovedAt = &now
	return tx.Model(p).Updates(map[string]interface{}{
		"status":     p.Status,
		"is_listed":  false,
		"removed_at": &now,
	}).Error
}

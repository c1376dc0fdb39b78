package models

import "gorm.io/gorm"

// Type tags stored in deletion_logs.deleted_model. They outlive the Go types,
// so never rename one once rows reference it.
const (
	ModelTagUserProfile       = "user_profile"
	ModelTagLandlordProfile   = "landlord_profile"
	ModelTagProperty          = "property"
	ModelTagCompanyMembership = "company_membership"
	ModelTagReview            = "review"
)

// Loggable is anything a DeletionLog row can point at.
type Loggable interface {
	ModelTag() string
	ModelName() string
	ObjectID() uint
}

// Deletable entities support a reversible status flip.
type Deletable interface {
	Loggable
	IsDeleted() bool
	SoftDelete(tx *gorm.DB) error
}

// Owner is implemented by aggregates whose removal cascades. Dependents
// returns the currently not-deleted children in processing order.
type Owner interface {
	Deletable
	Dependents(tx *gorm.DB) ([]Deletable, error)
}

// ContentScrubber is implemented by entities whose free text must be stripped
// of the author's personal data before a soft delete persists it.
type ContentScrubber interface {
	Deletable
	// ScrubbableContent returns the text to scrub and the author's known
	// identifiers (phone, email) that must not survive.
	ScrubbableContent(tx *gorm.DB) (content string, known []string, err error)
	SoftDeleteWithContent(tx *gorm.DB, scrubbed string) error
}

// Indexed entities have a document in the search index that must be evicted
// once their soft delete commits.
type Indexed interface {
	IndexID() string
}

// TokenMaker derives the anonymized identity token for a user.
type TokenMaker interface {
	MakeUserToken(userID uint, context string) string
}

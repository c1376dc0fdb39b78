package deletionlog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"rental-portal/internal/apperr"
	"rental-portal/internal/models"
)

// Ref is the weak (type tag, id) reference a log keeps to the removed row.
// It is for display and lookup only, never for cascade traversal.
type Ref struct {
	Model    string `json:"model"`
	ObjectID uint   `json:"object_id"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Model, r.ObjectID)
}

// RefOf builds the reference for a loggable entity.
func RefOf(l models.Loggable) Ref {
	return Ref{Model: l.ModelTag(), ObjectID: l.ObjectID()}
}

// RefFor returns the reference stored on a log row.
func RefFor(log *models.DeletionLog) Ref {
	return Ref{Model: log.DeletedModel, ObjectID: log.DeletedObjectID}
}

type resolver func(db *gorm.DB, id uint) (models.Loggable, error)

func lookup[T any, PT interface {
	*T
	models.Loggable
}](db *gorm.DB, id uint) (models.Loggable, error) {
	var v T
	if err := db.First(&v, id).Error; err != nil {
		return nil, err
	}
	return PT(&v), nil
}

var resolvers = map[string]resolver{
	models.ModelTagUserProfile:       lookup[models.UserProfile],
	models.ModelTagLandlordProfile:   lookup[models.LandlordProfile],
	models.ModelTagProperty:          lookup[models.Property],
	models.ModelTagCompanyMembership: lookup[models.CompanyMembership],
	models.ModelTagReview:            lookup[models.Review],
}

// Resolve loads the live row a reference points at. Unknown tags and purged
// rows both yield a not_found error.
func Resolve(ctx context.Context, db *gorm.DB, ref Ref) (models.Loggable, error) {
	const op = "deletionlog.resolve"

	fn, ok := resolvers[ref.Model]
	if !ok {
		return nil, apperr.NotFound(op, fmt.Errorf("unknown model %q: %w", ref.Model, apperr.ErrNotFound))
	}
	obj, err := fn(db.WithContext(ctx), ref.ObjectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(op, fmt.Errorf("%s: %w", ref, apperr.ErrNotFound))
	}
	if err != nil {
		return nil, apperr.Storage(op, err)
	}
	return obj, nil
}

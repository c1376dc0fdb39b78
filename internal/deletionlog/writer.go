package deletionlog

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"rental-portal/internal/apperr"
	"rental-portal/internal/metrics"
	"rental-portal/internal/models"
)

// Reason bounds, counted in characters. An empty reason is allowed.
const (
	MinReasonLength = 7
	MaxReasonLength = 2000
)

// ValidateReason checks the length bounds of a non-empty reason.
func ValidateReason(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil
	}
	n := utf8.RuneCountInString(reason)
	if n < MinReasonLength || n > MaxReasonLength {
		return apperr.Validationf("reason must be between %d and %d characters, got %d",
			MinReasonLength, MaxReasonLength, n)
	}
	return nil
}

type options struct {
	deletionType models.DeletionType
	metadata     interface{}
}

// Option customizes a single CreateLog call.
type Option func(*options)

// WithDeletionType overrides the default type.
func WithDeletionType(t models.DeletionType) Option {
	return func(o *options) { o.deletionType = t }
}

// WithMetadata attaches non-identifying context, stored as JSON.
func WithMetadata(v interface{}) Option {
	return func(o *options) { o.metadata = v }
}

// Writer mints deletion log rows. No other code path creates them.
type Writer struct {
	store   *Store
	metrics *metrics.Metrics
}

// NewWriter returns a writer persisting through store. m may be nil.
func NewWriter(store *Store, m *metrics.Metrics) *Writer {
	return &Writer{store: store, metrics: m}
}

// CreateLog writes the audit row for target. A non-nil parent must already be
// persisted; the new row becomes its cascade child, inherits its cascade id
// and defaults to CASCADE. Root rows default to SOFT_DELETE and start a new
// cascade id.
func (w *Writer) CreateLog(
	ctx context.Context,
	target models.Loggable,
	actor *uint,
	reason string,
	parent *models.DeletionLog,
	opts ...Option,
) (*models.DeletionLog, error) {
	if target == nil {
		return nil, apperr.Validation("deletion target is required")
	}
	if target.ObjectID() < 1 {
		return nil, apperr.Validationf("%s has no id; only persisted entities can be logged", target.ModelName())
	}
	if parent != nil && parent.ID == 0 {
		return nil, apperr.Validation("parent deletion log must be persisted before its children")
	}
	if err := ValidateReason(reason); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := &models.DeletionLog{
		DeletedByID:      actor,
		DeletedModel:     target.ModelTag(),
		DeletedModelName: target.ModelName(),
		DeletedObjectID:  target.ObjectID(),
		Reason:           strings.TrimSpace(reason),
		DeletionType:     o.deletionType,
		DeletedAt:        time.Now(),
	}

	if parent != nil {
		log.IsCascade = true
		log.ParentLogID = &parent.ID
		log.ParentLogName = parent.Label()
		log.CascadeID = parent.CascadeID
		if log.DeletionType == "" {
			log.DeletionType = models.DeletionTypeCascade
		}
	}
	if log.CascadeID == "" {
		log.CascadeID = uuid.NewString()
	}
	if log.DeletionType == "" {
		log.DeletionType = models.DeletionTypeSoftDelete
	}

	if o.metadata != nil {
		raw, err := json.Marshal(o.metadata)
		if err != nil {
			return nil, apperr.Unexpected("deletionlog.metadata", err)
		}
		log.Metadata = datatypes.JSON(raw)
	}

	if err := w.store.Create(ctx, log); err != nil {
		return nil, err
	}

	w.metrics.IncrementLogCreated(log.DeletedModel, string(log.DeletionType))
	return log, nil
}

// Package cascade removes entities together with everything they own,
// writing one deletion log per removed entity inside a single transaction.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rental-portal/internal/apperr"
	"rental-portal/internal/deletionlog"
	"rental-portal/internal/logger"
	"rental-portal/internal/metrics"
	"rental-portal/internal/models"
	"rental-portal/internal/scrub"
	"rental-portal/internal/token"
	"rental-portal/internal/tx"
)

const evictTimeout = 10 * time.Second

// Indexer drops documents from the search index.
type Indexer interface {
	RemoveDocuments(ctx context.Context, ids []string) error
}

// Request carries who asked for a deletion and why.
type Request struct {
	Actor  *uint
	Reason string
}

// Result describes a committed deletion.
type Result struct {
	// Root is the log of the entity the caller targeted.
	Root *models.DeletionLog `json:"root,omitempty"`
	// Logs holds every row written, parents before children.
	Logs []*models.DeletionLog `json:"logs"`
	// Skipped lists cascade children that were already deleted when locked.
	Skipped []deletionlog.Ref `json:"skipped,omitempty"`
	// IndexIDs are the search documents evicted after commit.
	IndexIDs []string `json:"index_ids,omitempty"`
	// AnonymizedActorRows counts log rows whose actor was replaced by a token.
	AnonymizedActorRows int64 `json:"anonymized_actor_rows,omitempty"`
}

func (r *Result) add(log *models.DeletionLog) {
	if r.Root == nil {
		r.Root = log
	}
	r.Logs = append(r.Logs, log)
}

// Orchestrator walks ownership graphs and soft-deletes them.
type Orchestrator struct {
	db           *gorm.DB
	store        *deletionlog.Store
	writer       *deletionlog.Writer
	tokens       models.TokenMaker
	scrubber     *scrub.Scrubber
	indexer      Indexer
	metrics      *metrics.Metrics
	tokenContext string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithIndexer evicts soft-deleted documents from search after commit.
func WithIndexer(i Indexer) Option {
	return func(o *Orchestrator) { o.indexer = i }
}

// WithMetrics records operation outcomes and created logs on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithScrubber replaces the default redaction policy.
func WithScrubber(s *scrub.Scrubber) Option {
	return func(o *Orchestrator) { o.scrubber = s }
}

// WithTokenContext sets the purpose under which erased users' tokens are derived.
func WithTokenContext(context string) Option {
	return func(o *Orchestrator) { o.tokenContext = context }
}

// New builds an orchestrator over db. tokens derives the tokens that replace
// erased users' references.
func New(db *gorm.DB, store *deletionlog.Store, tokens models.TokenMaker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		db:           db,
		store:        store,
		tokens:       tokens,
		scrubber:     scrub.Default(),
		tokenContext: token.DefaultContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.writer = deletionlog.NewWriter(store, o.metrics)
	return o
}

// DeleteLandlordProfile logs the profile, cascades to its active memberships
// (company profiles only) and its not-deleted properties, then soft-deletes
// the profile. parent is nil for a direct user action.
func (o *Orchestrator) DeleteLandlordProfile(ctx context.Context, profile *models.LandlordProfile, req Request, parent *models.DeletionLog) (*Result, error) {
	return o.run(ctx, "delete_landlord_profile", req, func(ctx context.Context, res *Result) error {
		return o.deleteOwner(ctx, profile, req, parent, res)
	})
}

// DeleteSingleEntity logs and soft-deletes one entity. Entities that own
// others are routed through the ownership cascade.
func (o *Orchestrator) DeleteSingleEntity(ctx context.Context, entity models.Deletable, req Request, parent *models.DeletionLog) (*Result, error) {
	return o.run(ctx, "delete_single_entity", req, func(ctx context.Context, res *Result) error {
		return o.deleteSingle(ctx, entity, req, parent, res)
	})
}

// PrivacyDeleteUserProfile irreversibly anonymizes profile and replaces its
// user's actor references in the audit trail with the same token. Calling it
// on an already anonymized profile is a no-op.
func (o *Orchestrator) PrivacyDeleteUserProfile(ctx context.Context, profile *models.UserProfile, req Request) (*Result, error) {
	return o.run(ctx, "privacy_delete_user_profile", req, func(ctx context.Context, res *Result) error {
		db := tx.DB(ctx, o.db)
		if err := o.reload(db, profile, profile.ID); err != nil {
			return err
		}
		if profile.IsAnonymized() {
			return nil
		}
		userID := *profile.UserID

		log, err := o.writer.CreateLog(ctx, profile, req.Actor, req.Reason, nil,
			deletionlog.WithDeletionType(models.DeletionTypePrivacyDelete))
		if err != nil {
			return err
		}
		res.add(log)

		if err := profile.PrivacyDelete(db, o.tokens, o.tokenContext); err != nil {
			return apperr.Storage("cascade.privacy_delete", err)
		}

		n, err := o.store.AnonymizeActor(ctx, userID, profile.UserToken)
		if err != nil {
			return err
		}
		res.AnonymizedActorRows = n

		// Self-erasure: the row written above is one of the anonymized ones.
		for _, l := range res.Logs {
			if l.DeletedByID != nil && *l.DeletedByID == userID {
				l.DeletedByID = nil
				l.DeletedByToken = profile.UserToken
			}
		}
		return nil
	})
}

// run executes fn as one unit of work and classifies its failure.
func (o *Orchestrator) run(ctx context.Context, op string, req Request, fn func(context.Context, *Result) error) (res *Result, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(apperr.CodeOf(err))
		}
		o.metrics.ObserveOperation(op, outcome, start)
	}()

	if err := deletionlog.ValidateReason(req.Reason); err != nil {
		return nil, err
	}

	res = &Result{}
	err = tx.Run(ctx, o.db, func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = apperr.Unexpected(op, fmt.Errorf("panic: %v", r))
			}
		}()

		if err := fn(ctx, res); err != nil {
			return apperr.Unexpected(op, err)
		}
		if len(res.IndexIDs) > 0 {
			ids := res.IndexIDs
			tx.AfterCommit(ctx, func() { o.evict(ids) })
		}
		return nil
	})
	if err != nil {
		// Anything not classified inside fn came from begin or commit.
		err = apperr.Storage(op, err)
		logger.Warn().Err(err).Str("operation", op).Msg("deletion rolled back")
		return nil, err
	}

	if res.Root != nil {
		logger.Info().
			Str("operation", op).
			Str("cascade_id", res.Root.CascadeID).
			Str("model", res.Root.DeletedModel).
			Uint("object_id", res.Root.DeletedObjectID).
			Int("logs", len(res.Logs)).
			Int("skipped", len(res.Skipped)).
			Msg("deletion completed")
	}
	return res, nil
}

func (o *Orchestrator) deleteOwner(ctx context.Context, owner models.Owner, req Request, parent *models.DeletionLog, res *Result) error {
	db := tx.DB(ctx, o.db)
	if err := o.reload(db, owner, owner.ObjectID()); err != nil {
		return err
	}
	if owner.IsDeleted() {
		return o.alreadyDeleted(owner, parent, res)
	}

	deps, err := owner.Dependents(db)
	if err != nil {
		return apperr.Storage("cascade.list_dependents", err)
	}

	counts := make(map[string]int)
	for _, d := range deps {
		counts[d.ModelTag()]++
	}

	log, err := o.writer.CreateLog(ctx, owner, req.Actor, req.Reason, parent,
		deletionlog.WithMetadata(map[string]interface{}{"dependents": counts}))
	if err != nil {
		return err
	}
	res.add(log)

	for _, d := range deps {
		if err := o.deleteSingle(ctx, d, req, log, res); err != nil {
			return err
		}
	}

	if err := owner.SoftDelete(db); err != nil {
		return apperr.Storage("cascade.soft_delete", err)
	}
	o.collectIndexID(owner, res)
	return nil
}

func (o *Orchestrator) deleteSingle(ctx context.Context, entity models.Deletable, req Request, parent *models.DeletionLog, res *Result) error {
	if owner, ok := entity.(models.Owner); ok {
		return o.deleteOwner(ctx, owner, req, parent, res)
	}

	db := tx.DB(ctx, o.db)
	if err := o.reload(db, entity, entity.ObjectID()); err != nil {
		return err
	}
	if entity.IsDeleted() {
		return o.alreadyDeleted(entity, parent, res)
	}

	log, err := o.writer.CreateLog(ctx, entity, req.Actor, req.Reason, parent)
	if err != nil {
		return err
	}
	res.add(log)

	if err := o.softDelete(db, entity); err != nil {
		return err
	}
	o.collectIndexID(entity, res)
	return nil
}

func (o *Orchestrator) softDelete(db *gorm.DB, entity models.Deletable) error {
	cs, ok := entity.(models.ContentScrubber)
	if !ok {
		return apperr.Storage("cascade.soft_delete", entity.SoftDelete(db))
	}

	content, known, err := cs.ScrubbableContent(db)
	if err != nil {
		return apperr.Storage("cascade.load_scrub_context", err)
	}
	if content == "" {
		return apperr.Storage("cascade.soft_delete", entity.SoftDelete(db))
	}
	return apperr.Storage("cascade.soft_delete", cs.SoftDeleteWithContent(db, o.scrubber.Scrub(content, known...)))
}

// reload re-reads the row under a row lock so the deleted check and the
// writes that follow see the same state. SQLite has no row locks.
func (o *Orchestrator) reload(db *gorm.DB, dest models.Loggable, id uint) error {
	if id < 1 {
		return apperr.Validationf("%s has no id", dest.ModelName())
	}
	if db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := db.First(dest, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("cascade.load", fmt.Errorf("%s #%d: %w", dest.ModelName(), id, apperr.ErrNotFound))
	}
	return apperr.Storage("cascade.load", err)
}

// alreadyDeleted rejects a direct target that is gone and skips a cascade
// child that another request removed first.
func (o *Orchestrator) alreadyDeleted(entity models.Deletable, parent *models.DeletionLog, res *Result) error {
	if parent == nil {
		return apperr.Validationf("%s #%d: %w", entity.ModelName(), entity.ObjectID(), apperr.ErrAlreadyDeleted)
	}
	logger.Warn().
		Str("model", entity.ModelTag()).
		Uint("object_id", entity.ObjectID()).
		Uint("parent_log_id", parent.ID).
		Msg("cascade child already deleted, skipping")
	res.Skipped = append(res.Skipped, deletionlog.RefOf(entity))
	return nil
}

func (o *Orchestrator) collectIndexID(entity models.Deletable, res *Result) {
	if idx, ok := entity.(models.Indexed); ok {
		res.IndexIDs = append(res.IndexIDs, idx.IndexID())
	}
}

// evict removes committed deletions from search. Failures are logged and
// counted, never returned: the database is already committed.
func (o *Orchestrator) evict(ids []string) {
	if o.indexer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), evictTimeout)
	defer cancel()

	if err := o.indexer.RemoveDocuments(ctx, ids); err != nil {
		o.metrics.IncrementIndexEvictError()
		logger.Warn().Err(err).Strs("ids", ids).Msg("failed to evict deleted properties from search index")
	}
}

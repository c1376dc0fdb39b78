package deletionlog

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"rental-portal/internal/apperr"
	"rental-portal/internal/models"
	"rental-portal/internal/tx"
)

const (
	DefaultRecentLimit = 100
	MaxRecentLimit     = 1000
)

// Store is the access layer for deletion_logs. It only appends and reads;
// the single sanctioned mutation is AnonymizeActor.
// Every method joins the transaction carried by ctx, if any.
type Store struct {
	db *gorm.DB
}

// NewStore returns a store over db. Calls join the transaction carried in
// their context, if any.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create appends a new row. Rows that already have an id are rejected.
func (s *Store) Create(ctx context.Context, log *models.DeletionLog) error {
	if log.ID != 0 {
		return apperr.Validationf("deletion log %d already exists: %w", log.ID, apperr.ErrImmutable)
	}
	if err := tx.DB(ctx, s.db).Create(log).Error; err != nil {
		return apperr.Storage("deletionlog.create", err)
	}
	return nil
}

// Get returns one row by id.
func (s *Store) Get(ctx context.Context, id uint) (*models.DeletionLog, error) {
	var log models.DeletionLog
	err := tx.DB(ctx, s.db).First(&log, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("deletionlog.get", nil)
	}
	if err != nil {
		return nil, apperr.Storage("deletionlog.get", err)
	}
	return &log, nil
}

// ForUser returns the logs whose live actor reference is userID, newest first.
func (s *Store) ForUser(ctx context.Context, userID uint) ([]models.DeletionLog, error) {
	var logs []models.DeletionLog
	if err := tx.DB(ctx, s.db).
		Where("deleted_by_id = ?", userID).
		Order("deleted_at DESC, id DESC").
		Find(&logs).Error; err != nil {
		return nil, apperr.Storage("deletionlog.for_user", err)
	}
	return logs, nil
}

// ForModel returns every log for one removed entity, oldest first.
func (s *Store) ForModel(ctx context.Context, ref Ref) ([]models.DeletionLog, error) {
	var logs []models.DeletionLog
	if err := tx.DB(ctx, s.db).
		Where("deleted_model = ? AND deleted_object_id = ?", ref.Model, ref.ObjectID).
		Order("id").
		Find(&logs).Error; err != nil {
		return nil, apperr.Storage("deletionlog.for_model", err)
	}
	return logs, nil
}

// Children returns the cascade rows written under parentID in creation order.
func (s *Store) Children(ctx context.Context, parentID uint) ([]models.DeletionLog, error) {
	var logs []models.DeletionLog
	if err := tx.DB(ctx, s.db).
		Where("parent_log_id = ?", parentID).
		Order("id").
		Find(&logs).Error; err != nil {
		return nil, apperr.Storage("deletionlog.children", err)
	}
	return logs, nil
}

// Recent returns the latest rows. limit <= 0 means DefaultRecentLimit.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.DeletionLog, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	var logs []models.DeletionLog
	if err := tx.DB(ctx, s.db).
		Order("deleted_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, apperr.Storage("deletionlog.recent", err)
	}
	return logs, nil
}

// Stats summarizes the audit trail.
type Stats struct {
	Total            int64            `json:"total"`
	ByType           map[string]int64 `json:"by_type"`
	ByModel          map[string]int64 `json:"by_model"`
	Cascades         int64            `json:"cascades"`
	DeletedLast30    int64            `json:"deleted_last_30_days"`
	AnonymizedActors int64            `json:"anonymized_actor_rows"`
	PendingErasures  int64            `json:"pending_erasures"`
}

type groupCount struct {
	Label string
	Count int64
}

// Stats returns totals by deletion type and model plus recent activity.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	const op = "deletionlog.stats"
	db := tx.DB(ctx, s.db)
	stats := &Stats{
		ByType:  make(map[string]int64),
		ByModel: make(map[string]int64),
	}

	if err := db.Model(&models.DeletionLog{}).Count(&stats.Total).Error; err != nil {
		return nil, apperr.Storage(op, err)
	}

	var byType []groupCount
	if err := db.Model(&models.DeletionLog{}).
		Select("deletion_type AS label, count(*) AS count").
		Group("deletion_type").
		Scan(&byType).Error; err != nil {
		return nil, apperr.Storage(op, err)
	}
	for _, gc := range byType {
		stats.ByType[gc.Label] = gc.Count
	}

	var byModel []groupCount
	if err := db.Model(&models.DeletionLog{}).
		Select("deleted_model AS label, count(*) AS count").
		Group("deleted_model").
		Scan(&byModel).Error; err != nil {
		return nil, apperr.Storage(op, err)
	}
	for _, gc := range byModel {
		stats.ByModel[gc.Label] = gc.Count
	}

	if err := db.Model(&models.DeletionLog{}).
		Where("parent_log_id IS NULL").
		Where("id IN (?)", db.Model(&models.DeletionLog{}).Select("parent_log_id").Where("parent_log_id IS NOT NULL")).
		Count(&stats.Cascades).Error; err != nil {
		return nil, apperr.Storage(op, err)
	}

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)
	if err := db.Model(&models.DeletionLog{}).
		Where("deleted_at >= ?", thirtyDaysAgo).
		Count(&stats.DeletedLast30).Error; err != nil {
		return nil, apperr.Storage(op, err)
	}

	if err := db.Model(&models.DeletionLog{}).
		Where("deleted_by_id IS NULL AND deleted_by_token <> ''").
		Count(&stats.AnonymizedActors).Error; err != nil {
		return nil, apperr.Storage(op, err)
	}

	if err := db.Model(&models.UserProfile{}).
		Where("erasure_requested_at IS NOT NULL AND user_id IS NOT NULL").
		Count(&stats.PendingErasures).Error; err != nil {
		return nil, apperr.Storage(op, err)
	}

	return stats, nil
}

// AnonymizeActor replaces the live actor reference of every row written by
// userID with token. It returns the number of rows touched.
func (s *Store) AnonymizeActor(ctx context.Context, userID uint, token string) (int64, error) {
	if token == "" {
		return 0, apperr.Validation("actor token is required")
	}
	res := tx.DB(ctx, s.db).
		Model(&models.DeletionLog{}).
		Where("deleted_by_id = ?", userID).
		Updates(map[string]interface{}{
			"deleted_by_id":    nil,
			"deleted_by_token": token,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return 0, apperr.Storage("deletionlog.anonymize_actor", res.Error)
	}
	return res.RowsAffected, nil
}

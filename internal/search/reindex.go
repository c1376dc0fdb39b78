package search

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"rental-portal/internal/logger"
	"rental-portal/internal/models"
)

const reindexBatchSize = 500

// ReindexListed pushes every listed property to the index in batches. It only
// adds or replaces documents; removals happen after each committed delete.
func ReindexListed(ctx context.Context, db *gorm.DB, client *SearchClient) (int, error) {
	var total int
	var batch []models.Property

	err := db.WithContext(ctx).
		Where("is_listed = ? AND status <> ?", true, models.PropertyStatusDeleted).
		Order("id").
		FindInBatches(&batch, reindexBatchSize, func(tx *gorm.DB, _ int) error {
			if err := client.IndexProperties(batch); err != nil {
				return fmt.Errorf("failed to index batch: %w", err)
			}
			total += len(batch)
			return nil
		}).Error
	if err != nil {
		return total, err
	}

	logger.Info().Int("properties", total).Msg("search index refreshed")
	return total, nil
}

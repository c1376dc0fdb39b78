package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"rental-portal/internal/models"
)

const DefaultIndex = "properties"

// SearchClient keeps the public property index in step with the database.
type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = DefaultIndex
	}

	return &SearchClient{
		client: client,
		index:  index,
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create index %s: %w", s.index, err)
	}

	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"title",
		"address",
	})
	if err != nil {
		return fmt.Errorf("failed to set searchable attributes: %w", err)
	}

	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"landlord_profile_id",
		"rent",
		"status",
	})
	if err != nil {
		return fmt.Errorf("failed to set filterable attributes: %w", err)
	}

	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"rent",
		"created_at",
	})
	if err != nil {
		return fmt.Errorf("failed to set sortable attributes: %w", err)
	}

	return nil
}

// IndexProperties indexes listed properties. Deleted or unlisted ones are skipped.
func (s *SearchClient) IndexProperties(properties []models.Property) error {
	docs := make([]models.Property, 0, len(properties))
	for _, p := range properties {
		if p.IsListed && !p.IsDeleted() {
			docs = append(docs, p)
		}
	}
	if len(docs) == 0 {
		return nil
	}
	_, err := s.client.Index(s.index).AddDocuments(docs, "id")
	return err
}

// RemoveDocuments evicts documents by id. The deletion task is enqueued,
// not awaited.
func (s *SearchClient) RemoveDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.client.Index(s.index).DeleteDocuments(ids); err != nil {
		return fmt.Errorf("failed to delete %d documents from %s: %w", len(ids), s.index, err)
	}
	return nil
}

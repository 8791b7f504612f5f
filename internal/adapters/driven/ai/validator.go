package ai

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// ConfigValidator checks that configured services are reachable.
type ConfigValidator struct{}

// NewConfigValidator creates a new config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding creates the embedding service and pings it.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, settings)
	if err != nil {
		return err
	}
	return svc.Close()
}

// ValidateVectorStore opens the vector index and closes it again.
func (v *ConfigValidator) ValidateVectorStore(ctx context.Context, settings *domain.VectorStoreSettings) error {
	index, err := CreateVectorIndex(ctx, settings)
	if err != nil {
		return err
	}
	return index.Close()
}

package driving

import "github.com/custodia-labs/sercha-ingest/internal/core/domain"

// SettingsService exposes effective settings and persists changes.
type SettingsService interface {
	// Get returns the effective settings: defaults, then the config file,
	// then environment overrides.
	Get() (*domain.Settings, error)

	// Set stores one dotted key and saves the config file.
	Set(key string, value any) error

	// Validate checks settings that would make a run fail at setup.
	Validate(s *domain.Settings) error
}

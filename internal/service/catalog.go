package service

import (
	"encoding/json"
	"fmt"
	"os"

	"contract-server/internal/models"
)

// StaticCatalog is a ProgressionCatalog backed by an in-memory map, loaded
// once at startup from the shipped challenge data. It is immutable after
// construction and safe for concurrent reads.
type StaticCatalog struct {
	definitions map[string]models.ChallengeDefinition
}

// NewStaticCatalog builds a catalog from the given definitions.
func NewStaticCatalog(definitions []models.ChallengeDefinition) *StaticCatalog {
	byID := make(map[string]models.ChallengeDefinition, len(definitions))
	for _, definition := range definitions {
		byID[definition.ID] = definition
	}
	return &StaticCatalog{definitions: byID}
}

// NewStaticCatalogFromFile loads a catalog from a JSON array of challenge
// definitions.
func NewStaticCatalogFromFile(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read challenge catalog %s: %w", path, err)
	}
	var definitions []models.ChallengeDefinition
	if err := json.Unmarshal(data, &definitions); err != nil {
		return nil, fmt.Errorf("failed to decode challenge catalog %s: %w", path, err)
	}
	return NewStaticCatalog(definitions), nil
}

// GetChallengeDefinition returns the definition for id, or nil when the
// catalog does not carry it.
func (c *StaticCatalog) GetChallengeDefinition(id string) *models.ChallengeDefinition {
	definition, ok := c.definitions[id]
	if !ok {
		return nil
	}
	return &definition
}

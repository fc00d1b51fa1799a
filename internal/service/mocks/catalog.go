package mocks

import (
	"github.com/stretchr/testify/mock"

	"contract-server/internal/models"
)

// Mock service.ProgressionCatalog
type ProgressionCatalog struct {
	mock.Mock
}

func (m *ProgressionCatalog) GetChallengeDefinition(id string) *models.ChallengeDefinition {
	args := m.Called(id)
	def, _ := args.Get(0).(*models.ChallengeDefinition)
	return def
}

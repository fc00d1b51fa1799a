package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"contract-server/internal/service"
)

// Mock service.Evaluator
type Evaluator struct {
	mock.Mock
}

func (m *Evaluator) Evaluate(ctx context.Context, pointer string, evalContext interface{}) (interface{}, error) {
	args := m.Called(ctx, pointer, evalContext)
	return args.Get(0), args.Error(1)
}

func (m *Evaluator) Run(ctx context.Context, definition interface{}, smContext interface{}, event interface{}, opts service.RunOptions) (service.RunResult, error) {
	args := m.Called(ctx, definition, smContext, event, opts)
	result, _ := args.Get(0).(service.RunResult)
	return result, args.Error(1)
}

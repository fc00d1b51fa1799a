package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Mock storage.Backend
type Backend struct {
	mock.Mock
}

func (m *Backend) WriteFile(ctx context.Context, path string, data []byte) error {
	args := m.Called(ctx, path, data)
	return args.Error(0)
}

func (m *Backend) ReadFile(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *Backend) Remove(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *Backend) MkdirAll(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *Backend) ReadDir(ctx context.Context, path string) ([]string, error) {
	args := m.Called(ctx, path)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *Backend) Exists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

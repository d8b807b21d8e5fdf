// Package mocks provides testify mocks for the persistence layer.
package mocks

import (
	"context"

	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/dukex/flowmigrate/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockFlowVersionRepository is a mock implementation of persistence.FlowVersionRepository interface.
type MockFlowVersionRepository struct {
	mock.Mock
}

func (m *MockFlowVersionRepository) GetAll(ctx context.Context) ([]*models.FlowVersion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.FlowVersion), args.Error(1)
}

func (m *MockFlowVersionRepository) GetByID(ctx context.Context, id string) (*models.FlowVersion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.FlowVersion), args.Error(1)
}

func (m *MockFlowVersionRepository) ListByFlowID(ctx context.Context, flowID string) ([]*models.FlowVersion, error) {
	args := m.Called(ctx, flowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.FlowVersion), args.Error(1)
}

func (m *MockFlowVersionRepository) Save(ctx context.Context, version *models.FlowVersion) error {
	args := m.Called(ctx, version)

	return args.Error(0)
}

func (m *MockFlowVersionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockTableFieldRepository is a mock implementation of persistence.TableFieldRepository
// and migrations.TableFieldLookup.
type MockTableFieldRepository struct {
	mock.Mock
}

func (m *MockTableFieldRepository) FindByLegacyIDs(ctx context.Context, ids []int64) ([]*models.TableField, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.TableField), args.Error(1)
}

func (m *MockTableFieldRepository) Save(ctx context.Context, field *models.TableField) error {
	args := m.Called(ctx, field)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	flowVersionRepo *MockFlowVersionRepository
	tableFieldRepo  *MockTableFieldRepository
}

// NewMockPersistence creates a new MockPersistence with all mock repositories.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		flowVersionRepo: &MockFlowVersionRepository{},
		tableFieldRepo:  &MockTableFieldRepository{},
	}
}

// GetMockFlowVersionRepository returns the underlying mock for setting up expectations.
func (m *MockPersistence) GetMockFlowVersionRepository() *MockFlowVersionRepository {
	return m.flowVersionRepo
}

// GetMockTableFieldRepository returns the underlying mock for setting up expectations.
func (m *MockPersistence) GetMockTableFieldRepository() *MockTableFieldRepository {
	return m.tableFieldRepo
}

func (m *MockPersistence) FlowVersionRepository() persistence.FlowVersionRepository {
	return m.flowVersionRepo
}

func (m *MockPersistence) TableFieldRepository() persistence.TableFieldRepository {
	return m.tableFieldRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

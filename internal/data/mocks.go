package data

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type TenantRegistryMock struct {
	mock.Mock
}

func (m *TenantRegistryMock) Insert(ctx context.Context, ti TenantInsert) (*Tenant, error) {
	args := m.Called(ctx, ti)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *TenantRegistryMock) GetByID(ctx context.Context, id string) (*Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *TenantRegistryMock) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *TenantRegistryMock) GetByIDOrSubdomain(ctx context.Context, arg string) (*Tenant, error) {
	args := m.Called(ctx, arg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *TenantRegistryMock) GetAll(ctx context.Context, offset, limit int) ([]Tenant, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Tenant), args.Error(1)
}

func (m *TenantRegistryMock) UpdateStatus(ctx context.Context, id string, newStatus TenantStatus) (*Tenant, error) {
	args := m.Called(ctx, id, newStatus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *TenantRegistryMock) UpdateSettings(ctx context.Context, subdomain string, settings JSONMap) (*Tenant, error) {
	args := m.Called(ctx, subdomain, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *TenantRegistryMock) TouchHeartbeat(ctx context.Context, subdomain, apiURL string) (*Tenant, error) {
	args := m.Called(ctx, subdomain, apiURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *TenantRegistryMock) Delete(ctx context.Context, subdomain string) error {
	args := m.Called(ctx, subdomain)
	return args.Error(0)
}

var _ TenantRegistry = (*TenantRegistryMock)(nil)

type ProvisioningLogRegistryMock struct {
	mock.Mock
}

func (m *ProvisioningLogRegistryMock) Insert(ctx context.Context, subdomain string, action ProvisioningAction) (*ProvisioningLog, error) {
	args := m.Called(ctx, subdomain, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProvisioningLog), args.Error(1)
}

func (m *ProvisioningLogRegistryMock) Complete(ctx context.Context, id string, tenantID *string, stepMetadata JSONMap) error {
	args := m.Called(ctx, id, tenantID, stepMetadata)
	return args.Error(0)
}

func (m *ProvisioningLogRegistryMock) Fail(ctx context.Context, id string, errMessage string) error {
	args := m.Called(ctx, id, errMessage)
	return args.Error(0)
}

func (m *ProvisioningLogRegistryMock) GetLatestForSubdomain(ctx context.Context, subdomain string) (*ProvisioningLog, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProvisioningLog), args.Error(1)
}

var _ ProvisioningLogRegistry = (*ProvisioningLogRegistryMock)(nil)

type TenantEventRegistryMock struct {
	mock.Mock
}

func (m *TenantEventRegistryMock) Insert(ctx context.Context, tenantID string, eventType TenantEventType, message string, metadata JSONMap) (*TenantEvent, error) {
	args := m.Called(ctx, tenantID, eventType, message, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TenantEvent), args.Error(1)
}

func (m *TenantEventRegistryMock) ListForTenant(ctx context.Context, tenantID string, limit int) ([]TenantEvent, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]TenantEvent), args.Error(1)
}

var _ TenantEventRegistry = (*TenantEventRegistryMock)(nil)

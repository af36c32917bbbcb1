package provisioning

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/propsuite/property-management-backend/internal/data"
)

type SchemaProvisionerMock struct {
	mock.Mock
}

func (m *SchemaProvisionerMock) CreateTenantSchema(ctx context.Context, subdomain string) error {
	args := m.Called(ctx, subdomain)
	return args.Error(0)
}

func (m *SchemaProvisionerMock) DropTenantSchema(ctx context.Context, subdomain string) error {
	args := m.Called(ctx, subdomain)
	return args.Error(0)
}

func (m *SchemaProvisionerMock) SchemaExists(ctx context.Context, subdomain string) (bool, error) {
	args := m.Called(ctx, subdomain)
	return args.Bool(0), args.Error(1)
}

var _ SchemaProvisioner = (*SchemaProvisionerMock)(nil)

type AdminSeederMock struct {
	mock.Mock
}

func (m *AdminSeederMock) SeedAdmin(ctx context.Context, subdomain, apiURL string) error {
	args := m.Called(ctx, subdomain, apiURL)
	return args.Error(0)
}

func (m *AdminSeederMock) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

var _ AdminSeeder = (*AdminSeederMock)(nil)

type ManagerMock struct {
	mock.Mock
}

func (m *ManagerMock) ProvisionNewTenant(ctx context.Context, req ProvisionTenantRequest) (*data.Tenant, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Tenant), args.Error(1)
}

func (m *ManagerMock) DeprovisionTenant(ctx context.Context, idOrSubdomain string) error {
	args := m.Called(ctx, idOrSubdomain)
	return args.Error(0)
}

func (m *ManagerMock) SuspendTenant(ctx context.Context, idOrSubdomain string) (*data.Tenant, error) {
	args := m.Called(ctx, idOrSubdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Tenant), args.Error(1)
}

func (m *ManagerMock) ActivateTenant(ctx context.Context, idOrSubdomain string) (*data.Tenant, error) {
	args := m.Called(ctx, idOrSubdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Tenant), args.Error(1)
}

func (m *ManagerMock) UpdateTenantSettings(ctx context.Context, subdomain string, settings data.JSONMap) (*data.Tenant, error) {
	args := m.Called(ctx, subdomain, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*data.Tenant), args.Error(1)
}

func (m *ManagerMock) GetTenantStatus(ctx context.Context, idOrSubdomain string) (*TenantStatusResponse, error) {
	args := m.Called(ctx, idOrSubdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TenantStatusResponse), args.Error(1)
}

var _ ManagerInterface = (*ManagerMock)(nil)

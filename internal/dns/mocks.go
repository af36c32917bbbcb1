package dns

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type ProviderMock struct {
	mock.Mock
}

func (m *ProviderMock) Ensure(ctx context.Context, subdomain, target string) (*Record, error) {
	args := m.Called(ctx, subdomain, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Record), args.Error(1)
}

func (m *ProviderMock) Get(ctx context.Context, subdomain string) (*Record, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Record), args.Error(1)
}

func (m *ProviderMock) Delete(ctx context.Context, recordID string) error {
	args := m.Called(ctx, recordID)
	return args.Error(0)
}

func (m *ProviderMock) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

var _ Provider = (*ProviderMock)(nil)

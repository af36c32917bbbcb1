package cert

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type ProviderMock struct {
	mock.Mock
}

func (m *ProviderMock) Issue(ctx context.Context, domain string) error {
	args := m.Called(ctx, domain)
	return args.Error(0)
}

func (m *ProviderMock) IssueWildcard(ctx context.Context, baseDomain string) error {
	args := m.Called(ctx, baseDomain)
	return args.Error(0)
}

func (m *ProviderMock) Renew(ctx context.Context, domain string) error {
	args := m.Called(ctx, domain)
	return args.Error(0)
}

func (m *ProviderMock) Revoke(ctx context.Context, domain string) error {
	args := m.Called(ctx, domain)
	return args.Error(0)
}

func (m *ProviderMock) GetStatus(ctx context.Context, domain string) (*Info, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Info), args.Error(1)
}

func (m *ProviderMock) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

var _ Provider = (*ProviderMock)(nil)

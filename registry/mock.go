package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/soulname/soulstore-backend/interfaces"
)

// MockRegistry mocks the interfaces.NameRegistry interface.
type MockRegistry struct {
	mock.Mock
}

// Mint mocks the Mint method.
func (m *MockRegistry) Mint(ctx context.Context, minter, holder common.Address, name string, identityID interfaces.IdentityID, years uint64) (interfaces.TokenID, error) {
	args := m.Called(minter, holder, name, identityID, years)
	return args.Get(0).(interfaces.TokenID), args.Error(1)
}

// RenewPeriod mocks the RenewPeriod method.
func (m *MockRegistry) RenewPeriod(ctx context.Context, minter common.Address, id interfaces.TokenID, years uint64) error {
	args := m.Called(minter, id, years)
	return args.Error(0)
}

// Transfer mocks the Transfer method.
func (m *MockRegistry) Transfer(ctx context.Context, from, to common.Address, id interfaces.TokenID) error {
	args := m.Called(from, to, id)
	return args.Error(0)
}

// UpdateIdentityID mocks the UpdateIdentityID method.
func (m *MockRegistry) UpdateIdentityID(ctx context.Context, holder common.Address, id interfaces.TokenID, identityID interfaces.IdentityID) error {
	args := m.Called(holder, id, identityID)
	return args.Error(0)
}

// Burn mocks the Burn method.
func (m *MockRegistry) Burn(ctx context.Context, holder common.Address, id interfaces.TokenID) error {
	args := m.Called(holder, id)
	return args.Error(0)
}

// GetTokenData mocks the GetTokenData method.
func (m *MockRegistry) GetTokenData(ctx context.Context, name string) (interfaces.TokenData, error) {
	args := m.Called(name)
	return args.Get(0).(interfaces.TokenData), args.Error(1)
}

// IsAvailable mocks the IsAvailable method.
func (m *MockRegistry) IsAvailable(ctx context.Context, name string) (bool, error) {
	args := m.Called(name)
	return args.Bool(0), args.Error(1)
}

// HolderOf mocks the HolderOf method.
func (m *MockRegistry) HolderOf(ctx context.Context, id interfaces.TokenID) (common.Address, error) {
	args := m.Called(id)
	return args.Get(0).(common.Address), args.Error(1)
}

// NamesOf mocks the NamesOf method.
func (m *MockRegistry) NamesOf(ctx context.Context, identityID interfaces.IdentityID) ([]string, error) {
	args := m.Called(identityID)
	return args.Get(0).([]string), args.Error(1)
}

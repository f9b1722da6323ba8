package testing

import (
	"github.com/stretchr/testify/mock"

	"github.com/imamik/fluxtenancy/internal/util/keygen"
)

// MockKeyGenerator is a mock key generator.
type MockKeyGenerator struct {
	mock.Mock
}

// Generate returns the mocked key pair.
func (m *MockKeyGenerator) Generate() (*keygen.KeyPair, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keygen.KeyPair), args.Error(1)
}

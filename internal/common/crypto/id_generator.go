package crypto

import "github.com/google/uuid"

// IDGenerator produces row ids and token jtis; injected so tests can use
// deterministic values.
type IDGenerator interface {
	NewID() (string, error)
}

// UUIDGenerator issues random v4 UUIDs.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

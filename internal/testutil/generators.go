package testutil

import (
	"math/rand"
)

// TestDataGenerator provides methods for generating test data.
type TestDataGenerator struct {
	rand *rand.Rand
}

// NewTestDataGenerator creates a new test data generator with a seeded random source.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Bytes returns n pseudo-random bytes.
func (g *TestDataGenerator) Bytes(n int) []byte {
	data := make([]byte, n)
	_, _ = g.rand.Read(data)
	return data
}

// Permutation returns a random permutation of [0, n).
func (g *TestDataGenerator) Permutation(n int) []int {
	return g.rand.Perm(n)
}

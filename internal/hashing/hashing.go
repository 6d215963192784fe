package hashing

import (
	"errors"
	"fmt"
	"sort"

	sha256 "github.com/minio/sha256-simd"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// Default is the algorithm used when none is configured.
const Default = "sha256"

// ErrUnknownAlgorithm is returned by Lookup for names missing from the registry.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// Func computes a fixed-size digest of data. Implementations must be
// deterministic and safe for concurrent use.
type Func func(data []byte) [32]byte

var registry = map[string]Func{
	"sha256":      sha256.Sum256,
	"sha256d":     doubleSHA256,
	"sha3-256":    sha3.Sum256,
	"blake2b-256": blake2b.Sum256,
	"blake3":      blake3.Sum256,
}

// doubleSHA256 hashes data twice, the way block headers are hashed.
func doubleSHA256(data []byte) [32]byte {
	h1 := sha256.Sum256(data)
	return sha256.Sum256(h1[:])
}

// Lookup resolves a digest function by name.
func Lookup(name string) (Func, error) {
	if name == "" {
		name = Default
	}
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownAlgorithm, name, Names())
	}
	return fn, nil
}

// Names returns the registered algorithm names in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

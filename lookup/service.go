// Package lookup defines the boundary contracts for the external
// computations the transaction proof consumes by lookup rather than by
// recomputation: list encoding, hashing, and public-key recovery. Each call
// returns a witness that a verifying component can use to confirm the
// external computation without re-deriving it. Production backends live in
// this package too; tests substitute their own.
package lookup

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrFieldOverflow reports an encoding input whose byte length exceeds
	// its declared width.
	ErrFieldOverflow = errors.New("rlp: field longer than declared width")

	// ErrScalarOutOfRange reports recovery inputs outside the valid scalar
	// range (parity not a bit, or r/s zero or not below the curve order).
	ErrScalarOutOfRange = errors.New("recover: scalar out of range")

	// ErrRecoveryFailed is the explicit failure signal of the recovery
	// service: the inputs were well-formed but no public key exists for
	// them. It is deliberately distinct from malformed input.
	ErrRecoveryFailed = errors.New("recover: no public key recovered")
)

// Field is one element of an ordered encoding input: a minimal big-endian
// byte string together with its declared maximum byte width.
type Field struct {
	Bytes []byte
	Width int
}

// RlpWitness records one encoding lookup: the ordered input fields and the
// byte sequence the service attested as their list encoding.
type RlpWitness struct {
	Fields  []Field
	Encoded []byte
}

// HashWitness records one hash lookup.
type HashWitness struct {
	Preimage []byte
	Digest   common.Hash
}

// RecoverWitness records one recovery lookup. PubKey is empty when the
// service signalled recovery failure.
type RecoverWitness struct {
	Digest common.Hash
	Parity byte
	R, S   *uint256.Int
	PubKey []byte
}

// RlpService is the external list-encoding service.
type RlpService interface {
	Encode(fields []Field) ([]byte, *RlpWitness, error)
}

// HashService is the external 256-bit hash service.
type HashService interface {
	Hash(data []byte) (common.Hash, *HashWitness, error)
}

// RecoverService is the external curve-recovery service. On success it
// returns the 65-byte uncompressed public key (0x04 prefix); on recovery
// failure it returns ErrRecoveryFailed together with a witness recording
// the failed inputs.
type RecoverService interface {
	Recover(digest common.Hash, parity byte, r, s *uint256.Int) ([]byte, *RecoverWitness, error)
}

package lookup

import (
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// keccakHasher backs HashService with legacy Keccak-256. Same bytes always
// yield the same digest and witness.
type keccakHasher struct{}

// NewKeccakHasher returns the production hash service.
func NewKeccakHasher() HashService {
	return keccakHasher{}
}

func (keccakHasher) Hash(data []byte) (common.Hash, *HashWitness, error) {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var digest common.Hash
	h.Sum(digest[:0])
	w := &HashWitness{
		Preimage: append([]byte{}, data...),
		Digest:   digest,
	}
	return digest, w, nil
}

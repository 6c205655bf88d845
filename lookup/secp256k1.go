package lookup

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// secp256k1Recoverer backs RecoverService with go-ethereum's Ecrecover.
//
// Range checks are the non-homestead rule only: r and s nonzero and below
// the curve order. High-s (malleable) signatures are accepted in this
// revision.
type secp256k1Recoverer struct{}

// NewSecp256k1Recoverer returns the production recovery service.
func NewSecp256k1Recoverer() RecoverService {
	return secp256k1Recoverer{}
}

func (secp256k1Recoverer) Recover(digest common.Hash, parity byte, r, s *uint256.Int) ([]byte, *RecoverWitness, error) {
	if parity > 1 {
		return nil, nil, fmt.Errorf("%w: parity %d", ErrScalarOutOfRange, parity)
	}
	if r == nil || s == nil || !crypto.ValidateSignatureValues(parity, r.ToBig(), s.ToBig(), false) {
		return nil, nil, ErrScalarOutOfRange
	}

	// 64-byte r||s signature with the parity appended, the layout Ecrecover
	// expects.
	sig := make([]byte, crypto.SignatureLength)
	rb, sb := r.Bytes32(), s.Bytes32()
	copy(sig[0:32], rb[:])
	copy(sig[32:64], sb[:])
	sig[64] = parity

	w := &RecoverWitness{
		Digest: digest,
		Parity: parity,
		R:      new(uint256.Int).Set(r),
		S:      new(uint256.Int).Set(s),
	}
	pub, err := crypto.Ecrecover(digest[:], sig)
	if err != nil {
		return nil, w, fmt.Errorf("%w: %v", ErrRecoveryFailed, err)
	}
	if len(pub) == 0 || pub[0] != 4 {
		return nil, w, ErrRecoveryFailed
	}
	w.PubKey = append([]byte{}, pub...)
	return pub, w, nil
}

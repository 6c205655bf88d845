// Package txproof verifies a batch of legacy transactions and emits the
// row-oriented table downstream execution proofs consume. Per transaction
// it rebuilds the EIP-155 signing payload, encodes and hashes it through
// the external lookup services, recovers the signing public key, and
// derives the sender address from it.
package txproof

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/SipengXie/txproof/core/types"
	"github.com/SipengXie/txproof/lookup"
)

// RecoveredIdentity is the outcome of signature recovery for one
// transaction. Sender is nil when recovery failed; the table builder
// records a zero CallerAddress row in that case and leaves acceptance to
// the consumer's sender-equality check.
type RecoveredIdentity struct {
	Parity byte
	PubKey []byte // 65-byte uncompressed key, empty on failure
	Sender *common.Address
}

// TxWitness bundles the lookup witnesses gathered for one transaction, in
// pipeline order.
type TxWitness struct {
	TxID        uint64
	Encoding    *lookup.RlpWitness
	SigningHash *lookup.HashWitness
	Recovery    *lookup.RecoverWitness
	SenderHash  *lookup.HashWitness
}

type txResult struct {
	decoded  *types.DecodedFields
	identity RecoveredIdentity
	witness  *TxWitness
}

// pipeline runs the per-transaction stages against the injected services.
// Each run is independent of every other; there is no shared mutable state.
type pipeline struct {
	enc  lookup.RlpService
	hash lookup.HashService
	rec  lookup.RecoverService
}

func (p pipeline) run(txID uint64, tx *types.Transaction) (*txResult, error) {
	if tx.Type != types.LegacyTxType {
		return nil, &TypedTxUnsupportedError{TxID: txID, TxType: tx.Type}
	}
	decoded, err := tx.Decode()
	if err != nil {
		return nil, &MalformedInputError{TxID: txID, Err: err}
	}

	payload := types.NewSigningPayload(decoded)
	fields := make([]lookup.Field, 0, types.SigningPayloadLen)
	for _, f := range payload.Fields() {
		fields = append(fields, lookup.Field{Bytes: f.Bytes, Width: f.Width})
	}
	enc, encWitness, err := p.enc.Encode(fields)
	if err != nil {
		return nil, &EncodingLookupError{TxID: txID, Err: err}
	}
	digest, hashWitness, err := p.hash.Hash(enc)
	if err != nil {
		return nil, &EncodingLookupError{TxID: txID, Err: err}
	}

	parity, err := types.RecoveryParity(decoded.V, decoded.ChainID)
	if err != nil {
		return nil, &SignatureFormatError{TxID: txID, V: decoded.V, ChainID: decoded.ChainID}
	}

	res := &txResult{
		decoded:  decoded,
		identity: RecoveredIdentity{Parity: parity},
		witness: &TxWitness{
			TxID:        txID,
			Encoding:    encWitness,
			SigningHash: hashWitness,
		},
	}
	pub, recWitness, err := p.rec.Recover(digest, parity, decoded.R, decoded.S)
	res.witness.Recovery = recWitness
	switch {
	case err == nil:
	case errors.Is(err, lookup.ErrRecoveryFailed):
		// Recorded, not rejected: the zero CallerAddress row makes the
		// consumer's sender-equality check the sole authority here.
		return res, nil
	default:
		return nil, &MalformedInputError{TxID: txID, Err: err}
	}

	res.identity.PubKey = pub
	sender, senderWitness, err := p.deriveAddress(pub)
	if err != nil {
		return nil, &EncodingLookupError{TxID: txID, Err: err}
	}
	res.identity.Sender = &sender
	res.witness.SenderHash = senderWitness
	return res, nil
}

// deriveAddress hashes the uncompressed public key coordinates and keeps
// the low 20 bytes.
func (p pipeline) deriveAddress(pub []byte) (common.Address, *lookup.HashWitness, error) {
	digest, w, err := p.hash.Hash(pub[1:])
	if err != nil {
		return common.Address{}, nil, err
	}
	return common.BytesToAddress(digest[12:]), w, nil
}

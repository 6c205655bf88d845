// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package types

import (
	"errors"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/erigon-lib/common/length"
)

// secp256k1N is the order of the curve; r and s must be nonzero scalars
// strictly below it.
var secp256k1N = func() uint256.Int {
	n, _ := uint256.FromBig(crypto.S256().Params().N)
	return *n
}()

var ErrInvalidParity = errors.New("recovery parity not derivable from v and chain id")

// SigningPayloadLen is the number of elements in the EIP-155 signing list.
const SigningPayloadLen = 9

// SigningPayload is the ordered field list whose encoding is hashed to
// reproduce the signed message. This revision always applies the
// post-EIP-155 form: the six core fields followed by (chain_id, 0, 0).
// It is a pure projection of DecodedFields and is never mutated.
type SigningPayload struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *common.Address // nil means contract creation
	Value    *uint256.Int
	Data     []byte
	ChainID  uint64
}

// PayloadField is one element of the ordered signing field list, in the
// shape the external encoding service expects: a minimal big-endian byte
// string plus its declared maximum byte width.
type PayloadField struct {
	Bytes []byte
	Width int
}

// NewSigningPayload projects the decoded fields into the signing list.
func NewSigningPayload(d *DecodedFields) *SigningPayload {
	return &SigningPayload{
		Nonce:    d.Nonce,
		GasPrice: d.GasPrice,
		Gas:      d.Gas,
		To:       d.To,
		Value:    d.Value,
		Data:     d.Data,
		ChainID:  d.ChainID,
	}
}

// Fields returns the payload as exactly nine ordered fields:
// (nonce, gas_price, gas, to, value, data, chain_id, 0, 0).
// Integers are rendered as minimal big-endian bytes (empty for zero),
// matching the canonical list-item encoding; an absent destination renders
// as the empty byte string.
func (p *SigningPayload) Fields() []PayloadField {
	fields := make([]PayloadField, 0, SigningPayloadLen)
	fields = append(fields,
		PayloadField{Bytes: minimalBE(p.Nonce), Width: 8},
		PayloadField{Bytes: p.GasPrice.Bytes(), Width: length.Hash},
		PayloadField{Bytes: minimalBE(p.Gas), Width: 8},
		PayloadField{Bytes: addressBytes(p.To), Width: length.Addr},
		PayloadField{Bytes: p.Value.Bytes(), Width: length.Hash},
		PayloadField{Bytes: p.Data, Width: len(p.Data)},
		PayloadField{Bytes: minimalBE(p.ChainID), Width: 8},
		PayloadField{Bytes: nil, Width: length.Hash},
		PayloadField{Bytes: nil, Width: length.Hash},
	)
	return fields
}

// maxParityChainID bounds chain ids for which 35 + chain_id*2 + 1 still
// fits a uint64; beyond it no consistent v is representable at all.
const maxParityChainID = (math.MaxUint64 - 36) / 2

// RecoveryParity derives the signature's recovery parity from the legacy
// EIP-155 v encoding: v = 35 + chain_id*2 + parity. Any v that does not
// yield parity 0 or 1 for the given chain id signals an inconsistency
// between v and chain_id and is rejected.
func RecoveryParity(v, chainID uint64) (byte, error) {
	if chainID > maxParityChainID {
		return 0, ErrInvalidParity
	}
	base := 35 + chainID*2
	if v != base && v != base+1 {
		return 0, ErrInvalidParity
	}
	return byte(v - base), nil
}

func addressBytes(a *common.Address) []byte {
	if a == nil {
		return nil
	}
	return a[:]
}

func minimalBE(v uint64) []byte {
	return new(uint256.Int).SetUint64(v).Bytes()
}

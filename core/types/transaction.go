package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/SipengXie/txproof/params"
)

// LegacyTxType is the only transaction envelope supported by this revision.
// Typed (EIP-2718) envelopes are rejected before the pipeline runs because
// their signing-hash derivation is not defined here.
const LegacyTxType = 0x00

var (
	ErrNilField      = errors.New("required transaction field is nil")
	ErrSigOutOfRange = errors.New("signature scalar out of range")
)

// Transaction is a legacy Ethereum transaction as handed to the prover.
// It is structurally typed: field widths are enforced by the Go types
// (uint64 / 256-bit word / 20-byte address), so Decode only has to check
// presence and signature scalar ranges.
type Transaction struct {
	Type     byte
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *common.Address `rlp:"nil"` // nil means contract creation
	Value    *uint256.Int
	Data     []byte
	ChainID  uint64
	V        uint64
	R, S     *uint256.Int
}

// DecodedFields is the validated projection of a Transaction that the rest
// of the pipeline consumes. It owns deep copies, so later mutation of the
// input cannot leak into an already-built table.
type DecodedFields struct {
	Nonce    uint64
	GasPrice *uint256.Int
	Gas      uint64
	To       *common.Address
	Value    *uint256.Int
	Data     []byte
	ChainID  uint64
	V        uint64
	R, S     *uint256.Int
}

// Decode validates the transaction's structure and returns its decoded
// fields. No cryptographic or encoding work happens here; the checks are
// presence of the 256-bit fields and the r/s range rule (nonzero, below the
// curve order). Width overflow of the scalar fields is impossible by
// construction.
func (tx *Transaction) Decode() (*DecodedFields, error) {
	if tx.GasPrice == nil || tx.Value == nil || tx.R == nil || tx.S == nil {
		return nil, ErrNilField
	}
	if err := checkSigScalar("r", tx.R); err != nil {
		return nil, err
	}
	if err := checkSigScalar("s", tx.S); err != nil {
		return nil, err
	}
	return &DecodedFields{
		Nonce:    tx.Nonce,
		GasPrice: new(uint256.Int).Set(tx.GasPrice),
		Gas:      tx.Gas,
		To:       copyAddressPtr(tx.To),
		Value:    new(uint256.Int).Set(tx.Value),
		Data:     append([]byte{}, tx.Data...),
		ChainID:  tx.ChainID,
		V:        tx.V,
		R:        new(uint256.Int).Set(tx.R),
		S:        new(uint256.Int).Set(tx.S),
	}, nil
}

// IsCreate reports whether the transaction deploys a contract.
func (tx *Transaction) IsCreate() bool { return tx.To == nil }

// CallDataGasCost returns the gas charged for the transaction payload:
// TxDataZeroGas per zero byte, TxDataNonZeroGas per non-zero byte.
func (tx *Transaction) CallDataGasCost() uint64 {
	var cost uint64
	for _, b := range tx.Data {
		if b == 0 {
			cost += params.TxDataZeroGas
		} else {
			cost += params.TxDataNonZeroGas
		}
	}
	return cost
}

func checkSigScalar(name string, v *uint256.Int) error {
	if v.IsZero() || !v.Lt(&secp256k1N) {
		return fmt.Errorf("%w: %s", ErrSigOutOfRange, name)
	}
	return nil
}

func copyAddressPtr(a *common.Address) *common.Address {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}

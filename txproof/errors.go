package txproof

import "fmt"

// Every error below is terminal for the whole batch: there is no
// partial-success mode, a proof either fully verifies a batch or is
// unsatisfiable. Each carries the offending transaction's id (1-based batch
// position) where one exists.

// MalformedInputError reports a structurally invalid field, caught before
// any cryptographic work.
type MalformedInputError struct {
	TxID uint64
	Err  error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("tx %d: malformed input: %v", e.TxID, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// EncodingLookupError reports that the external encoding or hash service
// rejected the value it was asked to attest. It must propagate as an
// unsatisfiable proof, never be masked.
type EncodingLookupError struct {
	TxID uint64
	Err  error
}

func (e *EncodingLookupError) Error() string {
	return fmt.Sprintf("tx %d: encoding lookup: %v", e.TxID, e.Err)
}

func (e *EncodingLookupError) Unwrap() error { return e.Err }

// SignatureFormatError reports a v value from which no 0/1 recovery parity
// can be derived for the transaction's chain id.
type SignatureFormatError struct {
	TxID    uint64
	V       uint64
	ChainID uint64
}

func (e *SignatureFormatError) Error() string {
	return fmt.Sprintf("tx %d: signature v %d inconsistent with chain id %d", e.TxID, e.V, e.ChainID)
}

// TypedTxUnsupportedError reports a non-legacy (EIP-2718) envelope. The
// signing-hash derivation for typed transactions is undefined in this
// revision and is not guessed.
type TypedTxUnsupportedError struct {
	TxID   uint64
	TxType byte
}

func (e *TypedTxUnsupportedError) Error() string {
	return fmt.Sprintf("tx %d: transaction type %d not supported", e.TxID, e.TxType)
}

// CapacityExceededError reports a batch that does not fit the configured
// table capacity, before any per-transaction work starts.
type CapacityExceededError struct {
	Txs           int
	MaxTxs        int
	CalldataBytes uint64
	MaxCalldata   uint64
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("batch exceeds table capacity: %d txs (max %d), %d calldata bytes (max %d)",
		e.Txs, e.MaxTxs, e.CalldataBytes, e.MaxCalldata)
}

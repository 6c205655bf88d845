// Package txtable holds the row-oriented transaction table produced by the
// proof pipeline. Downstream execution-proof components read it exclusively
// through point lookups keyed by (tx_id, tag, index); the row layout and the
// tag set are a stable external contract, and adding a tag is a breaking
// change for consumers.
package txtable

import (
	"fmt"

	"github.com/holiman/uint256"
)

// FieldTag selects the meaning of a row's value. The order is fixed: a
// transaction's rows appear in exactly this sequence, with the variable
// number of CallData rows last.
type FieldTag uint64

const (
	Nonce FieldTag = iota + 1
	Gas
	GasPrice
	GasTipCap
	GasFeeCap
	CallerAddress
	CalleeAddress
	IsCreate
	Value
	CallDataLength
	CallData
)

// ScalarRowsPerTx is the number of fixed (non-CallData) rows every
// transaction contributes.
const ScalarRowsPerTx = 10

func (t FieldTag) String() string {
	switch t {
	case Nonce:
		return "Nonce"
	case Gas:
		return "Gas"
	case GasPrice:
		return "GasPrice"
	case GasTipCap:
		return "GasTipCap"
	case GasFeeCap:
		return "GasFeeCap"
	case CallerAddress:
		return "CallerAddress"
	case CalleeAddress:
		return "CalleeAddress"
	case IsCreate:
		return "IsCreate"
	case Value:
		return "Value"
	case CallDataLength:
		return "CallDataLength"
	case CallData:
		return "CallData"
	default:
		return fmt.Sprintf("FieldTag(%d)", uint64(t))
	}
}

// Row is one table entry. Index is zero except for CallData rows, where it
// is the zero-based byte offset into the transaction payload.
type Row struct {
	TxID  uint64
	Tag   FieldTag
	Index uint64
	Value *uint256.Int
}

type rowKey struct {
	txID  uint64
	tag   FieldTag
	index uint64
}

// Table is the immutable transaction table. Real rows are grouped by
// ascending tx id and tag-ordered within a group; the remainder up to the
// configured capacity is filled with padding rows (tx id 0, tag Nonce,
// value 0) so every lookup against the table is a defined operation.
type Table struct {
	rows  []Row
	index map[rowKey]int
}

// PaddingRow is the well-formed filler row. Tx id 0 is reserved for
// padding and never collides with a real transaction.
func PaddingRow() Row {
	return Row{TxID: 0, Tag: Nonce, Index: 0, Value: uint256.NewInt(0)}
}

// New builds a table from the assembled rows, padding up to capacity.
// It is the caller's job to have bounded len(rows) beforehand; New panics
// on overflow because that is a builder bug, not an input error.
func New(rows []Row, capacity int) *Table {
	if len(rows) > capacity {
		panic(fmt.Sprintf("txtable: %d rows exceed capacity %d", len(rows), capacity))
	}
	all := make([]Row, 0, capacity)
	all = append(all, rows...)
	for len(all) < capacity {
		all = append(all, PaddingRow())
	}
	idx := make(map[rowKey]int, len(all))
	for i, r := range all {
		k := rowKey{r.TxID, r.Tag, r.Index}
		if _, dup := idx[k]; !dup {
			idx[k] = i
		}
	}
	return &Table{rows: all, index: idx}
}

// Len returns the total row count, padding included.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of all rows in table order.
func (t *Table) Rows() []Row {
	return append([]Row{}, t.rows...)
}

// Lookup returns the value at (txID, tag, index). The boolean is false when
// no such row exists.
func (t *Table) Lookup(txID uint64, tag FieldTag, index uint64) (*uint256.Int, bool) {
	i, ok := t.index[rowKey{txID, tag, index}]
	if !ok {
		return nil, false
	}
	return new(uint256.Int).Set(t.rows[i].Value), true
}

// CallDataRows counts the CallData rows recorded for a transaction.
func (t *Table) CallDataRows(txID uint64) int {
	n := 0
	for _, r := range t.rows {
		if r.TxID == txID && r.Tag == CallData {
			n++
		}
	}
	return n
}

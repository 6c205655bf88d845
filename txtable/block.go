package txtable

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BlockFieldTag selects the meaning of a block-context row.
type BlockFieldTag uint64

const (
	Coinbase BlockFieldTag = iota + 1
	BlockGasLimit
	BlockNumber
	Time
	Difficulty
	BaseFee
	BlockHash
)

// BlockRow is one entry of the block-context table. Index is zero except
// for BlockHash rows, where it is the block number the hash belongs to.
type BlockRow struct {
	Tag   BlockFieldTag
	Index uint64
	Value *uint256.Int
}

// BlockContext carries the per-block values the execution proof looks up
// alongside the transaction table. HistoryHashes holds up to the 256 most
// recent block hashes, latest last.
type BlockContext struct {
	Coinbase      common.Address
	GasLimit      uint64
	Number        uint64
	Time          uint64
	Difficulty    *uint256.Int
	BaseFee       *uint256.Int
	HistoryHashes []*uint256.Int
}

// Rows renders the block context in its fixed row order. The history may
// hold at most min(256, Number) hashes, so every BlockHash row's index is a
// real prior block number; violating that is a caller bug and panics, the
// same way an overfull transaction table does.
func (b *BlockContext) Rows() []BlockRow {
	if max := min(256, b.Number); uint64(len(b.HistoryHashes)) > max {
		panic(fmt.Sprintf("txtable: %d history hashes for block %d (max %d)",
			len(b.HistoryHashes), b.Number, max))
	}
	rows := []BlockRow{
		{Tag: Coinbase, Value: new(uint256.Int).SetBytes(b.Coinbase[:])},
		{Tag: BlockGasLimit, Value: uint256.NewInt(b.GasLimit)},
		{Tag: BlockNumber, Value: uint256.NewInt(b.Number)},
		{Tag: Time, Value: uint256.NewInt(b.Time)},
		{Tag: Difficulty, Value: valueOrZero(b.Difficulty)},
		{Tag: BaseFee, Value: valueOrZero(b.BaseFee)},
	}
	for i, h := range b.HistoryHashes {
		// latest hash sits at the end of the history slice
		number := b.Number - uint64(len(b.HistoryHashes)-i)
		rows = append(rows, BlockRow{Tag: BlockHash, Index: number, Value: valueOrZero(h)})
	}
	return rows
}

func valueOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(v)
}

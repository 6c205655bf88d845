package txproof

import (
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/log/v3"
	"golang.org/x/sync/errgroup"

	"github.com/SipengXie/txproof/core/types"
	"github.com/SipengXie/txproof/lookup"
	"github.com/SipengXie/txproof/params"
	"github.com/SipengXie/txproof/txtable"
)

// TableBuilder drives the per-transaction pipeline over a batch and
// assembles the transaction table. The capacity config and the three lookup
// services are fixed at construction; a builder is safe for reuse across
// batches.
type TableBuilder struct {
	cfg    params.ProofConfig
	pipe   pipeline
	logger log.Logger
}

func NewTableBuilder(cfg params.ProofConfig, enc lookup.RlpService, hash lookup.HashService, rec lookup.RecoverService, logger log.Logger) *TableBuilder {
	return &TableBuilder{
		cfg:    cfg,
		pipe:   pipeline{enc: enc, hash: hash, rec: rec},
		logger: logger,
	}
}

// RowCapacity is the fixed total row count of every table this builder
// produces, padding included.
func (b *TableBuilder) RowCapacity() int {
	return b.cfg.MaxTxs*txtable.ScalarRowsPerTx + int(b.cfg.MaxCalldata.Bytes())
}

// Build runs the pipeline over the batch in order and returns the padded,
// immutable table together with the per-transaction lookup witnesses. Any
// pipeline error aborts the whole batch.
func (b *TableBuilder) Build(batch []*types.Transaction) (*txtable.Table, []*TxWitness, error) {
	if err := b.checkCapacity(batch); err != nil {
		return nil, nil, err
	}
	results := make([]*txResult, len(batch))
	for i, tx := range batch {
		txID := uint64(i + 1)
		res, err := b.pipe.run(txID, tx)
		if err != nil {
			b.logger.Warn("transaction pipeline failed", "txId", txID, "err", err)
			return nil, nil, err
		}
		results[i] = res
	}
	return b.assemble(results)
}

// BuildParallel is Build with the per-transaction pipelines evaluated
// concurrently. Row blocks are merged in tx id order afterwards, so the
// output is byte-identical to Build's.
func (b *TableBuilder) BuildParallel(batch []*types.Transaction) (*txtable.Table, []*TxWitness, error) {
	if err := b.checkCapacity(batch); err != nil {
		return nil, nil, err
	}
	results := make([]*txResult, len(batch))
	var g errgroup.Group
	for i, tx := range batch {
		i, tx := i, tx
		g.Go(func() error {
			txID := uint64(i + 1)
			res, err := b.pipe.run(txID, tx)
			if err != nil {
				b.logger.Warn("transaction pipeline failed", "txId", txID, "err", err)
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return b.assemble(results)
}

func (b *TableBuilder) checkCapacity(batch []*types.Transaction) error {
	var calldata uint64
	for _, tx := range batch {
		calldata += uint64(len(tx.Data))
	}
	if len(batch) > b.cfg.MaxTxs || calldata > b.cfg.MaxCalldata.Bytes() {
		return &CapacityExceededError{
			Txs:           len(batch),
			MaxTxs:        b.cfg.MaxTxs,
			CalldataBytes: calldata,
			MaxCalldata:   b.cfg.MaxCalldata.Bytes(),
		}
	}
	return nil
}

func (b *TableBuilder) assemble(results []*txResult) (*txtable.Table, []*TxWitness, error) {
	rows := make([]txtable.Row, 0, b.RowCapacity())
	witnesses := make([]*TxWitness, 0, len(results))
	recovered := 0
	for i, res := range results {
		txID := uint64(i + 1)
		rows = append(rows, rowsForTx(txID, res)...)
		witnesses = append(witnesses, res.witness)
		if res.identity.Sender != nil {
			recovered++
			b.logger.Trace("recovered sender", "txId", txID, "sender", *res.identity.Sender)
		} else {
			b.logger.Trace("recovery failed, recording zero sender", "txId", txID)
		}
	}
	table := txtable.New(rows, b.RowCapacity())
	b.logger.Info("built transaction table",
		"txs", len(results), "recovered", recovered, "rows", table.Len())
	return table, witnesses, nil
}

// rowsForTx emits one transaction's rows in the fixed tag order, then the
// CallData rows by ascending byte offset. GasTipCap and GasFeeCap are
// reserved for the unsupported typed envelope and always zero; an absent
// destination yields IsCreate = 1 and a zeroed CalleeAddress row, keeping
// the scalar row count constant.
func rowsForTx(txID uint64, res *txResult) []txtable.Row {
	d := res.decoded
	caller := uint256.NewInt(0)
	if res.identity.Sender != nil {
		caller.SetBytes(res.identity.Sender[:])
	}
	callee := uint256.NewInt(0)
	isCreate := uint256.NewInt(0)
	if d.To == nil {
		isCreate.SetUint64(1)
	} else {
		callee.SetBytes(d.To[:])
	}

	rows := make([]txtable.Row, 0, txtable.ScalarRowsPerTx+len(d.Data))
	rows = append(rows,
		txtable.Row{TxID: txID, Tag: txtable.Nonce, Value: uint256.NewInt(d.Nonce)},
		txtable.Row{TxID: txID, Tag: txtable.Gas, Value: uint256.NewInt(d.Gas)},
		txtable.Row{TxID: txID, Tag: txtable.GasPrice, Value: new(uint256.Int).Set(d.GasPrice)},
		txtable.Row{TxID: txID, Tag: txtable.GasTipCap, Value: uint256.NewInt(0)},
		txtable.Row{TxID: txID, Tag: txtable.GasFeeCap, Value: uint256.NewInt(0)},
		txtable.Row{TxID: txID, Tag: txtable.CallerAddress, Value: caller},
		txtable.Row{TxID: txID, Tag: txtable.CalleeAddress, Value: callee},
		txtable.Row{TxID: txID, Tag: txtable.IsCreate, Value: isCreate},
		txtable.Row{TxID: txID, Tag: txtable.Value, Value: new(uint256.Int).Set(d.Value)},
		txtable.Row{TxID: txID, Tag: txtable.CallDataLength, Value: uint256.NewInt(uint64(len(d.Data)))},
	)
	for i, byt := range d.Data {
		rows = append(rows, txtable.Row{
			TxID:  txID,
			Tag:   txtable.CallData,
			Index: uint64(i),
			Value: uint256.NewInt(uint64(byt)),
		})
	}
	return rows
}

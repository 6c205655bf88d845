package params

import "github.com/c2h5oh/datasize"

// Gas charged per transaction payload byte. The non-zero cost follows
// EIP-2028; downstream intrinsic-gas checks consume these together with the
// table's CallDataLength row.
const (
	TxDataZeroGas    uint64 = 4
	TxDataNonZeroGas uint64 = 16
)

// ProofConfig bounds a single proof's transaction table. Both limits are
// fixed per circuit instance: MaxTxs caps the number of transactions in a
// batch, MaxCalldata caps the combined payload bytes across the batch. The
// config is threaded explicitly into the table builder, never read from
// ambient state.
type ProofConfig struct {
	MaxTxs      int               `json:"maxTxs"`
	MaxCalldata datasize.ByteSize `json:"maxCalldata"`
}

var (
	// DefaultProofConfig matches the capacity used by the production prover.
	DefaultProofConfig = ProofConfig{
		MaxTxs:      64,
		MaxCalldata: 128 * datasize.KB,
	}

	// TestProofConfig keeps tables small enough to eyeball in tests.
	TestProofConfig = ProofConfig{
		MaxTxs:      4,
		MaxCalldata: 1 * datasize.KB,
	}
)

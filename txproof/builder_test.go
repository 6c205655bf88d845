package txproof

import (
	"crypto/ecdsa"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/log/v3"
	"github.com/stretchr/testify/require"

	"github.com/SipengXie/txproof/core/types"
	"github.com/SipengXie/txproof/lookup"
	"github.com/SipengXie/txproof/params"
	"github.com/SipengXie/txproof/txtable"
)

// Well-known test key used across the Ethereum test suites.
const testKeyHex = "45a915e4d060149eb4365960e6a7a45f334393093061116b197e3240065ff2d8"

func testLogger() log.Logger {
	l := log.New()
	l.SetHandler(log.DiscardHandler())
	return l
}

func newTestBuilder(cfg params.ProofConfig) *TableBuilder {
	return NewTableBuilder(cfg,
		lookup.NewRlpCodec(),
		lookup.NewKeccakHasher(),
		lookup.NewSecp256k1Recoverer(),
		testLogger(),
	)
}

// signTx derives the EIP-155 signing hash independently of the pipeline
// (typed RLP list, keccak) and fills in the signature triple.
func signTx(t *testing.T, tx *types.Transaction, key *ecdsa.PrivateKey) {
	t.Helper()
	enc, err := rlp.EncodeToBytes([]interface{}{
		tx.Nonce, tx.GasPrice.ToBig(), tx.Gas, tx.To, tx.Value.ToBig(), tx.Data,
		tx.ChainID, uint64(0), uint64(0),
	})
	require.NoError(t, err)
	sig, err := crypto.Sign(crypto.Keccak256(enc), key)
	require.NoError(t, err)
	tx.R = new(uint256.Int).SetBytes(sig[:32])
	tx.S = new(uint256.Int).SetBytes(sig[32:64])
	tx.V = uint64(sig[64]) + 35 + tx.ChainID*2
}

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	return key
}

func simpleTransfer() *types.Transaction {
	to := common.HexToAddress("0xb94f5374fce5edbc8e2a8697c15331677e6ebf0b")
	return &types.Transaction{
		Nonce:    0,
		GasPrice: uint256.NewInt(20_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    uint256.NewInt(1_000_000_000_000_000_000),
		ChainID:  1,
	}
}

func addressWord(a common.Address) *uint256.Int {
	return new(uint256.Int).SetBytes(a[:])
}

func TestBuildRecoversSender(t *testing.T) {
	key := testKey(t)
	tx := simpleTransfer()
	signTx(t, tx, key)

	b := newTestBuilder(params.TestProofConfig)
	tbl, witnesses, err := b.Build([]*types.Transaction{tx})
	require.NoError(t, err)
	require.Len(t, witnesses, 1)

	caller, ok := tbl.Lookup(1, txtable.CallerAddress, 0)
	require.True(t, ok)
	require.Equal(t, addressWord(crypto.PubkeyToAddress(key.PublicKey)), caller)

	callee, ok := tbl.Lookup(1, txtable.CalleeAddress, 0)
	require.True(t, ok)
	require.Equal(t, addressWord(*tx.To), callee)

	for tag, want := range map[txtable.FieldTag]*uint256.Int{
		txtable.Nonce:          uint256.NewInt(0),
		txtable.Gas:            uint256.NewInt(21000),
		txtable.GasPrice:       uint256.NewInt(20_000_000_000),
		txtable.GasTipCap:      uint256.NewInt(0),
		txtable.GasFeeCap:      uint256.NewInt(0),
		txtable.IsCreate:       uint256.NewInt(0),
		txtable.Value:          uint256.NewInt(1_000_000_000_000_000_000),
		txtable.CallDataLength: uint256.NewInt(0),
	} {
		got, ok := tbl.Lookup(1, tag, 0)
		require.True(t, ok, tag.String())
		require.Equal(t, want, got, tag.String())
	}

	// witnesses chain together: the signing hash's preimage is the attested
	// encoding, and recovery consumed the signing hash
	w := witnesses[0]
	require.Equal(t, w.Encoding.Encoded, w.SigningHash.Preimage)
	require.Equal(t, w.SigningHash.Digest, w.Recovery.Digest)
	require.Equal(t, w.Recovery.PubKey[1:], w.SenderHash.Preimage)
}

func TestBuildIdempotent(t *testing.T) {
	key := testKey(t)
	tx := simpleTransfer()
	tx.Data = []byte{0xde, 0xad, 0x00, 0xef}
	signTx(t, tx, key)

	b := newTestBuilder(params.TestProofConfig)
	first, _, err := b.Build([]*types.Transaction{tx})
	require.NoError(t, err)
	second, _, err := b.Build([]*types.Transaction{tx})
	require.NoError(t, err)
	require.Equal(t, first.Rows(), second.Rows())
}

func TestBuildRowAccounting(t *testing.T) {
	key := testKey(t)
	payloads := [][]byte{nil, {0x01, 0x00}, {0xaa, 0xbb, 0xcc}}
	batch := make([]*types.Transaction, 0, len(payloads))
	total := 0
	for i, data := range payloads {
		tx := simpleTransfer()
		tx.Nonce = uint64(i)
		tx.Data = data
		signTx(t, tx, key)
		batch = append(batch, tx)
		total += len(data)
	}

	b := newTestBuilder(params.TestProofConfig)
	tbl, _, err := b.Build(batch)
	require.NoError(t, err)
	require.Equal(t, b.RowCapacity(), tbl.Len())

	real := 0
	for _, r := range tbl.Rows() {
		if r.TxID != 0 {
			real++
		}
	}
	require.Equal(t, len(batch)*txtable.ScalarRowsPerTx+total, real)

	for i, data := range payloads {
		txID := uint64(i + 1)
		length, ok := tbl.Lookup(txID, txtable.CallDataLength, 0)
		require.True(t, ok)
		require.Equal(t, uint64(len(data)), length.Uint64())
		require.Equal(t, len(data), tbl.CallDataRows(txID))
		for j, byt := range data {
			v, ok := tbl.Lookup(txID, txtable.CallData, uint64(j))
			require.True(t, ok)
			require.Equal(t, uint64(byt), v.Uint64())
		}
	}
}

func TestBuildContractCreation(t *testing.T) {
	key := testKey(t)
	tx := simpleTransfer()
	tx.To = nil
	tx.Data = []byte{0x60, 0x00}
	signTx(t, tx, key)

	b := newTestBuilder(params.TestProofConfig)
	tbl, _, err := b.Build([]*types.Transaction{tx})
	require.NoError(t, err)

	isCreate, ok := tbl.Lookup(1, txtable.IsCreate, 0)
	require.True(t, ok)
	require.Equal(t, uint64(1), isCreate.Uint64())

	callee, ok := tbl.Lookup(1, txtable.CalleeAddress, 0)
	require.True(t, ok)
	require.True(t, callee.IsZero())
}

func TestBuildParallelMatchesBuild(t *testing.T) {
	key := testKey(t)
	batch := make([]*types.Transaction, 0, 4)
	for i := 0; i < 4; i++ {
		tx := simpleTransfer()
		tx.Nonce = uint64(i)
		tx.Data = []byte{byte(i), 0x00, byte(i + 1)}
		signTx(t, tx, key)
		batch = append(batch, tx)
	}

	b := newTestBuilder(params.TestProofConfig)
	seq, _, err := b.Build(batch)
	require.NoError(t, err)
	par, _, err := b.BuildParallel(batch)
	require.NoError(t, err)
	require.Equal(t, seq.Rows(), par.Rows())
}

func TestBuildParallelLogsFailingTxID(t *testing.T) {
	key := testKey(t)
	good := simpleTransfer()
	signTx(t, good, key)
	bad := simpleTransfer()
	bad.Nonce = 1
	signTx(t, bad, key)
	bad.R = uint256.NewInt(0)

	var mu sync.Mutex
	var ctxs [][]interface{}
	logger := log.New()
	logger.SetHandler(log.FuncHandler(func(r *log.Record) error {
		mu.Lock()
		defer mu.Unlock()
		ctxs = append(ctxs, r.Ctx)
		return nil
	}))

	b := NewTableBuilder(params.TestProofConfig,
		lookup.NewRlpCodec(), lookup.NewKeccakHasher(), lookup.NewSecp256k1Recoverer(), logger)
	_, _, err := b.BuildParallel([]*types.Transaction{good, bad})
	var malformed *MalformedInputError
	require.ErrorAs(t, err, &malformed)

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, ctx := range ctxs {
		for i := 0; i+1 < len(ctx); i += 2 {
			if ctx[i] == "txId" && ctx[i+1] == uint64(2) {
				found = true
			}
		}
	}
	require.True(t, found, "parallel failure log must carry the failing tx id")
}

func TestBuildMalformedSignature(t *testing.T) {
	key := testKey(t)
	tx := simpleTransfer()
	signTx(t, tx, key)
	tx.R = uint256.NewInt(0)

	b := newTestBuilder(params.TestProofConfig)
	tbl, _, err := b.Build([]*types.Transaction{tx})
	require.Nil(t, tbl)
	var malformed *MalformedInputError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, uint64(1), malformed.TxID)
}

func TestBuildSignatureFormatError(t *testing.T) {
	key := testKey(t)
	tx := simpleTransfer()
	signTx(t, tx, key)
	tx.V = 27 // pre-EIP-155 encoding, not derivable with a chain id

	b := newTestBuilder(params.TestProofConfig)
	_, _, err := b.Build([]*types.Transaction{tx})
	var sigErr *SignatureFormatError
	require.ErrorAs(t, err, &sigErr)
	require.Equal(t, uint64(1), sigErr.TxID)
	require.Equal(t, uint64(27), sigErr.V)
}

func TestBuildRejectsTypedTx(t *testing.T) {
	key := testKey(t)
	tx := simpleTransfer()
	signTx(t, tx, key)
	tx.Type = 0x02

	b := newTestBuilder(params.TestProofConfig)
	_, _, err := b.Build([]*types.Transaction{tx})
	var typed *TypedTxUnsupportedError
	require.ErrorAs(t, err, &typed)
	require.Equal(t, byte(0x02), typed.TxType)
}

func TestBuildCapacityExceeded(t *testing.T) {
	key := testKey(t)
	batch := make([]*types.Transaction, 0, params.TestProofConfig.MaxTxs+1)
	for i := 0; i <= params.TestProofConfig.MaxTxs; i++ {
		tx := simpleTransfer()
		tx.Nonce = uint64(i)
		signTx(t, tx, key)
		batch = append(batch, tx)
	}

	b := newTestBuilder(params.TestProofConfig)
	_, _, err := b.Build(batch)
	var capErr *CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, params.TestProofConfig.MaxTxs+1, capErr.Txs)
}

func TestBuildCalldataBudgetExceeded(t *testing.T) {
	key := testKey(t)
	tx := simpleTransfer()
	tx.Data = make([]byte, params.TestProofConfig.MaxCalldata.Bytes()+1)
	signTx(t, tx, key)

	b := newTestBuilder(params.TestProofConfig)
	_, _, err := b.Build([]*types.Transaction{tx})
	var capErr *CapacityExceededError
	require.ErrorAs(t, err, &capErr)
}

// failingRecover substitutes the curve-recovery service with one that
// always signals recovery failure.
type failingRecover struct{}

func (failingRecover) Recover(digest common.Hash, parity byte, r, s *uint256.Int) ([]byte, *lookup.RecoverWitness, error) {
	return nil, &lookup.RecoverWitness{Digest: digest, Parity: parity, R: r, S: s}, lookup.ErrRecoveryFailed
}

func TestBuildRecordsZeroSenderOnRecoveryFailure(t *testing.T) {
	key := testKey(t)
	tx := simpleTransfer()
	signTx(t, tx, key)

	b := NewTableBuilder(params.TestProofConfig,
		lookup.NewRlpCodec(), lookup.NewKeccakHasher(), failingRecover{}, testLogger())
	tbl, witnesses, err := b.Build([]*types.Transaction{tx})
	require.NoError(t, err, "recovery failure is recorded, not rejected")

	caller, ok := tbl.Lookup(1, txtable.CallerAddress, 0)
	require.True(t, ok)
	require.True(t, caller.IsZero())
	require.Empty(t, witnesses[0].Recovery.PubKey)
	require.Nil(t, witnesses[0].SenderHash)
}

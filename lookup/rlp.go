package lookup

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// rlpCodec backs RlpService with go-ethereum's RLP encoder. Every input
// field is already a minimal big-endian byte string, so encoding each as an
// RLP string inside a list is byte-identical to the canonical encoding of
// the typed field list.
type rlpCodec struct{}

// NewRlpCodec returns the production encoding service.
func NewRlpCodec() RlpService {
	return rlpCodec{}
}

func (rlpCodec) Encode(fields []Field) ([]byte, *RlpWitness, error) {
	items := make([][]byte, len(fields))
	for i, f := range fields {
		if len(f.Bytes) > f.Width {
			return nil, nil, fmt.Errorf("%w: field %d has %d bytes, width %d", ErrFieldOverflow, i, len(f.Bytes), f.Width)
		}
		items[i] = f.Bytes
	}
	enc, err := rlp.EncodeToBytes(items)
	if err != nil {
		return nil, nil, err
	}
	w := &RlpWitness{
		Fields:  append([]Field{}, fields...),
		Encoded: enc,
	}
	return enc, w, nil
}

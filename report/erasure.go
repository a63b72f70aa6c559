package report

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// Erasure encodes report archives into dataShards+parityShards shards via
// Reed-Solomon, so an archive tolerates the loss of up to parityShards of
// them (SPEC_FULL.md §4.M). Used only for the XML artifact path before it
// reaches S3Sink; TAP/Subunit/stdout are unaffected.
type Erasure struct {
	dataShards   int
	parityShards int
	enc          reedsolomon.Encoder
}

// NewErasure returns an Erasure with the given shard counts.
func NewErasure(dataShards, parityShards int) (*Erasure, error) {
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("report: building reed-solomon encoder: %w", err)
	}
	return &Erasure{dataShards: dataShards, parityShards: parityShards, enc: enc}, nil
}

// Encode splits data into e.dataShards+e.parityShards equal-length shards,
// the first 8 bytes of the first data shard recording the original byte
// length (needed because reedsolomon pads the final data shard).
func (e *Erasure) Encode(data []byte) ([][]byte, error) {
	header := make([]byte, 8)
	binary.BigEndian.PutUint64(header, uint64(len(data)))
	payload := append(header, data...)

	shards, err := e.enc.Split(payload)
	if err != nil {
		return nil, fmt.Errorf("report: splitting into shards: %w", err)
	}
	if err := e.enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("report: encoding parity shards: %w", err)
	}
	return shards, nil
}

// Decode reconstructs the original bytes from shards, some of which may be
// nil (lost, up to e.parityShards of them).
func (e *Erasure) Decode(shards [][]byte) ([]byte, error) {
	dup := make([][]byte, len(shards))
	copy(dup, shards)

	ok, err := e.enc.Verify(dup)
	if err != nil || !ok {
		if err := e.enc.Reconstruct(dup); err != nil {
			return nil, fmt.Errorf("report: reconstructing shards: %w", err)
		}
	}
	var buf []byte
	for _, s := range dup {
		buf = append(buf, s...)
	}
	if len(buf) < 8 {
		return nil, fmt.Errorf("report: reconstructed payload too short")
	}
	n := binary.BigEndian.Uint64(buf[:8])
	body := buf[8:]
	if uint64(len(body)) < n {
		return nil, fmt.Errorf("report: reconstructed payload shorter than recorded length")
	}
	return body[:n], nil
}

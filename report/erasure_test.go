package report

import (
	"bytes"
	"testing"
)

func TestErasureRoundTrip(t *testing.T) {
	e, err := NewErasure(4, 2)
	if err != nil {
		t.Fatalf("NewErasure: %v", err)
	}
	data := bytes.Repeat([]byte("gocmocka-report-archive"), 50)

	shards, err := e.Encode(data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Lose up to the parity-shard count and still reconstruct.
	shards[0] = nil
	shards[3] = nil

	got, err := e.Decode(shards)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
	}
}

func TestErasureTooManyLostShardsFails(t *testing.T) {
	e, err := NewErasure(4, 2)
	if err != nil {
		t.Fatalf("NewErasure: %v", err)
	}
	shards, err := e.Encode([]byte("short payload"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	shards[0] = nil
	shards[1] = nil
	shards[2] = nil

	if _, err := e.Decode(shards); err == nil {
		t.Fatalf("expected an error when more shards are lost than parity tolerates")
	}
}

// Package uid wraps github.com/google/uuid the way the teacher wraps it,
// decoupling run/group identifiers from the external package's type.
package uid

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// ID is a thin wrapper over uuid.UUID used for run and group identifiers.
type ID uuid.UUID

// Nil is the zero-value ID.
var Nil ID

// New returns a new randomly generated ID, making up to 10 attempts with a
// 1ms pause after each failed one before giving up; generating an identifier must
// succeed, so a persistent failure (exhausted entropy source) panics.
func New() ID {
	var err error
	for i := 0; i < 10; i++ {
		var u uuid.UUID
		u, err = uuid.NewRandom()
		if err == nil {
			return ID(u)
		}
		time.Sleep(time.Millisecond)
	}
	panic(err)
}

// Parse converts a string to an ID, returning an error if it isn't a valid UUID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	return ID(u), err
}

// IsNil reports whether id is the zero-value ID.
func (id ID) IsNil() bool {
	return bytes.Equal(id[:], Nil[:])
}

// String returns the canonical string representation of id.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// Compare returns -1, 0, or 1 as x is less than, equal to, or greater than y.
func (x ID) Compare(y ID) int {
	return bytes.Compare(x[:], y[:])
}

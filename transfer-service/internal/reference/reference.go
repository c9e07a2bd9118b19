// Package reference mints transfer references: globally unique with
// overwhelming probability, prefixed with a millisecond timestamp so
// operators can coarsely order them by eye.
package reference

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns a fresh reference, e.g. TXN1719412345678A1B2C3D4.
// A collision is possible in theory; the ledger store surfaces it as a
// Conflict rather than this generator retrying the same value.
func (g *Generator) Next() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("TXN%d%s", time.Now().UnixMilli(), strings.ToUpper(raw[:8]))
}

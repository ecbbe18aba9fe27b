package xid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a unique identifier with a short type prefix, e.g.
// "pay-9f2c…". The prefix makes IDs self-describing in logs and exports.
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

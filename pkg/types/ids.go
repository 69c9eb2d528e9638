package types

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewID returns a new lexicographically sortable identifier, used for
// every internally-generated id (sessions, messages, tool calls, operations,
// approval requests).
func NewID() string {
	return ulid.Make().String()
}

// NewExternalID returns an RFC-4122 UUID, used for ids that are a documented
// external wire contract (workspace ids, MCP backend instance ids) rather
// than purely internal bookkeeping.
func NewExternalID() string {
	return uuid.NewString()
}

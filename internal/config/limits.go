package config

import "time"

const (
	// DefaultMaxAttachmentSize caps a single uploaded file. Uploads are read
	// fully into memory before they reach object storage.
	DefaultMaxAttachmentSize = 10 << 20

	// DefaultGroupFanOut is how many pages of a deleted group are processed
	// at once. Each page runs in its own transaction, so this also bounds
	// the connections a group deletion holds.
	DefaultGroupFanOut = 8

	// DefaultEventBuffer is the per-subscriber queue of the page event bus.
	DefaultEventBuffer = 256

	DefaultMembershipCacheTTL = 5 * time.Minute

	// MaxLogFiles is how many server log files SetupLogFile keeps.
	MaxLogFiles = 10
)

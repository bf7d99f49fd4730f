package persist

import (
	"encoding/json"
	"time"
)

// SnapshotVersion is bumped whenever the persisted cart shape changes.
// Snapshots written with any other version are discarded on load.
const SnapshotVersion = 1

// Snapshot wraps a persisted sub-tree with the version it was written at.
type Snapshot struct {
	Key       string          `json:"key"`
	Version   int             `json:"version"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

func newSnapshot(key string, state any, now time.Time) (Snapshot, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Key: key, Version: SnapshotVersion, State: raw, CreatedAt: now}, nil
}

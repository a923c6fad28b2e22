package amqp

import (
	"encoding/json"
	"time"
)

// SnapshotSyncMessage tells the sync worker that the local cache
// reached a new revision. It carries only the revision number; the
// worker reads the full transaction snapshot from the cache itself.
type SnapshotSyncMessage struct {
	Revision  int64     `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSnapshotSyncMessage(revision int64) *SnapshotSyncMessage {
	return &SnapshotSyncMessage{
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

func (m *SnapshotSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SnapshotSyncMessageFromJSON(data []byte) (*SnapshotSyncMessage, error) {
	var msg SnapshotSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

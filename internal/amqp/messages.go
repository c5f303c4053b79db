package amqp

import (
	"encoding/json"
	"time"
)

// Operations carried by a RecordEvent.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Collections a RecordEvent can refer to.
const (
	CollectionSubscriptions = "subscriptions"
	CollectionExpenses      = "variable_expenses"
)

// RecordEvent is the lightweight message published after a confirmed write.
// It carries only identifiers; consumers fetch the full record from the
// store, so a stale message never overwrites newer data.
type RecordEvent struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	RecordID   string    `json:"record_id"`
	UserUID    string    `json:"user_uid"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewRecordEvent(collection, op, recordID, userUID string) *RecordEvent {
	return &RecordEvent{
		Collection: collection,
		Op:         op,
		RecordID:   recordID,
		UserUID:    userUID,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON parses an event from JSON bytes.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var e RecordEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

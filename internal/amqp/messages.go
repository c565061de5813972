package amqp

import (
	"encoding/json"
	"time"
)

// Message kinds carried on the sync queue.
const (
	KindPiggySync   = "piggy.sync"
	KindPiggyDelete = "piggy.delete"
)

// PiggySyncMessage asks the worker to mirror one piggy bank to the savings
// report. It carries only the ID and version; the worker fetches the full
// row from the database so the sheet always reflects the latest state.
type PiggySyncMessage struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPiggySyncMessage creates a sync message for a piggy bank row.
func NewPiggySyncMessage(id, version int64) *PiggySyncMessage {
	return &PiggySyncMessage{
		Kind:      KindPiggySync,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// PiggyDeleteMessage asks the worker to drop a piggy bank from the report.
// The row is already gone from the database, so the message carries enough
// data to locate it on the sheet.
type PiggyDeleteMessage struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Owner     string    `json:"owner"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPiggyDeleteMessage creates a delete message for a removed piggy bank.
func NewPiggyDeleteMessage(id int64, title, owner string) *PiggyDeleteMessage {
	return &PiggyDeleteMessage{
		Kind:      KindPiggyDelete,
		ID:        id,
		Title:     title,
		Owner:     owner,
		Timestamp: time.Now(),
	}
}

// envelope is the minimal decode used to dispatch on kind.
type envelope struct {
	Kind string `json:"kind"`
}

func decodeKind(data []byte) (string, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return "", err
	}
	return e.Kind, nil
}

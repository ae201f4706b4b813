package querylog

import (
	"context"
	"time"
)

const (
	StatusSuccess = "Success"
	StatusError   = "Error"
)

// Entry is one answered (or failed) question
type Entry struct {
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Question  string    `json:"question"`
	Status    string    `json:"status"`
}

// Store records questions asked on the user host and lists them for the admin host
type Store interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context) ([]Entry, error)
}

// StaticStore serves a fixed illustrative log and discards recorded entries
type StaticStore struct {
	entries []Entry
}

func NewStaticStore() *StaticStore {
	return &StaticStore{
		entries: []Entry{
			{Timestamp: time.Date(2024, 12, 30, 10, 0, 0, 0, time.UTC), Question: "What is AI?", Status: StatusSuccess},
			{Timestamp: time.Date(2024, 12, 30, 10, 15, 0, 0, time.UTC), Question: "Explain ML?", Status: StatusSuccess},
		},
	}
}

func (s *StaticStore) Record(ctx context.Context, entry Entry) error {
	return nil
}

func (s *StaticStore) List(ctx context.Context) ([]Entry, error) {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

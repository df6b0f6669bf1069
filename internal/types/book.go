package types

import (
	"strings"
	"time"
)

// ReadingStatus is the lifecycle state of a book in a user's library.
type ReadingStatus string

const (
	StatusNotStarted ReadingStatus = "NotStarted"
	StatusReading    ReadingStatus = "Reading"
	StatusCompleted  ReadingStatus = "Completed"
)

func (s ReadingStatus) String() string { return string(s) }

// ParseReadingStatus parses a status string case-insensitively.
func ParseReadingStatus(s string) (ReadingStatus, bool) {
	for _, st := range []ReadingStatus{StatusNotStarted, StatusReading, StatusCompleted} {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// Book is a single record in a user's library.
type Book struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"owner_id"`
	Title     string        `json:"title"`
	Author    string        `json:"author"`
	Genre     string        `json:"genre"`
	Price     float64       `json:"price"`
	Status    ReadingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}

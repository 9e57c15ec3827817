package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxTitleLength = 50

var (
	ErrInvalidID    = errors.New("model: id must be positive")
	ErrMissingOwner = errors.New("model: task owner is required")
	ErrTitleTooLong = errors.New("model: task title exceeds 50 characters")
)

type Task struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"userId"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	CompletionTime *time.Time `json:"completionTime,omitempty"`
	Completed      bool       `json:"completed"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// dueLayouts are tried in order. The zone-less ones match what a
// datetime-local form field produces.
var dueLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// ParseDueTime reads a completion time. Blank input means none; values
// without a zone are read in loc.
func ParseDueTime(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("model: unrecognised completion time %q", raw)
}

// UnmarshalJSON accepts an empty string or a zone-less local time for
// completionTime as well as the RFC 3339 form the store writes.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		CompletionTime *string `json:"completionTime"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.CompletionTime = nil
	if aux.CompletionTime == nil {
		return nil
	}
	due, err := ParseDueTime(*aux.CompletionTime, time.Local)
	if err != nil {
		return err
	}
	t.CompletionTime = due
	return nil
}

// SortTime is the due time when one is set, otherwise the creation time.
func (t Task) SortTime() time.Time {
	if t.CompletionTime != nil {
		return *t.CompletionTime
	}
	return t.CreatedAt
}

func (t Task) OwnedBy(userID int64) bool {
	return userID > 0 && t.UserID == userID
}

func (t Task) Validate() error {
	if t.ID <= 0 {
		return ErrInvalidID
	}
	if t.UserID <= 0 {
		return ErrMissingOwner
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	return nil
}

package storage

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/sandeepkv93/teemo/internal/model"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// AggregateKey is the fixed key the whole store lives under.
const AggregateKey = "teemo_db"

//go:embed aggregate.schema.json
var aggregateSchemaJSON string

var aggregateSchema = jsonschema.MustCompileString("aggregate.schema.json", aggregateSchemaJSON)

type Aggregate struct {
	Version    int64        `json:"version"`
	Users      []model.User `json:"users"`
	Tasks      []model.Task `json:"tasks"`
	NextUserID int64        `json:"nextUserId"`
	NextTaskID int64        `json:"nextTaskId"`
}

func EmptyAggregate() Aggregate {
	return Aggregate{
		Users:      []model.User{},
		Tasks:      []model.Task{},
		NextUserID: 1,
		NextTaskID: 1,
	}
}

func (a Aggregate) clone() Aggregate {
	out := a
	out.Users = append(make([]model.User, 0, len(a.Users)), a.Users...)
	out.Tasks = append(make([]model.Task, 0, len(a.Tasks)), a.Tasks...)
	return out
}

// decodeAggregate parses a stored document, rejecting anything that is not
// valid JSON or does not match the embedded schema.
func decodeAggregate(raw []byte) (Aggregate, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Aggregate{}, fmt.Errorf("parse aggregate: %w", err)
	}
	if err := aggregateSchema.Validate(doc); err != nil {
		return Aggregate{}, fmt.Errorf("aggregate schema: %w", err)
	}
	var agg Aggregate
	if err := json.Unmarshal(raw, &agg); err != nil {
		return Aggregate{}, fmt.Errorf("decode aggregate: %w", err)
	}
	if agg.Users == nil {
		agg.Users = []model.User{}
	}
	if agg.Tasks == nil {
		agg.Tasks = []model.Task{}
	}
	return agg, nil
}

// repairCounters raises the id counters above every stored id. It reports
// whether anything had to change.
func (a *Aggregate) repairCounters() bool {
	changed := false
	for _, u := range a.Users {
		if u.ID >= a.NextUserID {
			a.NextUserID = u.ID + 1
			changed = true
		}
	}
	for _, t := range a.Tasks {
		if t.ID >= a.NextTaskID {
			a.NextTaskID = t.ID + 1
			changed = true
		}
	}
	return changed
}

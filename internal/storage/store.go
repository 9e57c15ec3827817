package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sandeepkv93/teemo/internal/logging"
	"github.com/sandeepkv93/teemo/internal/model"
)

var ErrUnknownUser = errors.New("storage: unknown user")

type Options struct {
	Key    string
	Now    func() time.Time
	Logger *slog.Logger
}

// Store is the record store for users and tasks. Every mutating call
// writes the full aggregate to the backend before it returns; a failed
// write leaves the in-memory aggregate untouched.
type Store struct {
	mu     sync.Mutex
	kv     KV
	key    string
	now    func() time.Time
	logger *slog.Logger
	agg    Aggregate
	closed bool
}

type UserPatch struct {
	Email    string
	Password string
}

func Open(ctx context.Context, kv KV, opts Options) (*Store, error) {
	if kv == nil {
		return nil, errors.New("storage: nil backend")
	}
	s := &Store{
		kv:     kv,
		key:    opts.Key,
		now:    opts.Now,
		logger: opts.Logger,
	}
	if s.key == "" {
		s.key = AggregateKey
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	s.logger = s.logger.With("component", "store")

	raw, found, err := kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load aggregate: %w", err)
	}
	s.agg = EmptyAggregate()
	if found && strings.TrimSpace(string(raw)) != "" {
		agg, decodeErr := decodeAggregate(raw)
		if decodeErr != nil {
			s.logger.Warn("stored aggregate unreadable, starting empty", "key", s.key, "err", decodeErr)
		} else {
			s.agg = agg
		}
	}
	if s.agg.repairCounters() {
		s.logger.Warn("id counters behind stored records, raised", "next_user_id", s.agg.NextUserID, "next_task_id", s.agg.NextTaskID)
	}
	s.logger.Info("store opened", "key", s.key, "users", len(s.agg.Users), "tasks", len(s.agg.Tasks), "version", s.agg.Version)
	return s, nil
}

// commit persists next and makes it current. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next Aggregate) error {
	if s.closed {
		return ErrClosed
	}
	next.Version = s.agg.Version + 1
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode aggregate: %w", err)
	}
	if err := s.kv.Put(ctx, s.key, payload); err != nil {
		return fmt.Errorf("persist aggregate: %w", err)
	}
	s.agg = next
	return nil
}

func (s *Store) FindUserByCredentials(email, password string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.agg.Users {
		if u.Email == email && u.Password == password {
			return u, true
		}
	}
	return model.User{}, false
}

// FindUserByEmail matches the email exactly. A non-zero excludeID skips
// that user, so a profile edit can keep its own address.
func (s *Store) FindUserByEmail(email string, excludeID int64) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.agg.Users {
		if u.Email == email && (excludeID == 0 || u.ID != excludeID) {
			return u, true
		}
	}
	return model.User{}, false
}

func (s *Store) GetUser(id int64) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.agg.Users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

// CreateUser does not check email uniqueness; the caller does.
func (s *Store) CreateUser(ctx context.Context, email, password string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.agg.clone()
	user := model.User{
		ID:        next.NextUserID,
		Email:     email,
		Password:  password,
		CreatedAt: s.now().UTC(),
	}
	next.Users = append(next.Users, user)
	next.NextUserID++
	if err := s.commit(ctx, next); err != nil {
		return model.User{}, err
	}
	s.logger.Debug("user created", "user_id", user.ID)
	return user, nil
}

// UpdateUser keeps the stored password when patch.Password is empty.
func (s *Store) UpdateUser(ctx context.Context, id int64, patch UserPatch) (model.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.agg.clone()
	for i := range next.Users {
		if next.Users[i].ID != id {
			continue
		}
		next.Users[i].Email = patch.Email
		if patch.Password != "" {
			next.Users[i].Password = patch.Password
		}
		updated := next.Users[i]
		if err := s.commit(ctx, next); err != nil {
			return model.User{}, false, err
		}
		return updated, true, nil
	}
	return model.User{}, false, nil
}

func (s *Store) UpdatePasswordByEmail(ctx context.Context, email, password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.agg.clone()
	for i := range next.Users {
		if next.Users[i].Email != email {
			continue
		}
		next.Users[i].Password = password
		if err := s.commit(ctx, next); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// ListTasksForUser returns the user's tasks in insertion order.
func (s *Store) ListTasksForUser(userID int64) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, 0)
	for _, t := range s.agg.Tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) CreateTask(ctx context.Context, userID int64, title, content string, completionTime *time.Time) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasUser(userID) {
		return model.Task{}, fmt.Errorf("%w: %d", ErrUnknownUser, userID)
	}
	next := s.agg.clone()
	task := model.Task{
		ID:        next.NextTaskID,
		UserID:    userID,
		Title:     title,
		Content:   content,
		Completed: false,
		CreatedAt: s.now().UTC(),
	}
	if completionTime != nil {
		due := completionTime.UTC()
		task.CompletionTime = &due
	}
	next.Tasks = append(next.Tasks, task)
	next.NextTaskID++
	if err := s.commit(ctx, next); err != nil {
		return model.Task{}, err
	}
	s.logger.Debug("task created", "task_id", task.ID, "user_id", userID)
	return task, nil
}

// ToggleTaskCompletion flips the flag only for the owner. Missing or
// foreign tasks are a no-op that reports false and writes nothing.
func (s *Store) ToggleTaskCompletion(ctx context.Context, taskID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.ownedTaskIndex(taskID, userID)
	if idx < 0 {
		return false, nil
	}
	next := s.agg.clone()
	next.Tasks[idx].Completed = !next.Tasks[idx].Completed
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) DeleteTask(ctx context.Context, taskID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.ownedTaskIndex(taskID, userID)
	if idx < 0 {
		return false, nil
	}
	next := s.agg.clone()
	next.Tasks = append(next.Tasks[:idx], next.Tasks[idx+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	s.logger.Debug("task deleted", "task_id", taskID, "user_id", userID)
	return true, nil
}

// Snapshot returns a copy of the current aggregate.
func (s *Store) Snapshot() Aggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.clone()
}

// Close writes the aggregate one last time and releases the backend.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	payload, err := json.Marshal(s.agg)
	if err == nil {
		err = s.kv.Put(ctx, s.key, payload)
	}
	s.closed = true
	closeErr := s.kv.Close()
	if err != nil {
		return fmt.Errorf("flush aggregate: %w", err)
	}
	return closeErr
}

func (s *Store) hasUser(id int64) bool {
	for _, u := range s.agg.Users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) ownedTaskIndex(taskID, userID int64) int {
	for i, t := range s.agg.Tasks {
		if t.ID == taskID && t.OwnedBy(userID) {
			return i
		}
	}
	return -1
}

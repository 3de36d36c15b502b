// Package memstore keeps users and tasks in process memory.  It backs the
// server when STORAGE=memory and doubles as the store in tests.  Data is
// lost on restart.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/task-manager/internal/model"
	"github.com/iliyamo/task-manager/internal/repository"
)

// Users is an in-memory Credential Store.
type Users struct {
	mu    sync.RWMutex
	byID  map[string]*model.User
	email map[string]string // lowercase email -> id
}

// NewUsers returns an empty user store.
func NewUsers() *Users {
	return &Users{byID: map[string]*model.User{}, email: map[string]string{}}
}

// Create stores a copy of u.  Emails are unique case-insensitively.
func (s *Users) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := s.email[u.Email]; ok {
		return repository.ErrEmailExists
	}
	cp := *u
	s.byID[u.ID] = &cp
	s.email[u.Email] = u.ID
	return nil
}

// GetByEmail looks a user up by normalized email.
func (s *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.email[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *Users) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// UpdateProfile renames the user and changes the email, keeping the email
// index consistent.
func (s *Users) UpdateProfile(_ context.Context, id, name, email string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if other, taken := s.email[email]; taken && other != id {
		return repository.ErrEmailExists
	}
	delete(s.email, u.Email)
	u.Name, u.Email, u.UpdatedAt = name, email, now
	s.email[email] = id
	return nil
}

// UpdatePassword stores the new hash together with the rotated refresh hash.
func (s *Users) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time, refreshHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	ts := changedAt
	u.PasswordHash, u.PasswordChangedAt, u.RefreshTokenHash, u.UpdatedAt = passwordHash, &ts, refreshHash, changedAt
	return nil
}

// Deactivate marks the user inactive and drops the refresh hash.
func (s *Users) Deactivate(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		u.IsActive, u.RefreshTokenHash, u.UpdatedAt = false, "", now
	}
	return nil
}

func (s *Users) SetRefreshToken(_ context.Context, userID, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[userID]; ok {
		u.RefreshTokenHash = tokenHash
	}
	return nil
}

// RotateRefreshToken swaps oldHash for newHash only if oldHash is still the
// stored hash of an active user.  It reports whether the swap happened.
func (s *Users) RotateRefreshToken(_ context.Context, userID, oldHash, newHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok || !u.IsActive || oldHash == "" || u.RefreshTokenHash != oldHash {
		return false, nil
	}
	u.RefreshTokenHash = newHash
	return true, nil
}

// Tasks is an in-memory Task Store.
type Tasks struct {
	mu   sync.RWMutex
	byID map[string]*model.Task
}

// NewTasks returns an empty task store.
func NewTasks() *Tasks {
	return &Tasks{byID: map[string]*model.Task{}}
}

func cloneTask(t *model.Task) *model.Task {
	cp := *t
	if t.DueDate != nil {
		v := *t.DueDate
		cp.DueDate = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		cp.CompletedAt = &v
	}
	return &cp
}

func (s *Tasks) Create(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[t.ID] = cloneTask(t)
	return nil
}

// GetByIDAndUser returns a copy of the task if userID owns it.
func (s *Tasks) GetByIDAndUser(_ context.Context, id, userID string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

// Update replaces the stored task with a copy of t.
func (s *Tasks) Update(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[t.ID]
	if !ok || cur.UserID != t.UserID {
		return repository.ErrTaskNotFound
	}
	s.byID[t.ID] = cloneTask(t)
	return nil
}

func (s *Tasks) Delete(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok || t.UserID != userID {
		return repository.ErrTaskNotFound
	}
	delete(s.byID, id)
	return nil
}

// DeleteCompleted removes the completed tasks of userID and returns how many
// were removed.
func (s *Tasks) DeleteCompleted(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.byID {
		if t.UserID == userID && t.Completed {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

// List filters, sorts and pages the tasks of f.UserID the way TaskRepo
// does in SQL.
func (s *Tasks) List(_ context.Context, f model.TaskFilter) ([]*model.Task, int, error) {
	s.mu.RLock()
	matched := []*model.Task{}
	for _, t := range s.byID {
		if t.UserID != f.UserID {
			continue
		}
		if f.Completed != nil && t.Completed != *f.Completed {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		matched = append(matched, cloneTask(t))
	}
	s.mu.RUnlock()

	fields := f.Sort
	if len(fields) == 0 {
		fields = []model.SortField{{Field: "createdAt", Desc: true}}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		for _, sf := range fields {
			c := compareField(matched[i], matched[j], sf.Field)
			if c == 0 {
				continue
			}
			if sf.Desc {
				return c > 0
			}
			return c < 0
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	if f.Limit > 0 {
		if f.Offset < 0 || f.Offset >= total {
			return []*model.Task{}, total, nil
		}
		end := f.Offset + f.Limit
		if end > total {
			end = total
		}
		matched = matched[f.Offset:end]
	}
	return matched, total, nil
}

var priorityRank = map[string]int{model.PriorityLow: 0, model.PriorityMedium: 1, model.PriorityHigh: 2}

// compareField orders like the MySQL columns: enum priority by rank, NULL
// times first.
func compareField(a, b *model.Task, field string) int {
	switch field {
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "dueDate":
		return compareTimePtr(a.DueDate, b.DueDate)
	case "completedAt":
		return compareTimePtr(a.CompletedAt, b.CompletedAt)
	case "priority":
		return priorityRank[a.Priority] - priorityRank[b.Priority]
	case "text":
		return strings.Compare(a.Text, b.Text)
	case "category":
		return strings.Compare(a.Category, b.Category)
	case "completed":
		return boolInt(a.Completed) - boolInt(b.Completed)
	case "order":
		return a.Order - b.Order
	}
	return 0
}

func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Stats counts the tasks of userID; overdue is relative to now.
func (s *Tasks) Stats(_ context.Context, userID string, now time.Time) (model.TaskStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st model.TaskStats
	for _, t := range s.byID {
		if t.UserID != userID {
			continue
		}
		st.Total++
		if t.Completed {
			st.Completed++
		} else {
			st.Pending++
		}
		if t.Priority == model.PriorityHigh {
			st.HighPriority++
		}
		if model.Overdue(t, now) {
			st.Overdue++
		}
	}
	return st, nil
}

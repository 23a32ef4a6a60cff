// Package userstore keeps the user registry resource: one record per user
// holding id, username, password hash and email.
package userstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/leengari/flatsql/internal/domain/data"
	dberrors "github.com/leengari/flatsql/internal/domain/errors"
	"github.com/leengari/flatsql/internal/storage/codec"
	"github.com/leengari/flatsql/internal/storage/tablestore"
)

// FileName is the registry resource inside the data directory
const FileName = "users.registry"

var header = data.Record{"id", "username", "password_hash", "email"}

// User is one registry entry
type User struct {
	ID           int
	Username     string
	PasswordHash string
	Email        string
}

// Store is the file-backed user registry
type Store struct {
	mu    sync.Mutex
	path  string
	codec *codec.Codec
	cost  int
}

// New opens the registry under dir
func New(dir string, c *codec.Codec) (*Store, error) {
	if c == nil {
		c = codec.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, dberrors.IO("create data directory", dir, err)
	}
	return &Store{
		path:  filepath.Join(dir, FileName),
		codec: c,
		cost:  bcrypt.DefaultCost,
	}, nil
}

// SetHashCost overrides the bcrypt cost (tests use bcrypt.MinCost)
func (s *Store) SetHashCost(cost int) {
	s.cost = cost
}

// Add registers a new user and returns it with its assigned id.
// Ids continue from the last record's id.
func (s *Store) Add(username, password, email string) (*User, error) {
	if username == "" || password == "" {
		return nil, dberrors.Syntax("username and password are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return nil, dberrors.AlreadyExists("user", username)
		}
	}

	nextID := 1
	if len(users) > 0 {
		nextID = users[len(users)-1].ID + 1
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{ID: nextID, Username: username, PasswordHash: string(hash), Email: email}
	users = append(users, *u)

	if err := s.save(users); err != nil {
		return nil, err
	}

	slog.Debug("user registered", slog.Int("id", u.ID), slog.String("username", u.Username))
	return u, nil
}

// Remove deletes the user whose name matches ignoring case
func (s *Store) Remove(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return err
	}

	idx := -1
	for i, u := range users {
		if strings.EqualFold(u.Username, username) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return dberrors.NotFound("user", username)
	}

	users = append(users[:idx], users[idx+1:]...)
	return s.save(users)
}

// Authenticate checks a user id and password
func (s *Store) Authenticate(userID, password string) bool {
	u, err := s.ByID(userID)
	if err != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ByID looks a user up by id
func (s *Store) ByID(userID string) (*User, error) {
	id, err := strconv.Atoi(strings.TrimSpace(userID))
	if err != nil {
		return nil, dberrors.NotFound("user", userID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, dberrors.NotFound("user", userID)
}

// List returns all users in registry order
func (s *Store) List() ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]User, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, dberrors.IO("read", s.path, err)
	}

	records, err := s.codec.Unmarshal(raw)
	if err != nil {
		return nil, dberrors.IO("decode", s.path, err)
	}

	users := make([]User, 0, len(records))
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		id, err := strconv.Atoi(rec.Field(0))
		if err != nil {
			return nil, dberrors.IO("decode", s.path, fmt.Errorf("record %d: invalid id %q", i, rec.Field(0)))
		}
		users = append(users, User{
			ID:           id,
			Username:     rec.Field(1),
			PasswordHash: rec.Field(2),
			Email:        rec.Field(3),
		})
	}
	return users, nil
}

func (s *Store) save(users []User) error {
	records := make([]data.Record, 0, len(users)+1)
	records = append(records, header)
	for _, u := range users {
		records = append(records, data.Record{strconv.Itoa(u.ID), u.Username, u.PasswordHash, u.Email})
	}
	return tablestore.WriteFileAtomic(s.path, s.codec.Marshal(records))
}

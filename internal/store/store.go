// Package store persists the durable chat state as three independent JSON
// sections: accounts, rooms and history. Each save rewrites its whole
// section; there is no incremental log. Loads are best-effort: a missing or
// corrupt section yields its zero value so the server can start from
// defaults.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jdnichols/parley/internal/types"
)

// Account is the durable projection of a user account. Runtime fields
// (connection, status, activity) are deliberately absent and re-derived on
// load.
type Account struct {
	// Password holds the bcrypt hash of the account password. The legacy
	// service kept the plaintext here; the field name is preserved so old
	// snapshot files still parse.
	Password string `json:"password"`
}

// Room is the durable projection of a room. Members and pending are
// order-independent lists.
type Room struct {
	Admin    string   `json:"admin"`
	OpenJoin bool     `json:"open_join"`
	Visible  bool     `json:"visible"`
	Members  []string `json:"members"`
	Pending  []string `json:"pending"`
	Shutdown bool     `json:"shutdown"`
}

// State is the full durable representation across all three sections.
type State struct {
	Accounts map[string]Account
	Rooms    map[string]Room
	History  map[string][]types.Message
}

// FileStore reads and writes the three snapshot sections under fixed paths.
type FileStore struct {
	usersPath   string
	roomsPath   string
	historyPath string
	log         *log.Logger
}

func NewFileStore(usersPath, roomsPath, historyPath string, logger *log.Logger) *FileStore {
	return &FileStore{
		usersPath:   usersPath,
		roomsPath:   roomsPath,
		historyPath: historyPath,
		log:         logger,
	}
}

// Load reads every section. Unreadable sections are logged and replaced
// with empty maps; Load never fails the caller.
func (fs *FileStore) Load() *State {
	st := &State{
		Accounts: make(map[string]Account),
		Rooms:    make(map[string]Room),
		History:  make(map[string][]types.Message),
	}

	if err := loadSection(fs.usersPath, &st.Accounts); err != nil {
		fs.log.Printf("load accounts: %v", err)
		st.Accounts = make(map[string]Account)
	}
	if err := loadSection(fs.roomsPath, &st.Rooms); err != nil {
		fs.log.Printf("load rooms: %v", err)
		st.Rooms = make(map[string]Room)
	}
	if err := loadSection(fs.historyPath, &st.History); err != nil {
		fs.log.Printf("load history: %v", err)
		st.History = make(map[string][]types.Message)
	}

	return st
}

func loadSection(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// SaveAccounts rewrites the accounts section.
func (fs *FileStore) SaveAccounts(accounts map[string]Account) error {
	return writeSection(fs.usersPath, accounts)
}

// SaveRooms rewrites the rooms section.
func (fs *FileStore) SaveRooms(rooms map[string]Room) error {
	return writeSection(fs.roomsPath, rooms)
}

// SaveHistory rewrites the history section.
func (fs *FileStore) SaveHistory(history map[string][]types.Message) error {
	return writeSection(fs.historyPath, history)
}

// writeSection writes the section to a temp file next to the destination
// and renames it into place, so a crash mid-write never leaves a truncated
// section behind.
func writeSection(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

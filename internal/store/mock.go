package store

import "github.com/jdnichols/parley/internal/types"

// Mock implements the server's Store seam with overridable function
// fields. Calls with a nil field are no-ops that succeed.
type Mock struct {
	LoadFunc         func() *State
	SaveAccountsFunc func(map[string]Account) error
	SaveRoomsFunc    func(map[string]Room) error
	SaveHistoryFunc  func(map[string][]types.Message) error
}

func (m *Mock) Load() *State {
	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return &State{
		Accounts: make(map[string]Account),
		Rooms:    make(map[string]Room),
		History:  make(map[string][]types.Message),
	}
}

func (m *Mock) SaveAccounts(accounts map[string]Account) error {
	if m.SaveAccountsFunc != nil {
		return m.SaveAccountsFunc(accounts)
	}
	return nil
}

func (m *Mock) SaveRooms(rooms map[string]Room) error {
	if m.SaveRoomsFunc != nil {
		return m.SaveRoomsFunc(rooms)
	}
	return nil
}

func (m *Mock) SaveHistory(history map[string][]types.Message) error {
	if m.SaveHistoryFunc != nil {
		return m.SaveHistoryFunc(history)
	}
	return nil
}

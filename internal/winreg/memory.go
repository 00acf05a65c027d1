package winreg

import (
	"strings"
	"sync"
)

// Memory is an in-process Registry used by tests and dry runs. Key paths and
// value names compare case-insensitively, as in the real registry, and
// enumeration order is insertion order.
type Memory struct {
	mu   sync.Mutex
	keys map[Hive]map[string][]Value

	// SetErr and DeleteErr, when non-nil, are returned by every Set or
	// Delete call respectively without touching the stored data.
	SetErr    error
	DeleteErr error
}

// NewMemory returns an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{keys: make(map[Hive]map[string][]Value)}
}

func keyID(path string) string {
	return strings.ToLower(strings.Trim(path, `\`))
}

func indexOf(values []Value, name string) int {
	for i, v := range values {
		if strings.EqualFold(v.Name, name) {
			return i
		}
	}
	return -1
}

// Values implements Registry.
func (m *Memory) Values(hive Hive, path string) ([]Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	values, ok := m.keys[hive][keyID(path)]
	if !ok {
		return nil, ErrNotExist
	}
	out := make([]Value, len(values))
	copy(out, values)
	return out, nil
}

// Get implements Registry.
func (m *Memory) Get(hive Hive, path, name string) (Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	values := m.keys[hive][keyID(path)]
	i := indexOf(values, name)
	if i < 0 {
		return Value{}, ErrNotExist
	}
	return values[i], nil
}

// Set implements Registry.
func (m *Memory) Set(hive Hive, path string, v Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetErr != nil {
		return m.SetErr
	}
	if m.keys[hive] == nil {
		m.keys[hive] = make(map[string][]Value)
	}
	id := keyID(path)
	values := m.keys[hive][id]
	if i := indexOf(values, v.Name); i >= 0 {
		values[i] = v
	} else {
		values = append(values, v)
	}
	m.keys[hive][id] = values
	return nil
}

// Delete implements Registry.
func (m *Memory) Delete(hive Hive, path, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	id := keyID(path)
	values, ok := m.keys[hive][id]
	if !ok {
		return ErrNotExist
	}
	i := indexOf(values, name)
	if i < 0 {
		return ErrNotExist
	}
	m.keys[hive][id] = append(values[:i:i], values[i+1:]...)
	return nil
}

var _ Registry = (*Memory)(nil)

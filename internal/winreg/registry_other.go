//go:build !windows

package winreg

// System stands in for the Windows registry on other platforms. Every
// operation fails with ErrUnsupported, so listings come back empty and
// mutations surface an error.
type System struct{}

// New returns the platform registry.
func New() *System {
	return &System{}
}

func (s *System) Values(Hive, string) ([]Value, error)    { return nil, ErrUnsupported }
func (s *System) Get(Hive, string, string) (Value, error) { return Value{}, ErrUnsupported }
func (s *System) Set(Hive, string, Value) error           { return ErrUnsupported }
func (s *System) Delete(Hive, string, string) error       { return ErrUnsupported }

var _ Registry = (*System)(nil)

//go:build windows

package winreg

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// System is the live Windows registry, always addressed through the 64-bit view.
type System struct{}

// New returns the registry of the running machine.
func New() *System {
	return &System{}
}

func root(h Hive) registry.Key {
	if h == LocalMachine {
		return registry.LOCAL_MACHINE
	}
	return registry.CURRENT_USER
}

func mapErr(op string, h Hive, path string, err error) error {
	if errors.Is(err, registry.ErrNotExist) {
		return ErrNotExist
	}
	return fmt.Errorf("winreg: %s %s\\%s: %w", op, h, path, err)
}

// Values implements Registry.
func (s *System) Values(hive Hive, path string) ([]Value, error) {
	k, err := registry.OpenKey(root(hive), path, registry.QUERY_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return nil, mapErr("open", hive, path, err)
	}
	defer k.Close()

	names, err := k.ReadValueNames(0)
	if err != nil {
		return nil, mapErr("enumerate", hive, path, err)
	}

	values := make([]Value, 0, len(names))
	for _, name := range names {
		v, err := readValue(k, name)
		if err != nil {
			// A value deleted between enumeration and read is simply gone.
			continue
		}
		values = append(values, v)
	}
	return values, nil
}

// Get implements Registry.
func (s *System) Get(hive Hive, path, name string) (Value, error) {
	k, err := registry.OpenKey(root(hive), path, registry.QUERY_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return Value{}, mapErr("open", hive, path, err)
	}
	defer k.Close()

	v, err := readValue(k, name)
	if err != nil {
		return Value{}, mapErr("read "+name, hive, path, err)
	}
	return v, nil
}

func readValue(k registry.Key, name string) (Value, error) {
	n, typ, err := k.GetValue(name, nil)
	if err != nil {
		return Value{}, err
	}

	v := Value{Name: name, Type: typ}
	switch typ {
	case registry.SZ, registry.EXPAND_SZ:
		v.Str, _, err = k.GetStringValue(name)
	case registry.MULTI_SZ:
		v.Strs, _, err = k.GetStringsValue(name)
	case registry.DWORD, registry.QWORD:
		v.Int, _, err = k.GetIntegerValue(name)
	default:
		buf := make([]byte, n)
		n, _, err = k.GetValue(name, buf)
		v.Bin = buf[:n]
	}
	return v, err
}

// Set implements Registry.
func (s *System) Set(hive Hive, path string, v Value) error {
	k, _, err := registry.CreateKey(root(hive), path, registry.SET_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return mapErr("create", hive, path, err)
	}
	defer k.Close()

	switch v.Type {
	case TypeSZ:
		err = k.SetStringValue(v.Name, v.Str)
	case TypeExpandSZ:
		err = k.SetExpandStringValue(v.Name, v.Str)
	case TypeMultiSZ:
		err = k.SetStringsValue(v.Name, v.Strs)
	case TypeDWord:
		err = k.SetDWordValue(v.Name, uint32(v.Int))
	case TypeQWord:
		err = k.SetQWordValue(v.Name, v.Int)
	default:
		err = k.SetBinaryValue(v.Name, v.Bin)
	}
	if err != nil {
		return mapErr("write "+v.Name, hive, path, err)
	}
	return nil
}

// Delete implements Registry.
func (s *System) Delete(hive Hive, path, name string) error {
	k, err := registry.OpenKey(root(hive), path, registry.SET_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return mapErr("open", hive, path, err)
	}
	defer k.Close()

	if err := k.DeleteValue(name); err != nil {
		return mapErr("delete "+name, hive, path, err)
	}
	return nil
}

var _ Registry = (*System)(nil)

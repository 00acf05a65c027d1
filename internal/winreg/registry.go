// Package winreg wraps the handful of Windows registry operations the
// optimizer needs (enumerate, read, write, delete values) behind a small
// interface. Values carry their registry type so a copy from one key to
// another keeps REG_EXPAND_SZ as REG_EXPAND_SZ, REG_DWORD as REG_DWORD, etc.
package winreg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Hive identifies one of the two registry roots the optimizer touches.
type Hive int

const (
	// CurrentUser is HKEY_CURRENT_USER.
	CurrentUser Hive = iota
	// LocalMachine is HKEY_LOCAL_MACHINE. Writes require elevation.
	LocalMachine
)

// String returns the short hive name ("HKCU" or "HKLM").
func (h Hive) String() string {
	switch h {
	case CurrentUser:
		return "HKCU"
	case LocalMachine:
		return "HKLM"
	default:
		return fmt.Sprintf("hive(%d)", int(h))
	}
}

// Registry value types. The numbers match the REG_* constants.
const (
	TypeNone     uint32 = 0
	TypeSZ       uint32 = 1
	TypeExpandSZ uint32 = 2
	TypeBinary   uint32 = 3
	TypeDWord    uint32 = 4
	TypeMultiSZ  uint32 = 7
	TypeQWord    uint32 = 11
)

var (
	// ErrNotExist is returned when a key or value is missing.
	ErrNotExist = errors.New("winreg: key or value does not exist")

	// ErrUnsupported is returned on platforms without a registry.
	ErrUnsupported = errors.New("winreg: registry not available on this platform")
)

// Value is a single named registry value. Exactly one of the data fields is
// meaningful, selected by Type.
type Value struct {
	Name string
	Type uint32

	Str  string   // TypeSZ, TypeExpandSZ
	Strs []string // TypeMultiSZ
	Int  uint64   // TypeDWord, TypeQWord
	Bin  []byte   // TypeBinary and any other type
}

// StringValue builds a REG_SZ value.
func StringValue(name, data string) Value {
	return Value{Name: name, Type: TypeSZ, Str: data}
}

// DWordValue builds a REG_DWORD value.
func DWordValue(name string, data uint32) Value {
	return Value{Name: name, Type: TypeDWord, Int: uint64(data)}
}

// BinaryValue builds a REG_BINARY value.
func BinaryValue(name string, data []byte) Value {
	return Value{Name: name, Type: TypeBinary, Bin: data}
}

// IsString reports whether the value holds a single string.
func (v Value) IsString() bool {
	return v.Type == TypeSZ || v.Type == TypeExpandSZ
}

// String renders the value data as text. Binary data is shown as hex bytes.
func (v Value) String() string {
	switch v.Type {
	case TypeSZ, TypeExpandSZ:
		return v.Str
	case TypeMultiSZ:
		return strings.Join(v.Strs, " ")
	case TypeDWord, TypeQWord:
		return strconv.FormatUint(v.Int, 10)
	default:
		return fmt.Sprintf("% x", v.Bin)
	}
}

// Registry is the subset of registry operations used by the optimizer.
// Paths are relative to the hive root, backslash separated.
type Registry interface {
	// Values lists the values under a key in enumeration order.
	Values(hive Hive, path string) ([]Value, error)

	// Get reads one value. Missing keys or values return ErrNotExist.
	Get(hive Hive, path, name string) (Value, error)

	// Set writes a value, creating the key if needed.
	Set(hive Hive, path string, v Value) error

	// Delete removes a value. Missing keys or values return ErrNotExist.
	Delete(hive Hive, path, name string) error
}

package startup

import (
	"errors"
	"fmt"
	"io/fs"

	"gitlab.com/tinyland/lab/cloud-optimizer/internal/winreg"
)

// ErrPermission is matched (via errors.Is) by every error caused by a
// machine-wide change attempted without administrator rights. The caller
// can offer to relaunch elevated.
var ErrPermission = errors.New("startup: administrator rights required")

// PermissionError reports a machine-scope mutation refused before anything
// was changed.
type PermissionError struct {
	Op   string
	Hive winreg.Hive
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("startup: %s in %s requires administrator rights", e.Op, e.Hive)
}

// Is makes the error match ErrPermission and fs.ErrPermission.
func (e *PermissionError) Is(target error) bool {
	return target == ErrPermission || target == fs.ErrPermission
}

// OperationError reports a failed OS call during disable or restore, or a
// request the inventory cannot interpret.
type OperationError struct {
	Op   string
	Name string
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("startup: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func opError(op, name string, err error) error {
	return &OperationError{Op: op, Name: name, Err: err}
}

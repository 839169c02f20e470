package replay

import (
	"errors"
	"fmt"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/core/tx/effect"
)

var (
	// ErrFatal matches every error after which the ledger being replayed
	// can no longer reach the network's state.
	ErrFatal = errors.New("fatal replay error")

	// ErrLedgerAborted is returned for transactions offered after a fatal
	// error, until the next ledger close.
	ErrLedgerAborted = errors.New("ledger replay aborted")
)

// SequenceError reports a transaction offered out of position.
type SequenceError struct {
	Expected uint32
	Got      uint32
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("transaction position %d, expected %d", e.Got, e.Expected)
}

func (e *SequenceError) Is(target error) bool { return target == ErrFatal }

// MissingLeafError reports an effect on an entry the state does not hold.
type MissingLeafError struct {
	Index  [32]byte
	Action effect.Action
}

func (e *MissingLeafError) Error() string {
	return fmt.Sprintf("%s of missing entry %s", e.Action, entry.HashHex(e.Index))
}

func (e *MissingLeafError) Is(target error) bool { return target == ErrFatal }

// MissingDirectoryError reports a created entry whose directory could not
// be loaded for linking.
type MissingDirectoryError struct {
	Directory [32]byte
	Entry     [32]byte
	Result    LookupResult
}

func (e *MissingDirectoryError) Error() string {
	return fmt.Sprintf("directory %s for new entry %s: %s",
		entry.HashHex(e.Directory), entry.HashHex(e.Entry), e.Result)
}

func (e *MissingDirectoryError) Is(target error) bool { return target == ErrFatal }

type fatalError struct {
	msg   string
	cause error
}

func fatalf(cause error, format string, args ...any) error {
	return &fatalError{msg: fmt.Sprintf(format, args...), cause: cause}
}

func (e *fatalError) Error() string {
	return e.msg + ": " + e.cause.Error()
}

func (e *fatalError) Unwrap() []error { return []error{ErrFatal, e.cause} }

package entry

import (
	"fmt"
	"strings"
)

// Indexes returns a directory node's entry list in stored order. An absent
// list reads as empty.
func (e *Entry) Indexes() ([][32]byte, error) {
	if e.Kind() != KindDirectoryNode {
		return nil, ErrNotDirectory
	}
	raw, ok := e.Fields[FieldIndexes]
	if !ok || raw == nil {
		return nil, nil
	}
	var strs []string
	switch list := raw.(type) {
	case []string:
		strs = list
	case []any:
		strs = make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: Indexes item %T", ErrInvalidField, item)
			}
			strs = append(strs, s)
		}
	default:
		return nil, fmt.Errorf("%w: Indexes %T", ErrInvalidField, raw)
	}
	out := make([][32]byte, 0, len(strs))
	for _, s := range strs {
		h, err := ParseHash(s)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (e *Entry) setIndexes(list [][32]byte) {
	strs := make([]string, len(list))
	for i, h := range list {
		strs[i] = HashHex(h)
	}
	e.Fields[FieldIndexes] = strs
}

// Owner returns the directory's owner account, if it is an owner directory.
func (e *Entry) Owner() (string, bool) {
	s, ok := e.FieldString(FieldOwner)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// AppendIndex adds an index at the end of the directory's list.
func (e *Entry) AppendIndex(index [32]byte) error {
	list, err := e.Indexes()
	if err != nil {
		return err
	}
	e.setIndexes(append(list, index))
	return nil
}

// ContainsIndex reports whether the directory lists index.
func (e *Entry) ContainsIndex(index [32]byte) (bool, error) {
	list, err := e.Indexes()
	if err != nil {
		return false, err
	}
	return position(list, index) >= 0, nil
}

// RemoveIndexStable removes the first occurrence of index, keeping the
// order of the remaining items. It reports whether index was present.
func (e *Entry) RemoveIndexStable(index [32]byte) (bool, error) {
	list, err := e.Indexes()
	if err != nil {
		return false, err
	}
	i := position(list, index)
	if i < 0 {
		return false, nil
	}
	list = append(list[:i], list[i+1:]...)
	e.setIndexes(list)
	return true, nil
}

// RemoveIndexUnstable removes the first occurrence of index by moving the
// last item into its slot. It reports whether index was present.
func (e *Entry) RemoveIndexUnstable(index [32]byte) (bool, error) {
	list, err := e.Indexes()
	if err != nil {
		return false, err
	}
	i := position(list, index)
	if i < 0 {
		return false, nil
	}
	last := len(list) - 1
	list[i] = list[last]
	e.setIndexes(list[:last])
	return true, nil
}

func position(list [][32]byte, index [32]byte) int {
	for i := range list {
		if list[i] == index {
			return i
		}
	}
	return -1
}

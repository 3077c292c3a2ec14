package knowledge

import (
	"crypto/sha256"

	"github.com/fyrsmithlabs/answerd/internal/fsutil"
)

// persist encodes st and atomically replaces the knowledge file with it.
func (s *Store) persist(st *state) ([sha256.Size]byte, error) {
	data, err := encode(st.entries)
	if err != nil {
		return [sha256.Size]byte{}, &StoreIOError{Op: "encode", Path: s.path, Err: err}
	}
	if err := fsutil.WriteFileAtomic(s.path, data); err != nil {
		return [sha256.Size]byte{}, &StoreIOError{Op: "write", Path: s.path, Err: err}
	}
	return sha256.Sum256(data), nil
}

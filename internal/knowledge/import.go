package knowledge

import (
	"errors"
	"fmt"
)

// ImportResult summarizes an Import.
type ImportResult struct {
	Added     int      `json:"added"`     // records that created an entry or variant
	Unchanged int      `json:"unchanged"` // records already known with the same answer
	Conflicts []string `json:"conflicts"` // variants bound to a different answer, left alone
}

// Import teaches every record of a knowledge file in any accepted layout,
// including the legacy flat question to answer map. Records without a
// source are marked imported. Conflicting records are skipped and reported;
// the first write failure aborts the import.
func (s *Store) Import(data []byte) (ImportResult, error) {
	var res ImportResult
	recs, err := decode(data)
	if err != nil {
		return res, fmt.Errorf("decoding import: %w", err)
	}

	for _, r := range recs {
		src := r.Source
		if src == "" {
			src = SourceImported
		}
		before := s.Stats().Variants
		_, err := s.Teach(string(r.Answer), r.Question, WithSource(src))

		var dup *DuplicateVariantError
		switch {
		case err == nil:
			if s.Stats().Variants > before {
				res.Added++
			} else {
				res.Unchanged++
			}
		case errors.As(err, &dup):
			res.Conflicts = append(res.Conflicts, dup.Variant)
		case errors.Is(err, ErrInvalidEntry):
			res.Unchanged++
		default:
			return res, err
		}
	}
	return res, nil
}

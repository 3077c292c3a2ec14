package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// record is the on-disk form of an Entry:
//
//	[{"question": ["what is a cloud", "what is a cloud?"], "answer": "..."}]
//
// id, source and created_at are optional so hand-written files load.
type record struct {
	ID        string      `json:"id,omitempty"`
	Question  stringList  `json:"question"`
	Answer    firstString `json:"answer"`
	Source    Source      `json:"source,omitempty"`
	CreatedAt *time.Time  `json:"created_at,omitempty"`
}

// stringList accepts a JSON string or array of strings.
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = stringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("question must be a string or list of strings: %w", err)
	}
	*l = many
	return nil
}

// firstString accepts a JSON string, or an array whose first non-empty
// element is used.
type firstString string

func (s *firstString) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = firstString(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("answer must be a string or list of strings: %w", err)
	}
	for _, a := range many {
		if strings.TrimSpace(a) != "" {
			*s = firstString(a)
			return nil
		}
	}
	*s = ""
	return nil
}

// decode parses any of the accepted knowledge file layouts: the canonical
// record array, or a legacy flat object mapping question to answer. Key
// order of the flat object is preserved.
func decode(data []byte) ([]record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	switch data[0] {
	case '[':
		var recs []record
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, err
		}
		return recs, nil
	case '{':
		return decodeFlat(data)
	default:
		return nil, fmt.Errorf("unexpected leading byte %q", data[0])
	}
}

func decodeFlat(data []byte) ([]record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var recs []record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		question, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected question key, got %v", tok)
		}
		var answer firstString
		if err := dec.Decode(&answer); err != nil {
			return nil, fmt.Errorf("answer for %q: %w", question, err)
		}
		recs = append(recs, record{
			Question: stringList{question},
			Answer:   answer,
			Source:   SourceImported,
		})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return recs, nil
}

// encode renders entries in the canonical layout.
func encode(entries []*Entry) ([]byte, error) {
	recs := make([]record, len(entries))
	for i, e := range entries {
		recs[i] = record{
			ID:       e.ID,
			Question: e.Variants,
			Answer:   firstString(e.Answer),
			Source:   e.Source,
		}
		if !e.CreatedAt.IsZero() {
			t := e.CreatedAt.UTC()
			recs[i].CreatedAt = &t
		}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

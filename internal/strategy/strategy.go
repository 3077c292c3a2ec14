// Package strategy names the resolution stages that can produce an answer.
package strategy

// Strategy identifies which stage produced an answer.
type Strategy string

const (
	None       Strategy = "NONE"
	Exact      Strategy = "EXACT"
	Fuzzy      Strategy = "FUZZY"
	Generative Strategy = "GENERATIVE"
	Static     Strategy = "STATIC"
)

// Stored reports whether the answer came from the knowledge store.
func (s Strategy) Stored() bool {
	return s == Exact || s == Fuzzy
}

func (s Strategy) String() string {
	if s == "" {
		return string(None)
	}
	return string(s)
}

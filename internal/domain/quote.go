package domain

// QuoteEntry is one tenor entry of an upstream instrument payload.
// Err carries the upstream error marker verbatim when one was present.
type QuoteEntry struct {
	Value *float64
	Err   string
}

func (q QuoteEntry) Failed() bool { return q.Err != "" }

// QuoteSet keeps the quote entries of one instrument in payload order.
type QuoteSet struct {
	Keys    []string
	Entries map[string]QuoteEntry
}

// First returns the entry under the first key present in the payload.
func (q QuoteSet) First() (string, QuoteEntry, bool) {
	if len(q.Keys) == 0 {
		return "", QuoteEntry{}, false
	}
	k := q.Keys[0]
	return k, q.Entries[k], true
}

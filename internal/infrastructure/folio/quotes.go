package folio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"bunkerprices-service/internal/domain"
)

// livePrices is the body of the live prices endpoint.
type livePrices struct {
	Payload map[string]instrumentPayload `json:"payload"`
}

type instrumentPayload struct {
	Data quoteSet `json:"data"`
}

// quoteSet decodes a quote object keeping its keys in document order, which
// a Go map would lose.
type quoteSet domain.QuoteSet

type rawQuote struct {
	Value json.RawMessage `json:"value"`
	Error json.RawMessage `json:"error"`
}

func (q *quoteSet) UnmarshalJSON(b []byte) error {
	*q = quoteSet{Entries: map[string]domain.QuoteEntry{}}

	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		// null or an unexpected shape: no quotes.
		return nil
	}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("quote key: unexpected %v", kt)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("quote %q: %w", key, err)
		}
		if _, dup := q.Entries[key]; !dup {
			q.Keys = append(q.Keys, key)
		}
		q.Entries[key] = decodeEntry(raw)
	}
	_, err = dec.Token()
	return err
}

func decodeEntry(raw json.RawMessage) domain.QuoteEntry {
	var rq rawQuote
	if err := json.Unmarshal(raw, &rq); err != nil {
		return domain.QuoteEntry{}
	}
	var e domain.QuoteEntry
	if isErrorMarker(rq.Error) {
		e.Err = string(rq.Error)
	}
	e.Value = parseValue(rq.Value)
	return e
}

func isErrorMarker(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", `""`:
		return false
	}
	return true
}

// parseValue accepts JSON numbers and numeric strings; anything else is absent.
func parseValue(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if f, err := n.Float64(); err == nil {
			return &f
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

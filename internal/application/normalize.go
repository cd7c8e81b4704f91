package application

import (
	"time"

	"bunkerprices-service/internal/domain"
)

// Normalize builds one snapshot per configured instrument, in configured
// order, all stamped with at. The value is taken from the first quote key of
// the instrument; it stays absent when the instrument is missing from the
// payload, has no quotes, or its first quote carries an error.
func Normalize(ids []domain.InstrumentID, payload map[domain.InstrumentID]domain.QuoteSet, at time.Time) []domain.PriceSnapshot {
	out := make([]domain.PriceSnapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.PriceSnapshot{
			InstrumentID: id,
			Value:        firstValue(payload[id]),
			RecordedAt:   at,
		})
	}
	return out
}

func firstValue(q domain.QuoteSet) *float64 {
	_, entry, ok := q.First()
	if !ok || entry.Failed() || entry.Value == nil {
		return nil
	}
	v := *entry.Value
	return &v
}

package domain

import "strings"

// InstrumentID identifies one priced series upstream (a fuel grade at a port).
type InstrumentID string

type Instrument struct {
	ID   InstrumentID `yaml:"id" json:"id"`
	Name string       `yaml:"name,omitempty" json:"name,omitempty"`
}

// DefaultInstruments is the series list tracked when no catalog is configured.
var DefaultInstruments = []Instrument{
	{ID: "d71f82b9-21e2-49f0-9974-4a11a9e5b09f"},
	{ID: "29d3a405-cb03-45b4-9ebf-f0176b7ba06a"},
	{ID: "99d27f4d-0a7e-44fe-b9de-9c27d27f08d2"},
	{ID: "662e5a2f-f028-4d18-81dc-89be3ba01f3a"},
	{ID: "b0738070-229c-4aa7-b5d0-45b4119dd0e0"},
	{ID: "e9e305ee-8605-4503-b3e2-8f5763870cd2", Name: "CSC"},
	{ID: "e506264b-1bcd-429f-b018-f50e3f517133"},
	{ID: "9c68de75-aed7-417b-abab-eaf576d0d6fe"},
	{ID: "6ccbf93e-d43d-46ab-ba50-c26659add883"},
}

func ParseInstrumentIDs(csv string) []Instrument {
	var out []Instrument
	for _, part := range strings.Split(csv, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		out = append(out, Instrument{ID: InstrumentID(id)})
	}
	return out
}

func IDs(instruments []Instrument) []InstrumentID {
	ids := make([]InstrumentID, 0, len(instruments))
	for _, in := range instruments {
		ids = append(ids, in.ID)
	}
	return ids
}

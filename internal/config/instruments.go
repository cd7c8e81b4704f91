package config

import (
	"errors"
	"fmt"
	"os"

	"bunkerprices-service/internal/domain"

	"github.com/goccy/go-yaml"
)

// InstrumentCatalog is the on-disk list of tracked instruments.
type InstrumentCatalog struct {
	Instruments []domain.Instrument `yaml:"instruments"`
}

func (c *InstrumentCatalog) Validate() error {
	if len(c.Instruments) == 0 {
		return errors.New("no instruments configured")
	}
	seen := make(map[domain.InstrumentID]struct{}, len(c.Instruments))
	for i, in := range c.Instruments {
		if in.ID == "" {
			return fmt.Errorf("instrument #%d: id is required", i)
		}
		if _, dup := seen[in.ID]; dup {
			return fmt.Errorf("instrument %q listed twice", in.ID)
		}
		seen[in.ID] = struct{}{}
	}
	return nil
}

func ParseInstrumentCatalog(data []byte) (*InstrumentCatalog, error) {
	var cat InstrumentCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse instruments: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instruments: %w", err)
	}
	return &cat, nil
}

// Instruments resolves the tracked set: the catalog file when set, then
// INSTRUMENT_IDS, then the built-in defaults.
func (c Config) Instruments() ([]domain.Instrument, error) {
	if c.InstrumentsFile != "" {
		data, err := os.ReadFile(c.InstrumentsFile)
		if err != nil {
			return nil, fmt.Errorf("read instruments file: %w", err)
		}
		cat, err := ParseInstrumentCatalog(data)
		if err != nil {
			return nil, err
		}
		return cat.Instruments, nil
	}
	if ids := domain.ParseInstrumentIDs(c.InstrumentIDs); len(ids) > 0 {
		cat := InstrumentCatalog{Instruments: ids}
		if err := cat.Validate(); err != nil {
			return nil, fmt.Errorf("invalid INSTRUMENT_IDS: %w", err)
		}
		return ids, nil
	}
	return append([]domain.Instrument(nil), domain.DefaultInstruments...), nil
}

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Read-side shapes. Upstream names live here; the exported types carry the
// names this service writes. Pointers distinguish a missing required field
// from an empty one.

type outageWire struct {
	Regions   *[]Region `json:"regions"`
	Totals    *Totals   `json:"totals"`
	Timestamp *string   `json:"timestamp"`
}

type generationWire struct {
	DataFechaActualizado *string            `json:"dataFechaAcualizado"`
	FuelCosts            *[]FuelCost        `json:"dataFuelCost"`
	ByFuel               *[]ByFuel          `json:"dataByFuel"`
	Metrics              *[]metricWire      `json:"dataMetrics"`
	LoadPerSite          *[]loadPerSiteWire `json:"dataLoadPerSite"`
}

type metricWire struct {
	Index looseString     `json:"Index"`
	Desc  string          `json:"Desc"`
	Value json.RawMessage `json:"value"`
}

type loadPerSiteWire struct {
	Index     looseString `json:"Index"`
	Type      string      `json:"Type"`
	Desc      string      `json:"Desc"`
	SiteTotal int64       `json:"SiteTotal"`
	Units     []unitWire  `json:"units"`
}

type unitWire struct {
	Index    looseString `json:"Index"`
	Unit     string      `json:"Unit"`
	MW       int64       `json:"MW"`
	MVar     string      `json:"MVar"`
	Cost     float64     `json:"Cost"`
	ParentID looseString `json:"ParentId"`
}

// looseString accepts a JSON string or number. Identifier fields upstream
// are usually strings but have been seen as bare numbers.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = looseString(n.String())
	return nil
}

// ParseOutage decodes a regions-without-service payload.
// timestamp, regions and totals are required; other missing fields default to zero.
func ParseOutage(data []byte) (OutageSnapshot, error) {
	var w outageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return OutageSnapshot{}, fmt.Errorf("%w: outage payload: %v", ErrParse, err)
	}
	switch {
	case w.Timestamp == nil:
		return OutageSnapshot{}, missingField("outage", "timestamp")
	case w.Regions == nil:
		return OutageSnapshot{}, missingField("outage", "regions")
	case w.Totals == nil:
		return OutageSnapshot{}, missingField("outage", "totals")
	}

	return OutageSnapshot{
		Regions:   *w.Regions,
		Totals:    *w.Totals,
		Timestamp: *w.Timestamp,
	}, nil
}

// ParseGeneration decodes the JSON materialized from the generation script.
// The timestamp and all four lists are required.
func ParseGeneration(data []byte) (GenerationSnapshot, error) {
	var w generationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return GenerationSnapshot{}, fmt.Errorf("%w: generation payload: %v", ErrParse, err)
	}
	switch {
	case w.DataFechaActualizado == nil:
		return GenerationSnapshot{}, missingField("generation", "dataFechaAcualizado")
	case w.FuelCosts == nil:
		return GenerationSnapshot{}, missingField("generation", "dataFuelCost")
	case w.ByFuel == nil:
		return GenerationSnapshot{}, missingField("generation", "dataByFuel")
	case w.Metrics == nil:
		return GenerationSnapshot{}, missingField("generation", "dataMetrics")
	case w.LoadPerSite == nil:
		return GenerationSnapshot{}, missingField("generation", "dataLoadPerSite")
	}

	snap := GenerationSnapshot{
		DataFechaActualizado: *w.DataFechaActualizado,
		FuelCosts:            *w.FuelCosts,
		ByFuel:               *w.ByFuel,
		Metrics:              make([]Metric, 0, len(*w.Metrics)),
		LoadPerSite:          make([]LoadPerSite, 0, len(*w.LoadPerSite)),
	}
	for _, m := range *w.Metrics {
		snap.Metrics = append(snap.Metrics, Metric{
			Index: string(m.Index),
			Desc:  m.Desc,
			Value: m.Value,
		})
	}
	for _, site := range *w.LoadPerSite {
		snap.LoadPerSite = append(snap.LoadPerSite, site.toDomain())
	}
	return snap, nil
}

func (w loadPerSiteWire) toDomain() LoadPerSite {
	site := LoadPerSite{
		Index:     string(w.Index),
		Type:      w.Type,
		Desc:      w.Desc,
		SiteTotal: w.SiteTotal,
		Units:     make([]Unit, 0, len(w.Units)),
	}
	for _, u := range w.Units {
		site.Units = append(site.Units, Unit{
			LoadPerSiteIndex: site.Index,
			Index:            string(u.Index),
			Unit:             u.Unit,
			MW:               u.MW,
			MVar:             u.MVar,
			Cost:             u.Cost,
			ParentID:         string(u.ParentID),
		})
	}
	return site
}

func missingField(payload, field string) error {
	return fmt.Errorf("%w: %s payload missing required field %q", ErrParse, payload, field)
}

package domain

import "encoding/json"

// Source identifies an upstream feed.
type Source string

const (
	SourceOutage     Source = "outage"
	SourceGeneration Source = "generation"
)

// OutageSnapshot is one reading of the LUMA regions-without-service feed.
type OutageSnapshot struct {
	Regions   []Region `json:"regions"`
	Totals    Totals   `json:"totals"`
	Timestamp string   `json:"timestamp"` // local time, OutageLayout
}

// Region holds customer counts for one service region.
type Region struct {
	Name                                string  `json:"name"`
	TotalClients                        int64   `json:"totalClients"`
	TotalClientsWithoutService          int64   `json:"totalClientsWithoutService"`
	TotalClientsWithService             int64   `json:"totalClientsWithService"`
	TotalClientsAffectedByPlannedOutage int64   `json:"totalClientsAffectedByPlannedOutage"`
	PercentageClientsWithoutService     float64 `json:"percentageClientsWithoutService"`
	PercentageClientsWithService        float64 `json:"percentageClientsWithService"`
}

// Totals holds the island-wide aggregate as reported upstream. It is not
// checked against the sum of the regions.
type Totals struct {
	TotalClientsWithoutService          int64   `json:"totalClientsWithoutService"`
	TotalClients                        int64   `json:"totalClients"`
	TotalClientsWithService             int64   `json:"totalClientsWithService"`
	TotalPercentageWithoutService       float64 `json:"totalPercentageWithoutService"`
	TotalClientsAffectedByPlannedOutage int64   `json:"totalClientsAffectedByPlannedOutage"`
	TotalPercentageWithService          float64 `json:"totalPercentageWithService"`
}

// GenerationSnapshot is one reading of the PREPA generation dashboard.
type GenerationSnapshot struct {
	DataFechaActualizado string        `json:"dataFechaAcualizado"` // local time, GenerationLayout
	FuelCosts            []FuelCost    `json:"dataFuelCost"`
	ByFuel               []ByFuel      `json:"dataByFuel"`
	Metrics              []Metric      `json:"dataMetrics"`
	LoadPerSite          []LoadPerSite `json:"dataLoadPerSite"`
}

// FuelCost is the generation cost reported for a place.
type FuelCost struct {
	Place string `json:"place"`
	Value int64  `json:"value"`
}

// ByFuel is the generation reported for a fuel type.
type ByFuel struct {
	Fuel  string `json:"fuel"`
	Value int64  `json:"value"`
}

// Metric is a dashboard indicator. Value is relayed as raw JSON because the
// upstream mixes numbers, strings and objects.
type Metric struct {
	Index string          `json:"index"`
	Desc  string          `json:"desc"`
	Value json.RawMessage `json:"value"`
}

// LoadPerSite is a generating site with its units.
type LoadPerSite struct {
	Index     string `json:"index"`
	Type      string `json:"type_field"`
	Desc      string `json:"desc"`
	SiteTotal int64  `json:"site_total"`
	Units     []Unit `json:"units"`
}

// Unit is a generating unit owned by a LoadPerSite.
type Unit struct {
	LoadPerSiteIndex string  `json:"loadPerSiteIndex"`
	Index            string  `json:"index"`
	Unit             string  `json:"unit"`
	MW               int64   `json:"mw"`
	MVar             string  `json:"mvar"`
	Cost             float64 `json:"cost"`
	ParentID         string  `json:"parent_id"`
}

// UnitCount returns the number of units across all sites.
func (g GenerationSnapshot) UnitCount() int {
	n := 0
	for _, site := range g.LoadPerSite {
		n += len(site.Units)
	}
	return n
}

// WriteResult counts the rows handled by one snapshot write.
type WriteResult struct {
	Inserted int
	Skipped  int
}

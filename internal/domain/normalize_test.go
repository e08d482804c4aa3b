package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOutagePayload = `{
  "regions": [
    {"name":"Arecibo","totalClients":187523,"totalClientsWithoutService":1204,"totalClientsWithService":186319,"totalClientsAffectedByPlannedOutage":0,"percentageClientsWithoutService":0.64,"percentageClientsWithService":99.36},
    {"name":"Bayamon","totalClients":243810,"totalClientsWithoutService":0,"totalClientsWithService":243810,"totalClientsAffectedByPlannedOutage":12,"percentageClientsWithoutService":0,"percentageClientsWithService":100},
    {"name":"Caguas","totalClients":201377,"totalClientsWithoutService":35,"totalClientsWithService":201342,"totalClientsAffectedByPlannedOutage":0,"percentageClientsWithoutService":0.017380336,"percentageClientsWithService":99.982619664}
  ],
  "totals": {"totalClientsWithoutService":1239,"totalClients":632710,"totalClientsWithService":631471,"totalPercentageWithoutService":0.1958,"totalClientsAffectedByPlannedOutage":12,"totalPercentageWithService":99.8042},
  "timestamp": "03/10/2024 09:00 AM",
  "lastUpdated": "ignored"
}`

const testGenerationPayload = `{
  "dataFechaAcualizado": "03/10/2024 09:00:15 AM",
  "dataFuelCost": [{"place":"Aguirre","value":182},{"place":"Costa Sur","value":97}],
  "dataByFuel": [{"fuel":"Bunker","value":640},{"fuel":"Gas Natural","value":1210}],
  "dataMetrics": [
    {"Index":"1","Desc":"Reserva","value":412},
    {"Index":"2","Desc":"Estado","value":"Normal"},
    {"Index":3,"Desc":"Detalle","value":{"a": [1, 2.50]}}
  ],
  "dataLoadPerSite": [
    {"Index":"10","Type":"Vapor","Desc":"Aguirre","SiteTotal":450,"units":[
      {"Index":"101","Unit":"Aguirre 1","MW":225,"MVar":"12.5","Cost":81.25,"ParentId":"10"},
      {"Index":"102","Unit":"Aguirre 2","MW":225,"MVar":"-3","Cost":82.5,"ParentId":"10"}
    ]},
    {"Index":"20","Type":"Ciclo Combinado","Desc":"Costa Sur","SiteTotal":0,"units":[]}
  ]
}`

func TestParseOutage(t *testing.T) {
	t.Run("regions in order with totals", func(t *testing.T) {
		snap, err := ParseOutage([]byte(testOutagePayload))
		require.NoError(t, err)

		require.Len(t, snap.Regions, 3)
		assert.Equal(t, "Arecibo", snap.Regions[0].Name)
		assert.Equal(t, "Bayamon", snap.Regions[1].Name)
		assert.Equal(t, "Caguas", snap.Regions[2].Name)
		assert.Equal(t, "03/10/2024 09:00 AM", snap.Timestamp)

		assert.Equal(t, Region{
			Name:                                "Caguas",
			TotalClients:                        201377,
			TotalClientsWithoutService:          35,
			TotalClientsWithService:             201342,
			TotalClientsAffectedByPlannedOutage: 0,
			PercentageClientsWithoutService:     0.017380336,
			PercentageClientsWithService:        99.982619664,
		}, snap.Regions[2])

		assert.Equal(t, Totals{
			TotalClientsWithoutService:          1239,
			TotalClients:                        632710,
			TotalClientsWithService:             631471,
			TotalPercentageWithoutService:       0.1958,
			TotalClientsAffectedByPlannedOutage: 12,
			TotalPercentageWithService:          99.8042,
		}, snap.Totals)
	})

	t.Run("missing optional region fields default to zero", func(t *testing.T) {
		snap, err := ParseOutage([]byte(`{"regions":[{"name":"Ponce"}],"totals":{},"timestamp":"t"}`))
		require.NoError(t, err)
		require.Len(t, snap.Regions, 1)
		assert.Equal(t, Region{Name: "Ponce"}, snap.Regions[0])
	})

	t.Run("empty regions is not missing regions", func(t *testing.T) {
		snap, err := ParseOutage([]byte(`{"regions":[],"totals":{},"timestamp":"t"}`))
		require.NoError(t, err)
		assert.Empty(t, snap.Regions)
	})

	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{"missing timestamp", `{"regions":[],"totals":{}}`, "timestamp"},
		{"null timestamp", `{"regions":[],"totals":{},"timestamp":null}`, "timestamp"},
		{"missing regions", `{"totals":{},"timestamp":"t"}`, "regions"},
		{"missing totals", `{"regions":[],"timestamp":"t"}`, "totals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOutage([]byte(tt.payload))
			require.ErrorIs(t, err, ErrParse)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseOutage([]byte("{invalid json"))
		require.ErrorIs(t, err, ErrParse)
		assert.Contains(t, err.Error(), "outage payload")
	})

	t.Run("fractional count is a type mismatch", func(t *testing.T) {
		_, err := ParseOutage([]byte(`{"regions":[{"name":"Mayaguez","totalClients":1.5}],"totals":{},"timestamp":"t"}`))
		require.ErrorIs(t, err, ErrParse)
	})
}

func TestParseGeneration(t *testing.T) {
	snap, err := ParseGeneration([]byte(testGenerationPayload))
	require.NoError(t, err)

	assert.Equal(t, "03/10/2024 09:00:15 AM", snap.DataFechaActualizado)
	assert.Equal(t, []FuelCost{{Place: "Aguirre", Value: 182}, {Place: "Costa Sur", Value: 97}}, snap.FuelCosts)
	assert.Equal(t, []ByFuel{{Fuel: "Bunker", Value: 640}, {Fuel: "Gas Natural", Value: 1210}}, snap.ByFuel)

	t.Run("metrics keep raw values", func(t *testing.T) {
		require.Len(t, snap.Metrics, 3)
		assert.Equal(t, "1", snap.Metrics[0].Index)
		assert.Equal(t, "Reserva", snap.Metrics[0].Desc)
		assert.Equal(t, `412`, string(snap.Metrics[0].Value))
		assert.Equal(t, `"Normal"`, string(snap.Metrics[1].Value))
		assert.Equal(t, "3", snap.Metrics[2].Index)
		assert.Equal(t, `{"a": [1, 2.50]}`, string(snap.Metrics[2].Value))
	})

	t.Run("load per site renames and unit parent", func(t *testing.T) {
		require.Len(t, snap.LoadPerSite, 2)
		site := snap.LoadPerSite[0]
		assert.Equal(t, "10", site.Index)
		assert.Equal(t, "Vapor", site.Type)
		assert.Equal(t, "Aguirre", site.Desc)
		assert.Equal(t, int64(450), site.SiteTotal)
		require.Len(t, site.Units, 2)
		assert.Equal(t, Unit{
			LoadPerSiteIndex: "10",
			Index:            "101",
			Unit:             "Aguirre 1",
			MW:               225,
			MVar:             "12.5",
			Cost:             81.25,
			ParentID:         "10",
		}, site.Units[0])
		assert.Empty(t, snap.LoadPerSite[1].Units)
		assert.Equal(t, 2, snap.UnitCount())
	})
}

func TestParseGeneration_KeyCasing(t *testing.T) {
	payload := `{"dataFechaAcualizado":"t","dataFuelCost":[],"dataByFuel":[],"dataMetrics":[{"index":"7","DESC":"x"}],
		"dataLoadPerSite":[{"INDEX":"1","type":"Gas","siteTotal":5,"Units":[{"index":"a","unit":"u","mw":1,"mvar":"0","cost":2.5,"parentId":"1"}]}]}`

	snap, err := ParseGeneration([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "7", snap.Metrics[0].Index)
	assert.Equal(t, "x", snap.Metrics[0].Desc)
	assert.Nil(t, snap.Metrics[0].Value)
	assert.Equal(t, "Gas", snap.LoadPerSite[0].Type)
	assert.Equal(t, int64(5), snap.LoadPerSite[0].SiteTotal)
	require.Len(t, snap.LoadPerSite[0].Units, 1)
	assert.Equal(t, "1", snap.LoadPerSite[0].Units[0].ParentID)
	assert.Equal(t, 2.5, snap.LoadPerSite[0].Units[0].Cost)
}

func TestParseGeneration_MissingRequired(t *testing.T) {
	full := map[string]string{
		"dataFechaAcualizado": `"t"`,
		"dataFuelCost":        `[]`,
		"dataByFuel":          `[]`,
		"dataMetrics":         `[]`,
		"dataLoadPerSite":     `[]`,
	}
	for missing := range full {
		t.Run(missing, func(t *testing.T) {
			obj := map[string]json.RawMessage{}
			for k, v := range full {
				if k != missing {
					obj[k] = json.RawMessage(v)
				}
			}
			data, err := json.Marshal(obj)
			require.NoError(t, err)

			_, err = ParseGeneration(data)
			require.ErrorIs(t, err, ErrParse)
			assert.Contains(t, err.Error(), missing)
		})
	}
}

func TestGenerationSnapshot_WriteNames(t *testing.T) {
	snap, err := ParseGeneration([]byte(testGenerationPayload))
	require.NoError(t, err)

	out, err := json.Marshal(snap.LoadPerSite[0])
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &fields))
	for _, key := range []string{"index", "type_field", "desc", "site_total", "units"} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "SiteTotal")

	var units []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(fields["units"], &units))
	for _, key := range []string{"loadPerSiteIndex", "index", "unit", "mw", "mvar", "cost", "parent_id"} {
		assert.Contains(t, units[0], key)
	}

	metric, err := json.Marshal(snap.Metrics[2])
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":"3","desc":"Detalle","value":{"a":[1,2.50]}}`, string(metric))
}

func TestLooseString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"string", `"101"`, "101", false},
		{"integer", `101`, "101", false},
		{"decimal", `1.5`, "1.5", false},
		{"null", `null`, "", false},
		{"object", `{}`, "", true},
		{"bool", `true`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s looseString
			err := json.Unmarshal([]byte(tt.input), &s)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(s))
		})
	}
}

// Package domain models the Puerto Rico grid status data ingested by the ETL.
//
// # Data Sources
//
// Outage status comes from the LUMA customer portal API
// (https://api.miluma.lumapr.com/miluma-outage-api/outage/regionsWithoutService),
// which returns plain JSON: one entry per service region plus an island-wide
// totals object and a local timestamp.
//
// Generation status comes from the PREPA operations dashboard
// (https://operationdata.prepa.pr.gov/dataSource.js). There is no JSON
// endpoint: the dashboard ships a script that assigns global variables
// (dataFechaAcualizado, dataFuelCost, dataByFuel, dataMetrics,
// dataLoadPerSite). The sandbox package evaluates that script and hands the
// resulting JSON to [ParseGeneration].
//
// # Field Naming
//
// Upstream names are not stable in casing and differ from the names this
// service writes. Each record family therefore has two mappings:
//
//	read  (wire structs in normalize.go):  Index, Desc, Type, SiteTotal, MW, MVar, ParentId
//	write (types in this package):         index, desc, type_field, site_total, mw, mvar, parent_id
//
// Decoding matches keys case-insensitively, so "index" and "INDEX" are read
// the same as "Index".
//
// Metric values are loosely typed upstream (number, string or object) and are
// carried as raw JSON without coercion.
//
// # Time Format
//
//	Outage:     "03/10/2024 09:00 AM"     (MM/DD/YYYY hh:mm AM|PM)
//	Generation: "03/10/2024 09:00:15 AM"  (MM/DD/YYYY hh:mm:ss AM|PM)
//
// Both are naive local times. [TimeResolver] pins them to the configured
// zone (America/Puerto_Rico in production) and rejects wall times that fall
// in a DST gap or overlap instead of guessing an offset.
//
// # Snapshot Identity
//
// The resolved Unix epoch is the key for a snapshot and every child row.
// There is no existence check before insert: ingesting the same upstream
// state twice writes the rows twice.
package domain

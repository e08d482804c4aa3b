package store

import (
	"context"
	"fmt"

	"github.com/couchcryptid/grid-status-etl/internal/config"
	"github.com/couchcryptid/grid-status-etl/internal/domain"
)

// Table names as created by the table script.
const (
	TableRegionData     = "RegionData"
	TableTotals         = "Totals"
	TableGenerationData = "GenerationData"
	TableFuelCost       = "FuelCost"
	TableMetrics        = "Metrics"
	TableByFuel         = "ByFuel"
	TableLoadPerSite    = "LoadPerSite"
	TableUnits          = "Units"
)

const (
	insertRegionData = `INSERT INTO "RegionData" (time, name, total_clients, total_clients_without_service, total_clients_with_service, total_clients_affected_by_planned_outage, percentage_clients_without_service, percentage_clients_with_service) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	insertTotals     = `INSERT INTO "Totals" (time, total_clients_without_service, total_clients, total_clients_with_service, total_percentage_without_service, total_clients_affected_by_planned_outage, total_percentage_with_service) VALUES (?, ?, ?, ?, ?, ?, ?)`

	insertGenerationData = `INSERT INTO "GenerationData" (data_fecha_acualizado) VALUES (?)`
	insertFuelCost       = `INSERT INTO "FuelCost" (data_fecha_acualizado, place, value) VALUES (?, ?, ?)`
	insertMetrics        = `INSERT INTO "Metrics" (data_fecha_acualizado, "index", "desc", value) VALUES (?, ?, ?, ?)`
	insertByFuel         = `INSERT INTO "ByFuel" (data_fecha_acualizado, fuel, value) VALUES (?, ?, ?)`
	insertLoadPerSite    = `INSERT INTO "LoadPerSite" (data_fecha_acualizado, "index", type_field, "desc", site_total) VALUES (?, ?, ?, ?, ?)`
	insertUnits          = `INSERT INTO "Units" (data_fecha_acualizado, load_per_site_index, "index", unit, mw, mvar, cost, parent_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

// WriteOutage inserts one RegionData row per region, in order, then the Totals row.
func (s *Store) WriteOutage(ctx context.Context, epoch int64, snap domain.OutageSnapshot) (domain.WriteResult, error) {
	var res domain.WriteResult

	for _, r := range snap.Regions {
		if err := s.insert(ctx, &res, TableRegionData, insertRegionData,
			epoch, r.Name, r.TotalClients, r.TotalClientsWithoutService, r.TotalClientsWithService,
			r.TotalClientsAffectedByPlannedOutage, r.PercentageClientsWithoutService, r.PercentageClientsWithService,
		); err != nil {
			return res, err
		}
	}

	t := snap.Totals
	if err := s.insert(ctx, &res, TableTotals, insertTotals,
		epoch, t.TotalClientsWithoutService, t.TotalClients, t.TotalClientsWithService,
		t.TotalPercentageWithoutService, t.TotalClientsAffectedByPlannedOutage, t.TotalPercentageWithService,
	); err != nil {
		return res, err
	}

	s.logger.Info("outage snapshot written", "epoch", epoch, "inserted", res.Inserted, "skipped", res.Skipped)
	return res, nil
}

// WriteGeneration inserts the GenerationData root row, the fuel cost, metric
// and by-fuel rows, then each site followed by its units.
func (s *Store) WriteGeneration(ctx context.Context, epoch int64, snap domain.GenerationSnapshot) (domain.WriteResult, error) {
	var res domain.WriteResult

	if err := s.insert(ctx, &res, TableGenerationData, insertGenerationData, epoch); err != nil {
		return res, err
	}

	for _, fc := range snap.FuelCosts {
		if err := s.insert(ctx, &res, TableFuelCost, insertFuelCost, epoch, fc.Place, fc.Value); err != nil {
			return res, err
		}
	}

	for _, m := range snap.Metrics {
		if err := s.insert(ctx, &res, TableMetrics, insertMetrics, epoch, m.Index, m.Desc, metricValue(m)); err != nil {
			return res, err
		}
	}

	for _, bf := range snap.ByFuel {
		if err := s.insert(ctx, &res, TableByFuel, insertByFuel, epoch, bf.Fuel, bf.Value); err != nil {
			return res, err
		}
	}

	for _, site := range snap.LoadPerSite {
		if err := s.insert(ctx, &res, TableLoadPerSite, insertLoadPerSite,
			epoch, site.Index, site.Type, site.Desc, site.SiteTotal,
		); err != nil {
			return res, err
		}
		for _, u := range site.Units {
			if err := s.insert(ctx, &res, TableUnits, insertUnits,
				epoch, u.LoadPerSiteIndex, u.Index, u.Unit, u.MW, u.MVar, u.Cost, u.ParentID,
			); err != nil {
				return res, err
			}
		}
	}

	s.logger.Info("generation snapshot written", "epoch", epoch, "inserted", res.Inserted, "skipped", res.Skipped)
	return res, nil
}

// metricValue returns the raw JSON text of a metric value, or nil for SQL NULL.
func metricValue(m domain.Metric) any {
	if len(m.Value) == 0 {
		return nil
	}
	return string(m.Value)
}

func (s *Store) insert(ctx context.Context, res *domain.WriteResult, table, query string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: insert into %s: %v", domain.ErrPersistence, table, err)
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(query), args...); err != nil {
		if s.policy != config.InsertPolicySkip {
			return fmt.Errorf("%w: insert into %s: %v", domain.ErrPersistence, table, err)
		}
		s.logger.Warn("insert failed, row skipped", "table", table, "error", err)
		if s.metrics != nil {
			s.metrics.RowsSkipped.WithLabelValues(table).Inc()
		}
		res.Skipped++
		return nil
	}

	if s.metrics != nil {
		s.metrics.RowsInserted.WithLabelValues(table).Inc()
	}
	res.Inserted++
	return nil
}

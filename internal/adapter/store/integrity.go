package store

import (
	"context"
	"fmt"
)

// IntegrityReport summarizes structural checks over stored snapshots.
// Duplicate snapshots are reported but are not a defect: reruns append.
type IntegrityReport struct {
	OutageSnapshots     int
	GenerationSnapshots int

	RegionsWithoutTotals []int64   // RegionData times with no Totals row
	SitesWithoutRoot     []int64   // LoadPerSite epochs with no GenerationData row
	OrphanUnits          []UnitRef // Units with no matching LoadPerSite row

	DuplicateOutage     []int64
	DuplicateGeneration []int64
}

// UnitRef groups Units rows by their logical parent key.
type UnitRef struct {
	Epoch            int64
	LoadPerSiteIndex string
	Rows             int
}

// Healthy reports whether no structural defect was found.
func (r IntegrityReport) Healthy() bool {
	return len(r.RegionsWithoutTotals) == 0 && len(r.SitesWithoutRoot) == 0 && len(r.OrphanUnits) == 0
}

const (
	countOutageSnapshots     = `SELECT COUNT(DISTINCT time) FROM "Totals"`
	countGenerationSnapshots = `SELECT COUNT(DISTINCT data_fecha_acualizado) FROM "GenerationData"`

	selectRegionsWithoutTotals = `SELECT DISTINCT r.time FROM "RegionData" r
WHERE NOT EXISTS (SELECT 1 FROM "Totals" t WHERE t.time = r.time)
ORDER BY r.time`

	selectSitesWithoutRoot = `SELECT DISTINCT s.data_fecha_acualizado FROM "LoadPerSite" s
WHERE NOT EXISTS (SELECT 1 FROM "GenerationData" g WHERE g.data_fecha_acualizado = s.data_fecha_acualizado)
ORDER BY s.data_fecha_acualizado`

	selectOrphanUnits = `SELECT u.data_fecha_acualizado, u.load_per_site_index, COUNT(*) FROM "Units" u
WHERE NOT EXISTS (
    SELECT 1 FROM "LoadPerSite" s
    WHERE s.data_fecha_acualizado = u.data_fecha_acualizado AND s."index" = u.load_per_site_index
)
GROUP BY u.data_fecha_acualizado, u.load_per_site_index
ORDER BY u.data_fecha_acualizado, u.load_per_site_index`

	selectDuplicateOutage     = `SELECT time FROM "Totals" GROUP BY time HAVING COUNT(*) > 1 ORDER BY time`
	selectDuplicateGeneration = `SELECT data_fecha_acualizado FROM "GenerationData" GROUP BY data_fecha_acualizado HAVING COUNT(*) > 1 ORDER BY data_fecha_acualizado`
)

// Integrity checks that every stored child row has its snapshot root and
// every unit has its site.
func (s *Store) Integrity(ctx context.Context) (IntegrityReport, error) {
	var r IntegrityReport
	var err error

	if err = s.db.QueryRowContext(ctx, countOutageSnapshots).Scan(&r.OutageSnapshots); err != nil {
		return r, fmt.Errorf("count outage snapshots: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, countGenerationSnapshots).Scan(&r.GenerationSnapshots); err != nil {
		return r, fmt.Errorf("count generation snapshots: %w", err)
	}
	if r.RegionsWithoutTotals, err = s.queryEpochs(ctx, selectRegionsWithoutTotals); err != nil {
		return r, fmt.Errorf("regions without totals: %w", err)
	}
	if r.SitesWithoutRoot, err = s.queryEpochs(ctx, selectSitesWithoutRoot); err != nil {
		return r, fmt.Errorf("sites without root: %w", err)
	}
	if r.OrphanUnits, err = s.queryOrphanUnits(ctx); err != nil {
		return r, fmt.Errorf("orphan units: %w", err)
	}
	if r.DuplicateOutage, err = s.queryEpochs(ctx, selectDuplicateOutage); err != nil {
		return r, fmt.Errorf("duplicate outage snapshots: %w", err)
	}
	if r.DuplicateGeneration, err = s.queryEpochs(ctx, selectDuplicateGeneration); err != nil {
		return r, fmt.Errorf("duplicate generation snapshots: %w", err)
	}
	return r, nil
}

func (s *Store) queryEpochs(ctx context.Context, query string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var epochs []int64
	for rows.Next() {
		var epoch int64
		if err := rows.Scan(&epoch); err != nil {
			return nil, err
		}
		epochs = append(epochs, epoch)
	}
	return epochs, rows.Err()
}

func (s *Store) queryOrphanUnits(ctx context.Context) ([]UnitRef, error) {
	rows, err := s.db.QueryContext(ctx, selectOrphanUnits)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []UnitRef
	for rows.Next() {
		var ref UnitRef
		if err := rows.Scan(&ref.Epoch, &ref.LoadPerSiteIndex, &ref.Rows); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Command validate checks the structural integrity of a grid status
// database: every region row has its totals, every site has its snapshot
// root and every unit has its site. Duplicate snapshots from reruns are
// reported but do not fail validation.
//
// Usage:
//
//	go run ./cmd/validate -database sqlite://data/grid.db
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/couchcryptid/grid-status-etl/internal/adapter/store"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	databaseURL := flag.String("database", os.Getenv("DATABASE_URL"), "database URL (defaults to DATABASE_URL)")
	flag.Parse()

	if *databaseURL == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(context.Background(), *databaseURL, os.Stdout))
}

func run(ctx context.Context, databaseURL string, out io.Writer) int {
	dialect, dsn, err := store.ParseURL(databaseURL)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	// Open creates missing SQLite files; a validator must not.
	if dialect == store.DialectSQLite {
		if _, err := os.Stat(dsn); err != nil {
			fmt.Fprintf(out, "FATAL: %v\n", err)
			return 1
		}
	}

	s, err := store.Open(ctx, databaseURL, store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		fmt.Fprintf(out, "FATAL: open database: %v\n", err)
		return 1
	}
	defer s.Close()

	report, err := s.Integrity(ctx)
	if err != nil {
		fmt.Fprintf(out, "FATAL: integrity queries: %v\n", err)
		return 1
	}

	fmt.Fprintln(out, "=== Grid Status Integrity Validation ===")
	fmt.Fprintln(out)

	phases := []*phase{
		validateOutage(report),
		validateGeneration(report),
		validateUnits(report),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Snapshots: %s outage, %s generation\n",
		humanize.Comma(int64(report.OutageSnapshots)), humanize.Comma(int64(report.GenerationSnapshots)))
	fmt.Fprintf(out, "Rerun duplicates: %d outage, %d generation\n", len(report.DuplicateOutage), len(report.DuplicateGeneration))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func validateOutage(r store.IntegrityReport) *phase {
	p := &phase{name: "Phase 1: Outage snapshots (RegionData/Totals)"}
	for _, epoch := range r.RegionsWithoutTotals {
		p.errorf("RegionData rows at %d have no Totals row", epoch)
	}
	return p
}

func validateGeneration(r store.IntegrityReport) *phase {
	p := &phase{name: "Phase 2: Generation snapshots (roots)"}
	for _, epoch := range r.SitesWithoutRoot {
		p.errorf("LoadPerSite rows at %d have no GenerationData row", epoch)
	}
	return p
}

func validateUnits(r store.IntegrityReport) *phase {
	p := &phase{name: "Phase 3: Unit parentage (Units/LoadPerSite)"}
	for _, ref := range r.OrphanUnits {
		p.errorf("%s Units rows at %d point at missing site %q", humanize.Comma(int64(ref.Rows)), ref.Epoch, ref.LoadPerSiteIndex)
	}
	return p
}

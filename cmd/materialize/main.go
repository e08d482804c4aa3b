// Command materialize turns a saved upstream payload into the normalized
// snapshot the ETL would persist, without touching a database. It is used to
// build test fixtures and to debug upstream format changes.
//
// Usage:
//
//	go run ./cmd/materialize -script testdata/dataSource.js -out generation.json
//	go run ./cmd/materialize -outage testdata/regionsWithoutService.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/grid-status-etl/internal/domain"
	"github.com/couchcryptid/grid-status-etl/internal/sandbox"
)

// materialized is the output document: the write-side snapshot plus its epoch.
type materialized struct {
	Source   domain.Source `json:"source"`
	Epoch    int64         `json:"epoch"`
	Snapshot any           `json:"snapshot"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("materialize", flag.ContinueOnError)
	scriptPath := fs.String("script", "", "saved generation dashboard script (dataSource.js)")
	outagePath := fs.String("outage", "", "saved outage API response (JSON)")
	outPath := fs.String("out", "", "output file (default stdout)")
	tz := fs.String("tz", domain.DefaultTimezone, "timezone of the upstream timestamps")
	timeout := fs.Duration("timeout", 10*time.Second, "script evaluation timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if (*scriptPath == "") == (*outagePath == "") {
		fs.Usage()
		return errors.New("exactly one of -script or -outage is required")
	}

	resolver, err := domain.LoadTimeResolver(*tz)
	if err != nil {
		return err
	}

	var doc materialized
	if *scriptPath != "" {
		doc, err = materializeGeneration(*scriptPath, resolver, *timeout)
	} else {
		doc, err = materializeOutage(*outagePath, resolver)
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if *outPath == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(*outPath, data, 0o600); err != nil {
		return err
	}
	log.Printf("wrote %s snapshot %d: %s", doc.Source, doc.Epoch, *outPath)
	return nil
}

func materializeGeneration(path string, resolver *domain.TimeResolver, timeout time.Duration) (materialized, error) {
	script, err := os.ReadFile(path)
	if err != nil {
		return materialized{}, fmt.Errorf("read script: %w", err)
	}

	out, err := sandbox.NewEvaluator(timeout, clockwork.NewRealClock()).Evaluate(context.Background(), string(script))
	if err != nil {
		return materialized{}, err
	}

	snap, err := domain.ParseGeneration([]byte(out))
	if err != nil {
		return materialized{}, err
	}

	epoch, err := resolver.Resolve(snap.DataFechaActualizado, domain.GenerationLayout)
	if err != nil {
		return materialized{}, err
	}
	return materialized{Source: domain.SourceGeneration, Epoch: epoch, Snapshot: snap}, nil
}

func materializeOutage(path string, resolver *domain.TimeResolver) (materialized, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return materialized{}, fmt.Errorf("read outage payload: %w", err)
	}

	snap, err := domain.ParseOutage(payload)
	if err != nil {
		return materialized{}, err
	}

	epoch, err := resolver.Resolve(snap.Timestamp, domain.OutageLayout)
	if err != nil {
		return materialized{}, err
	}
	return materialized{Source: domain.SourceOutage, Epoch: epoch, Snapshot: snap}, nil
}

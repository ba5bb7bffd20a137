package services

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/parsers/fonplata"
)

const datasetCSV = `IDOperacion,fecha_desembolso,fecha_aprobacion,monto_desembolsado,monto_aprobacion,sector_name,pais,tipo_prestamo
OP-1,2020-04-01,2020-01-01,50,100,TRANSPORTE,AR,prestamo
OP-1,2021-10-01,2020-01-01,50,100,TRANSPORTE,AR,prestamo
`

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolio.csv")
	if err := os.WriteFile(path, []byte(datasetCSV), 0o600); err != nil {
		t.Fatalf("writing dataset: %v", err)
	}
	return path
}

func newTestDatasetService(t *testing.T, path string) DatasetService {
	t.Helper()
	return NewDatasetService(
		fonplata.NewParser(),
		&http.Client{Timeout: time.Second},
		path,
		"",
		cache.New(time.Minute, time.Minute),
		time.Minute,
	)
}

func TestDatasetServiceLoadMemoizes(t *testing.T) {
	path := writeDataset(t)
	svc := newTestDatasetService(t, path)

	records, err := svc.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	// Removing the source must not matter while the memoized copy is live.
	if err := os.Remove(path); err != nil {
		t.Fatalf("removing dataset: %v", err)
	}
	if _, err := svc.Load(); err != nil {
		t.Fatalf("memoized Load: %v", err)
	}

	// After invalidation the next load re-reads the now-missing source.
	svc.Invalidate()
	if _, err := svc.Load(); !errors.Is(err, ErrDatasetUnavailable) {
		t.Fatalf("expected ErrDatasetUnavailable after invalidation, got %v", err)
	}
}

func TestDatasetServiceMissingSource(t *testing.T) {
	svc := newTestDatasetService(t, filepath.Join(t.TempDir(), "missing.csv"))
	if _, err := svc.Load(); !errors.Is(err, ErrDatasetUnavailable) {
		t.Fatalf("expected ErrDatasetUnavailable, got %v", err)
	}
}

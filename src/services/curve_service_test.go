package services

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/curvefit"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/logger"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

type stubDatasetService struct {
	records     []models.DisbursementRecord
	err         error
	invalidated bool
}

func (s *stubDatasetService) Load() ([]models.DisbursementRecord, error) {
	return s.records, s.err
}

func (s *stubDatasetService) Invalidate() { s.invalidated = true }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// syntheticRecord builds one operation whose single cohort point lands
// exactly at (k, d) for the given elapsed months, on the requested curve.
func syntheticRecord(op, country string, approval time.Time, k int, params curvefit.Params) models.DisbursementRecord {
	d := curvefit.ModelSigmoid.Eval(params, float64(k))
	return models.DisbursementRecord{
		OperationID:      op,
		ApprovalDate:     approval,
		DisbursementDate: approval.AddDate(0, 0, k*30),
		DisbursedAmount:  100 * d,
		ApprovedAmount:   100,
		Country:          country,
		Sector:           "TRANSPORTE",
		LoanType:         "prestamo",
	}
}

// testRecords yields five operations on the historical seed curve: three in
// AR and two in BR, giving the group-size boundary its two sides.
func testRecords() []models.DisbursementRecord {
	params := curvefit.DefaultInitial(curvefit.ModelSigmoid)
	approval := date("2015-06-01")
	return []models.DisbursementRecord{
		syntheticRecord("OP-1", "AR", approval, 0, params),
		syntheticRecord("OP-2", "AR", approval, 12, params),
		syntheticRecord("OP-3", "AR", approval, 24, params),
		syntheticRecord("OP-4", "BR", approval, 6, params),
		syntheticRecord("OP-5", "BR", approval, 18, params),
	}
}

func seriesNames(result *models.CurveResult) []string {
	names := make([]string, len(result.Series))
	for i, s := range result.Series {
		names[i] = s.Name
	}
	return names
}

func TestBuildSeriesGeneralAndGroups(t *testing.T) {
	svc := NewCurveService(&stubDatasetService{records: testRecords()})

	result, err := svc.BuildSeries(models.FilterSpec{
		GroupColumn:      models.ColumnCountry,
		ShowObservations: true,
	}, curvefit.ModelSigmoid)
	if err != nil {
		t.Fatalf("BuildSeries: %v", err)
	}

	names := seriesNames(result)
	if len(names) != 2 || names[0] != GeneralSeriesName || names[1] != "AR" {
		t.Fatalf("series = %v, want [general AR]", names)
	}
	// BR has only two cohort points and must be silently omitted; that is
	// not a warning condition.
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", result.Warnings)
	}

	general := result.Series[0]
	if len(general.Curve) != 5 {
		t.Errorf("general curve has %d points, want one per distinct k", len(general.Curve))
	}
	for i := 1; i < len(general.Curve); i++ {
		if general.Curve[i].K <= general.Curve[i-1].K {
			t.Fatalf("curve not ordered by k: %v", general.Curve)
		}
	}
	if len(general.Observations) != 5 {
		t.Errorf("observations = %d, want 5", len(general.Observations))
	}
	for _, obs := range general.Observations {
		if obs.OperationID == "" {
			t.Errorf("observation missing operation id: %+v", obs)
		}
	}

	group := result.Series[1]
	if len(group.Curve) != 3 {
		t.Errorf("AR curve has %d points, want 3", len(group.Curve))
	}
}

func TestBuildSeriesGroupBoundary(t *testing.T) {
	params := curvefit.DefaultInitial(curvefit.ModelSigmoid)
	approval := date("2015-06-01")

	// Exactly three points: the group must appear.
	three := []models.DisbursementRecord{
		syntheticRecord("OP-1", "UY", approval, 0, params),
		syntheticRecord("OP-2", "UY", approval, 12, params),
		syntheticRecord("OP-3", "UY", approval, 24, params),
	}
	svc := NewCurveService(&stubDatasetService{records: three})
	result, err := svc.BuildSeries(models.FilterSpec{GroupColumn: models.ColumnCountry}, curvefit.ModelSigmoid)
	if err != nil {
		t.Fatalf("BuildSeries: %v", err)
	}
	if names := seriesNames(result); len(names) != 2 || names[1] != "UY" {
		t.Fatalf("three-point group missing: %v", names)
	}

	// Two points: the group must not appear.
	svc = NewCurveService(&stubDatasetService{records: three[:2]})
	result, err = svc.BuildSeries(models.FilterSpec{GroupColumn: models.ColumnCountry}, curvefit.ModelSigmoid)
	if err != nil {
		t.Fatalf("BuildSeries: %v", err)
	}
	for _, name := range seriesNames(result) {
		if name == "UY" {
			t.Fatalf("two-point group must be omitted, got %v", seriesNames(result))
		}
	}
}

func TestBuildSeriesObservationsOnlyOnRequest(t *testing.T) {
	svc := NewCurveService(&stubDatasetService{records: testRecords()})

	result, err := svc.BuildSeries(models.FilterSpec{}, curvefit.ModelSigmoid)
	if err != nil {
		t.Fatalf("BuildSeries: %v", err)
	}
	if len(result.Series) != 1 {
		t.Fatalf("expected only the general series, got %v", seriesNames(result))
	}
	if result.Series[0].Observations != nil {
		t.Fatalf("observations emitted without being requested")
	}
}

func TestBuildSeriesCategoryFilter(t *testing.T) {
	svc := NewCurveService(&stubDatasetService{records: testRecords()})

	result, err := svc.BuildSeries(models.FilterSpec{
		Category:         &models.CategoryFilter{Column: models.ColumnCountry, AllowedValues: []string{"AR"}},
		ShowObservations: true,
	}, curvefit.ModelSigmoid)
	if err != nil {
		t.Fatalf("BuildSeries: %v", err)
	}
	if len(result.Series) != 1 {
		t.Fatalf("expected 1 series, got %v", seriesNames(result))
	}
	if got := len(result.Series[0].Observations); got != 3 {
		t.Fatalf("filtered observations = %d, want 3", got)
	}
}

func TestBuildSeriesDateRangeFilter(t *testing.T) {
	params := curvefit.DefaultInitial(curvefit.ModelSigmoid)
	records := []models.DisbursementRecord{
		syntheticRecord("OP-1", "AR", date("2014-01-01"), 6, params),
		syntheticRecord("OP-2", "AR", date("2016-01-01"), 12, params),
		syntheticRecord("OP-3", "AR", date("2018-01-01"), 24, params),
	}
	svc := NewCurveService(&stubDatasetService{records: records})

	result, err := svc.BuildSeries(models.FilterSpec{
		MinApprovalDate:  date("2015-01-01"),
		MaxApprovalDate:  date("2016-12-31"),
		ShowObservations: true,
	}, curvefit.ModelSigmoid)
	if err != nil {
		t.Fatalf("BuildSeries: %v", err)
	}
	if len(result.Series) != 1 {
		t.Fatalf("expected the general series, got %v", seriesNames(result))
	}
	obs := result.Series[0].Observations
	if len(obs) != 1 || obs[0].OperationID != "OP-2" {
		t.Fatalf("date range kept %+v, want only OP-2", obs)
	}
}

func TestBuildSeriesEmptyResultWarns(t *testing.T) {
	svc := NewCurveService(&stubDatasetService{records: testRecords()})

	result, err := svc.BuildSeries(models.FilterSpec{
		Category: &models.CategoryFilter{Column: models.ColumnCountry, AllowedValues: []string{"XX"}},
	}, curvefit.ModelSigmoid)
	if err != nil {
		t.Fatalf("BuildSeries: %v", err)
	}
	if len(result.Series) != 0 {
		t.Fatalf("expected no series, got %v", seriesNames(result))
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected an empty-result warning, got %v", result.Warnings)
	}
}

func TestBuildSeriesUnknownColumn(t *testing.T) {
	svc := NewCurveService(&stubDatasetService{records: testRecords()})

	_, err := svc.BuildSeries(models.FilterSpec{GroupColumn: "moneda"}, curvefit.ModelSigmoid)
	if !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}

	_, err = svc.BuildSeries(models.FilterSpec{
		Category: &models.CategoryFilter{Column: "moneda", AllowedValues: []string{"USD"}},
	}, curvefit.ModelSigmoid)
	if !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn for category filter, got %v", err)
	}
}

func TestBuildSeriesDatasetError(t *testing.T) {
	svc := NewCurveService(&stubDatasetService{err: ErrDatasetUnavailable})
	if _, err := svc.BuildSeries(models.FilterSpec{}, curvefit.ModelSigmoid); !errors.Is(err, ErrDatasetUnavailable) {
		t.Fatalf("expected ErrDatasetUnavailable, got %v", err)
	}
}

func TestFilterMetadata(t *testing.T) {
	records := testRecords()
	records = append(records, models.DisbursementRecord{
		OperationID:  "OP-6",
		ApprovalDate: date("2010-02-01"),
		Country:      "PY",
		Sector:       "ENERGIA",
		LoanType:     "garantia",
	})
	svc := NewCurveService(&stubDatasetService{records: records})

	meta, err := svc.FilterMetadata()
	if err != nil {
		t.Fatalf("FilterMetadata: %v", err)
	}

	wantCountries := []string{"AR", "BR", "PY"}
	if len(meta.Countries) != len(wantCountries) {
		t.Fatalf("countries = %v, want %v", meta.Countries, wantCountries)
	}
	for i, c := range wantCountries {
		if meta.Countries[i] != c {
			t.Fatalf("countries = %v, want %v", meta.Countries, wantCountries)
		}
	}
	if meta.MinApprovalDate != "2010-02-01" {
		t.Errorf("min approval = %s, want 2010-02-01", meta.MinApprovalDate)
	}
	if meta.MaxApprovalDate != "2015-06-01" {
		t.Errorf("max approval = %s, want 2015-06-01", meta.MaxApprovalDate)
	}
}

func TestDisplaySectorLabel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"TRANSPORTE", "Transp."},
		{"transporte", "Transp."},
		{" Agua y Saneamiento ", "Agua y San."},
		{"OBRAS URBANAS", "Obras Urbanas"},
	}
	for _, tc := range cases {
		if got := DisplaySectorLabel(tc.in); got != tc.want {
			t.Errorf("DisplaySectorLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildSeriesSectorGroupUsesDisplayLabels(t *testing.T) {
	params := curvefit.DefaultInitial(curvefit.ModelSigmoid)
	approval := date("2015-06-01")
	records := []models.DisbursementRecord{
		syntheticRecord("OP-1", "AR", approval, 0, params),
		syntheticRecord("OP-2", "AR", approval, 12, params),
		syntheticRecord("OP-3", "AR", approval, 24, params),
	}
	svc := NewCurveService(&stubDatasetService{records: records})

	result, err := svc.BuildSeries(models.FilterSpec{GroupColumn: models.ColumnSector}, curvefit.ModelSigmoid)
	if err != nil {
		t.Fatalf("BuildSeries: %v", err)
	}
	names := seriesNames(result)
	if len(names) != 2 || names[1] != "Transp." {
		t.Fatalf("series = %v, want the abbreviated sector label", names)
	}
}

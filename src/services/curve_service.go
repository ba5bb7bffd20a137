// src/services/curve_service.go
package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/curvefit"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/logger"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/models"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/processors"
)

// GeneralSeriesName labels the fit over the whole filtered dataset, as
// opposed to the per-group curves.
const GeneralSeriesName = "general"

// minGroupPoints is the fitting precondition for segmented partitions: three
// parameters need at least three observations. Smaller partitions are omitted
// from the output, not reported as errors.
const minGroupPoints = 3

const warnNoData = "no data matches the selected filters"

// sectorAbbreviations is the display mapping for sector labels, keyed by the
// upper-cased raw value. Unmapped sectors fall back to title casing.
var sectorAbbreviations = map[string]string{
	"AGUA Y SANEAMIENTO":            "Agua y San.",
	"DESARROLLO SOCIAL":             "Des. Social",
	"DESARROLLO PRODUCTIVO":         "Des. Productivo",
	"INFRAESTRUCTURA":               "Infra.",
	"MEDIO AMBIENTE":                "M. Ambiente",
	"TRANSPORTE":                    "Transp.",
	"ENERGIA":                       "Energía",
	"FORTALECIMIENTO INSTITUCIONAL": "Fort. Inst.",
}

var titleCaser = cases.Title(language.Spanish)

type curveServiceImpl struct {
	datasetService DatasetService
	enricher       *processors.EnrichmentProcessor
	aggregator     *processors.CohortProcessor
}

// NewCurveService wires the segmentation driver over the memoized dataset.
func NewCurveService(datasetService DatasetService) CurveService {
	return &curveServiceImpl{
		datasetService: datasetService,
		enricher:       processors.NewEnrichmentProcessor(),
		aggregator:     processors.NewCohortProcessor(),
	}
}

// BuildSeries recomputes the full pipeline for one interaction: filter the
// enriched records, always fit the general curve, and, when a group column is
// selected, fit one curve per distinct value with at least minGroupPoints
// valid cohort points. Failed fits and empty partitions degrade to warnings
// or silent omission; the only hard errors are an unavailable dataset and an
// unknown column name.
func (s *curveServiceImpl) BuildSeries(spec models.FilterSpec, kind curvefit.ModelKind) (*models.CurveResult, error) {
	records, err := s.datasetService.Load()
	if err != nil {
		return nil, err
	}

	enriched := s.enricher.Process(records)
	filtered, err := applyFilter(enriched, spec)
	if err != nil {
		return nil, err
	}

	result := &models.CurveResult{Series: []models.Series{}, Warnings: []string{}}

	general := s.aggregator.Aggregate(filtered)
	if len(general) == 0 {
		result.Warnings = append(result.Warnings, warnNoData)
		return result, nil
	}

	if series, ok := s.fitSeries(GeneralSeriesName, general, kind, spec.ShowObservations, result); ok {
		result.Series = append(result.Series, series)
	}

	if spec.GroupColumn != "" {
		partitions, err := partitionBy(filtered, spec.GroupColumn)
		if err != nil {
			return nil, err
		}

		names := make([]string, 0, len(partitions))
		for name := range partitions {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			points := s.aggregator.Aggregate(partitions[name])
			if len(points) < minGroupPoints {
				continue
			}
			display := name
			if spec.GroupColumn == models.ColumnSector {
				display = DisplaySectorLabel(name)
			}
			if series, ok := s.fitSeries(display, points, kind, spec.ShowObservations, result); ok {
				result.Series = append(result.Series, series)
			}
		}
	}

	return result, nil
}

// fitSeries runs one fit and shapes its output. A failed fit logs, appends an
// advisory warning and reports ok=false so the caller omits the series.
func (s *curveServiceImpl) fitSeries(
	name string,
	points []models.CohortPoint,
	kind curvefit.ModelKind,
	showObservations bool,
	result *models.CurveResult,
) (models.Series, bool) {
	fitPoints := make([]curvefit.Point, len(points))
	for i, p := range points {
		fitPoints[i] = curvefit.Point{K: float64(p.K), D: p.D}
	}

	curve, err := curvefit.Fit(fitPoints, kind, curvefit.DefaultInitial(kind))
	if err != nil {
		logger.L.Warn("Curve fit failed", "series", name, "points", len(points), "model", string(kind), "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("no curve for %q: %s", name, err))
		return models.Series{}, false
	}

	series := models.Series{Name: name, Curve: curveLine(curve, points)}
	if showObservations {
		series.Observations = make([]models.ObservationPoint, len(points))
		for i, p := range points {
			series.Observations[i] = models.ObservationPoint{K: p.K, D: p.D, OperationID: p.OperationID}
		}
	}
	return series, true
}

// curveLine evaluates the fitted curve at the sorted distinct observed k
// values, which is the plotting order the rendering layer expects.
func curveLine(curve curvefit.FittedCurve, points []models.CohortPoint) []models.CurvePoint {
	seen := make(map[int]bool, len(points))
	ks := make([]int, 0, len(points))
	for _, p := range points {
		if !seen[p.K] {
			seen[p.K] = true
			ks = append(ks, p.K)
		}
	}
	sort.Ints(ks)

	line := make([]models.CurvePoint, len(ks))
	for i, k := range ks {
		line[i] = models.CurvePoint{K: k, Hd: curve.Predict(float64(k))}
	}
	return line
}

// FilterMetadata summarizes the loaded dataset for the UI sidebar.
func (s *curveServiceImpl) FilterMetadata() (*models.FilterMetadata, error) {
	records, err := s.datasetService.Load()
	if err != nil {
		return nil, err
	}

	countries := make(map[string]bool)
	sectors := make(map[string]bool)
	loanTypes := make(map[string]bool)
	var minApproval, maxApproval time.Time

	for _, rec := range records {
		if rec.Country != "" {
			countries[rec.Country] = true
		}
		if rec.Sector != "" {
			sectors[rec.Sector] = true
		}
		if rec.LoanType != "" {
			loanTypes[rec.LoanType] = true
		}
		if rec.ApprovalDate.IsZero() {
			continue
		}
		if minApproval.IsZero() || rec.ApprovalDate.Before(minApproval) {
			minApproval = rec.ApprovalDate
		}
		if maxApproval.IsZero() || rec.ApprovalDate.After(maxApproval) {
			maxApproval = rec.ApprovalDate
		}
	}

	meta := &models.FilterMetadata{
		Countries: sortedKeys(countries),
		Sectors:   sortedKeys(sectors),
		LoanTypes: sortedKeys(loanTypes),
	}
	if !minApproval.IsZero() {
		meta.MinApprovalDate = minApproval.Format("2006-01-02")
		meta.MaxApprovalDate = maxApproval.Format("2006-01-02")
	}
	return meta, nil
}

// DisplaySectorLabel maps a raw sector value through the abbreviation table;
// unmapped labels are case-folded to title case.
func DisplaySectorLabel(sector string) string {
	if abbr, ok := sectorAbbreviations[strings.ToUpper(strings.TrimSpace(sector))]; ok {
		return abbr
	}
	return titleCaser.String(strings.ToLower(strings.TrimSpace(sector)))
}

// applyFilter keeps records matching the category allowlist and the inclusive
// approval-date bounds. Zero bounds are open; an empty allowlist disables the
// category filter the same way the UI's select-nothing state does.
func applyFilter(records []models.EnrichedRecord, spec models.FilterSpec) ([]models.EnrichedRecord, error) {
	var allowed map[string]bool
	if spec.Category != nil && len(spec.Category.AllowedValues) > 0 {
		if !models.IsCategoryColumn(spec.Category.Column) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, spec.Category.Column)
		}
		allowed = make(map[string]bool, len(spec.Category.AllowedValues))
		for _, v := range spec.Category.AllowedValues {
			allowed[v] = true
		}
	}

	var filtered []models.EnrichedRecord
	for _, rec := range records {
		if allowed != nil && !allowed[categoryValue(rec, spec.Category.Column)] {
			continue
		}
		if !spec.MinApprovalDate.IsZero() && rec.ApprovalDate.Before(spec.MinApprovalDate) {
			continue
		}
		if !spec.MaxApprovalDate.IsZero() && rec.ApprovalDate.After(spec.MaxApprovalDate) {
			continue
		}
		if (!spec.MinApprovalDate.IsZero() || !spec.MaxApprovalDate.IsZero()) && rec.ApprovalDate.IsZero() {
			// A date-bounded view cannot place records without an approval date.
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered, nil
}

// partitionBy splits records by the distinct values of a categorical column,
// preserving input order within each partition.
func partitionBy(records []models.EnrichedRecord, column string) (map[string][]models.EnrichedRecord, error) {
	if !models.IsCategoryColumn(column) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	partitions := make(map[string][]models.EnrichedRecord)
	for _, rec := range records {
		value := categoryValue(rec, column)
		partitions[value] = append(partitions[value], rec)
	}
	return partitions, nil
}

func categoryValue(rec models.EnrichedRecord, column string) string {
	switch column {
	case models.ColumnCountry:
		return rec.Country
	case models.ColumnSector:
		return rec.Sector
	case models.ColumnLoanType:
		return rec.LoanType
	}
	return ""
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

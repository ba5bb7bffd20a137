// src/services/interfaces.go
package services

import (
	"errors"

	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/curvefit"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/models"
)

// Define common service errors
var (
	ErrDatasetUnavailable = errors.New("dataset unavailable")
	ErrDatasetEmpty       = errors.New("dataset contains no records")
	ErrUnknownColumn      = errors.New("unknown filter column")
)

// DatasetService loads the raw portfolio dataset. The parsed result is the
// only thing worth memoizing; every downstream stage is a cheap pure
// transform recomputed on each interaction.
type DatasetService interface {
	Load() ([]models.DisbursementRecord, error)
	Invalidate()
}

// CurveService runs the full enrichment, aggregation and fitting pipeline
// for one UI interaction.
type CurveService interface {
	BuildSeries(spec models.FilterSpec, kind curvefit.ModelKind) (*models.CurveResult, error)
	FilterMetadata() (*models.FilterMetadata, error)
}

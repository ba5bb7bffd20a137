// src/handlers/curve_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/curvefit"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/logger"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/models"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/services"
)

const approvalDateLayout = "2006-01-02"

type CurveHandler struct {
	curveService   services.CurveService
	datasetService services.DatasetService
}

func NewCurveHandler(curveService services.CurveService, datasetService services.DatasetService) *CurveHandler {
	return &CurveHandler{curveService: curveService, datasetService: datasetService}
}

// HandleGetCurves runs one full recomputation pass for the filters encoded in
// the query string and returns the named series set.
func (h *CurveHandler) HandleGetCurves(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	kind, err := curvefit.ParseModelKind(r.URL.Query().Get("model"))
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	spec, err := parseFilterSpec(r.URL.Query())
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctxLogger.Info("Handling GetCurves",
		"model", string(kind),
		"groupBy", spec.GroupColumn,
		"showObservations", spec.ShowObservations,
	)

	result, err := h.curveService.BuildSeries(spec, kind)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownColumn):
			sendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrDatasetUnavailable), errors.Is(err, services.ErrDatasetEmpty):
			ctxLogger.Error("Dataset not available for curve computation", "error", err)
			sendJSONError(w, "dataset unavailable", http.StatusServiceUnavailable)
		default:
			ctxLogger.Error("Error building curve series", "error", err)
			sendJSONError(w, "error building curve series", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGetFilterMetadata returns the distinct category values and approval
// date span the UI sidebar is built from.
func (h *CurveHandler) HandleGetFilterMetadata(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	meta, err := h.curveService.FilterMetadata()
	if err != nil {
		ctxLogger.Error("Error retrieving filter metadata", "error", err)
		sendJSONError(w, "dataset unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

// HandleReloadDataset drops the memoized dataset so the next interaction
// re-reads the source file.
func (h *CurveHandler) HandleReloadDataset(w http.ResponseWriter, r *http.Request) {
	h.datasetService.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"message": "dataset cache invalidated"})
}

// parseFilterSpec decodes the UI state from query parameters:
// filter_column + filter_values (comma separated), min/max_approval_date
// (YYYY-MM-DD, inclusive), group_by, show_observations.
func parseFilterSpec(q url.Values) (models.FilterSpec, error) {
	var spec models.FilterSpec

	if column := q.Get("filter_column"); column != "" {
		if !models.IsCategoryColumn(column) {
			return spec, fmt.Errorf("invalid filter_column %q", column)
		}
		var values []string
		for _, v := range strings.Split(q.Get("filter_values"), ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		spec.Category = &models.CategoryFilter{Column: column, AllowedValues: values}
	}

	if raw := q.Get("min_approval_date"); raw != "" {
		t, err := time.Parse(approvalDateLayout, raw)
		if err != nil {
			return spec, fmt.Errorf("invalid min_approval_date %q", raw)
		}
		spec.MinApprovalDate = t
	}
	if raw := q.Get("max_approval_date"); raw != "" {
		t, err := time.Parse(approvalDateLayout, raw)
		if err != nil {
			return spec, fmt.Errorf("invalid max_approval_date %q", raw)
		}
		spec.MaxApprovalDate = t
	}
	if !spec.MinApprovalDate.IsZero() && !spec.MaxApprovalDate.IsZero() &&
		spec.MaxApprovalDate.Before(spec.MinApprovalDate) {
		return spec, fmt.Errorf("max_approval_date precedes min_approval_date")
	}

	if groupBy := q.Get("group_by"); groupBy != "" {
		if !models.IsCategoryColumn(groupBy) {
			return spec, fmt.Errorf("invalid group_by %q", groupBy)
		}
		spec.GroupColumn = groupBy
	}

	if raw := q.Get("show_observations"); raw != "" {
		show, err := strconv.ParseBool(raw)
		if err != nil {
			return spec, fmt.Errorf("invalid show_observations %q", raw)
		}
		spec.ShowObservations = show
	}

	return spec, nil
}

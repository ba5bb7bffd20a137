// src/services/dataset_service.go
package services

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/logger"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/models"
	"github.com/ricardosoriagalvarroguerra/Curvas-Desembolsos/src/parsers/fonplata"
)

const (
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

const ckDataset = "dataset:%s"

type datasetServiceImpl struct {
	parser        *fonplata.Parser
	httpClient    *http.Client
	sourcePath    string
	sourceURL     string
	datasetCache  *cache.Cache
	cacheDuration time.Duration
}

// NewDatasetService builds the memoized dataset loader. sourceURL, when
// non-empty, takes precedence over sourcePath; the format is chosen by the
// source's file extension (.csv, anything else is treated as a workbook).
func NewDatasetService(
	parser *fonplata.Parser,
	httpClient *http.Client,
	sourcePath string,
	sourceURL string,
	datasetCache *cache.Cache,
	cacheDuration time.Duration,
) DatasetService {
	if cacheDuration <= 0 {
		cacheDuration = DefaultCacheExpiration
	}
	return &datasetServiceImpl{
		parser:        parser,
		httpClient:    httpClient,
		sourcePath:    sourcePath,
		sourceURL:     sourceURL,
		datasetCache:  datasetCache,
		cacheDuration: cacheDuration,
	}
}

func (s *datasetServiceImpl) sourceKey() string {
	if s.sourceURL != "" {
		return s.sourceURL
	}
	return s.sourcePath
}

// Load returns the parsed dataset, reading the source only when the memoized
// copy for this source identity is absent or expired.
func (s *datasetServiceImpl) Load() ([]models.DisbursementRecord, error) {
	cacheKey := fmt.Sprintf(ckDataset, s.sourceKey())
	if cached, found := s.datasetCache.Get(cacheKey); found {
		return cached.([]models.DisbursementRecord), nil
	}

	records, err := s.fetch()
	if err != nil {
		logger.L.Error("Dataset load failed", "source", s.sourceKey(), "error", err)
		return nil, fmt.Errorf("%w: %s", ErrDatasetUnavailable, err)
	}
	if len(records) == 0 {
		return nil, ErrDatasetEmpty
	}

	logger.L.Info("Dataset loaded", "source", s.sourceKey(), "records", len(records))
	s.datasetCache.Set(cacheKey, records, s.cacheDuration)
	return records, nil
}

// Invalidate drops the memoized dataset so the next interaction re-reads the
// source.
func (s *datasetServiceImpl) Invalidate() {
	s.datasetCache.Delete(fmt.Sprintf(ckDataset, s.sourceKey()))
	logger.L.Info("Dataset cache invalidated", "source", s.sourceKey())
}

func (s *datasetServiceImpl) fetch() ([]models.DisbursementRecord, error) {
	if s.sourceURL != "" {
		resp, err := s.httpClient.Get(s.sourceURL)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", s.sourceURL, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching %s: unexpected status %s", s.sourceURL, resp.Status)
		}
		if isCSV(s.sourceURL) {
			return s.parser.ParseCSV(resp.Body)
		}
		return s.parser.ParseXLSX(resp.Body)
	}

	file, err := os.Open(s.sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.sourcePath, err)
	}
	defer file.Close()
	if isCSV(s.sourcePath) {
		return s.parser.ParseCSV(file)
	}
	return s.parser.ParseXLSX(file)
}

func isCSV(source string) bool {
	return strings.EqualFold(filepath.Ext(source), ".csv")
}

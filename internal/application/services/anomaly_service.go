package services

import (
	"encoding/json"
	"math"

	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/analytics/iforest"
	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
)

// DefaultFeatures are probed when the caller names no features
var DefaultFeatures = []string{"value", "gas_used", "gas_price", "block_number"}

// AnomalyService flags unusual records with batch scoring: every call fits
// a fresh isolation forest on its own input and nothing carries over
// between calls.
type AnomalyService struct {
	opts    iforest.Options
	metrics *metrics.ServiceMetrics
	logger  *zap.Logger
}

// NewAnomalyService creates a new anomaly service
func NewAnomalyService(cfg config.AnomalyConfig, m *metrics.ServiceMetrics, logger *zap.Logger) *AnomalyService {
	if m == nil {
		m = metrics.NewServiceMetrics(nil)
	}
	return &AnomalyService{
		opts: iforest.Options{
			Trees:         cfg.Trees,
			SampleSize:    cfg.SampleSize,
			Contamination: cfg.Contamination,
			Seed:          cfg.Seed,
		},
		metrics: m,
		logger:  logger.With(zap.String("component", "anomaly")),
	}
}

// WithContamination returns a copy of the service using a different
// expected outlier fraction
func (s *AnomalyService) WithContamination(contamination float64) *AnomalyService {
	copied := *s
	copied.opts.Contamination = contamination
	return &copied
}

// Contamination returns the expected outlier fraction
func (s *AnomalyService) Contamination() float64 {
	return s.opts.Contamination
}

// DetectBatch scores records and returns copies of the ones flagged as
// outliers, in input order. With no features given, the defaults present
// in the data are used. Features must be numeric in every record.
func (s *AnomalyService) DetectBatch(records []entities.Record, features []string) []entities.AnomalyRecord {
	result := []entities.AnomalyRecord{}
	if len(records) == 0 {
		s.logger.Warn("No records to analyze")
		return result
	}

	selected := features
	if len(selected) == 0 {
		selected = presentFeatures(records, DefaultFeatures)
		if len(selected) == 0 {
			s.logger.Error("None of the default features are present",
				zap.Strings("defaults", DefaultFeatures),
			)
			return result
		}
	}

	numeric, matrix := numericMatrix(records, selected)
	if len(numeric) == 0 {
		s.logger.Error("None of the selected features are numeric",
			zap.Strings("features", selected),
		)
		return result
	}

	outliers, scores, err := iforest.Outliers(matrix, s.opts)
	if err != nil {
		s.logger.Error("Failed to score batch", zap.Error(err))
		return result
	}

	for _, i := range outliers {
		result = append(result, entities.AnomalyRecord{
			Index:       i,
			Record:      records[i].Copy(),
			AnomalyType: entities.AnomalyTypeUnusual,
			Score:       scores[i],
		})
	}

	s.metrics.AnomalyBatches.Inc()
	s.metrics.AnomaliesFlagged.Add(float64(len(result)))
	s.logger.Info("Batch scored",
		zap.Int("records", len(records)),
		zap.Strings("features", numeric),
		zap.Float64("contamination", s.opts.Contamination),
		zap.Int("anomalies", len(result)),
	)
	return result
}

// DetectTransactions scores normalized transactions on the default features
func (s *AnomalyService) DetectTransactions(txs []entities.Transaction) []entities.AnomalyRecord {
	records := make([]entities.Record, len(txs))
	for i := range txs {
		records[i] = txs[i].Record()
	}
	return s.DetectBatch(records, nil)
}

// presentFeatures keeps the candidates that appear in at least one record
func presentFeatures(records []entities.Record, candidates []string) []string {
	var present []string
	for _, f := range candidates {
		for _, r := range records {
			if _, ok := r[f]; ok {
				present = append(present, f)
				break
			}
		}
	}
	return present
}

// numericMatrix keeps the features that hold a finite number in every
// record and returns them with the row-major feature matrix
func numericMatrix(records []entities.Record, features []string) ([]string, [][]float64) {
	var numeric []string
	columns := make([][]float64, 0, len(features))

	for _, f := range features {
		column := make([]float64, len(records))
		ok := true
		for i, r := range records {
			v, isNum := toFloat(r[f])
			if !isNum {
				ok = false
				break
			}
			column[i] = v
		}
		if ok {
			numeric = append(numeric, f)
			columns = append(columns, column)
		}
	}

	matrix := make([][]float64, len(records))
	for i := range records {
		row := make([]float64, len(columns))
		for j, column := range columns {
			row[j] = column[i]
		}
		matrix[i] = row
	}
	return numeric, matrix
}

func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

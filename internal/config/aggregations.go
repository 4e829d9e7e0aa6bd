package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapfeat/pkg/core"
)

// Metric types accepted in an aggregations file.
const (
	MetricTypeSimple = "simple"
	MetricTypeRatio  = "ratio"
)

// AggregationsFile is the document form of an aggregations file. Requests
// reference partitions and metrics by name.
//
//	partitions:
//	  zone: [zone_key]
//	metrics:
//	  pay_rate: {column: pay_rate}
//	aggregations:
//	  - source: orders
//	    partition: zone
//	    date_column: created_date
//	    ranges: [before_28_days]
//	    metrics:
//	      - metric: pay_rate
//	        aggregations: [mean, max]
type AggregationsFile struct {
	Partitions   map[string][]string  `koanf:"partitions"`
	Metrics      map[string]MetricDoc `koanf:"metrics"`
	Aggregations []RequestDoc         `koanf:"aggregations"`
}

// MetricDoc declares a metric. Column defaults to the metric name.
type MetricDoc struct {
	Type        string `koanf:"type"`
	Column      string `koanf:"column"`
	Nominator   string `koanf:"nominator"`
	Denominator string `koanf:"denominator"`
}

// RequestDoc declares one aggregation request.
type RequestDoc struct {
	Source     string             `koanf:"source"`
	Partition  string             `koanf:"partition"`
	DateColumn string             `koanf:"date_column"`
	Ranges     []string           `koanf:"ranges"`
	Metrics    []MetricRequestDoc `koanf:"metrics"`
}

// MetricRequestDoc names a metric and the aggregations requested for it.
type MetricRequestDoc struct {
	Metric       string   `koanf:"metric"`
	Aggregations []string `koanf:"aggregations"`
}

// LoadAggregations reads and converts the aggregations file at path.
func LoadAggregations(path string) (*core.AggregationsConfig, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading aggregations file %s: %w", path, err)
	}
	return decodeAggregations(k)
}

// ParseAggregations converts an aggregations document held in memory.
func ParseAggregations(data []byte) (*core.AggregationsConfig, error) {
	m, err := yaml.Parser().Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing aggregations: %w", err)
	}
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(m, ""), nil); err != nil {
		return nil, fmt.Errorf("error parsing aggregations: %w", err)
	}
	return decodeAggregations(k)
}

func decodeAggregations(k *koanf.Koanf) (*core.AggregationsConfig, error) {
	var doc AggregationsFile
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("unable to decode aggregations: %w", err)
	}
	return doc.Convert()
}

// Convert resolves named references and returns the typed configuration.
// Every unresolved reference and unknown name is reported.
func (d *AggregationsFile) Convert() (*core.AggregationsConfig, error) {
	var errs []error
	requests := make([]core.AggregateConfig, 0, len(d.Aggregations))

	for i, r := range d.Aggregations {
		where := fmt.Sprintf("aggregations[%d]", i)
		req := core.AggregateConfig{
			Source:     core.FeatureView{Name: strings.TrimSpace(r.Source)},
			DateColumn: core.DateKey{Column: strings.TrimSpace(r.DateColumn)},
		}

		cols, ok := d.Partitions[r.Partition]
		if !ok {
			errs = append(errs, &core.ConfigurationError{
				Field:  where + ".partition",
				Value:  r.Partition,
				Reason: "partition is not declared",
				Hint:   "declare it under partitions",
			})
		}
		req.Partitions = core.PartitionKeys{ShortName: r.Partition, Columns: append([]string(nil), cols...)}

		for _, name := range r.Ranges {
			rng, err := core.ParseRange(name)
			if err != nil {
				errs = append(errs, withField(err, where+".ranges"))
				continue
			}
			req.Ranges = append(req.Ranges, rng)
		}

		for j, m := range r.Metrics {
			mwhere := fmt.Sprintf("%s.metrics[%d]", where, j)
			metric, err := d.metric(m.Metric, mwhere)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			ma := core.MetricAggregationConfig{Metric: metric}
			for _, name := range m.Aggregations {
				agg, err := core.ParseAggregation(name)
				if err != nil {
					errs = append(errs, withField(err, mwhere+".aggregations"))
					continue
				}
				ma.Aggregations = append(ma.Aggregations, agg)
			}
			req.MetricsAggregations = append(req.MetricsAggregations, ma)
		}

		requests = append(requests, req)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return core.NewAggregationsConfig(requests...), nil
}

func (d *AggregationsFile) metric(name, where string) (core.Metric, error) {
	doc, ok := d.Metrics[name]
	if !ok {
		return nil, &core.ConfigurationError{
			Field:  where + ".metric",
			Value:  name,
			Reason: "metric is not declared",
			Hint:   "declare it under metrics",
		}
	}

	switch strings.ToLower(doc.Type) {
	case "", MetricTypeSimple:
		column := doc.Column
		if column == "" {
			column = name
		}
		return core.SimpleMetric{Name: name, Column: column}, nil
	case MetricTypeRatio:
		if doc.Nominator == "" || doc.Denominator == "" {
			return nil, &core.ConfigurationError{
				Field:  "metrics." + name,
				Reason: "ratio metrics need a nominator and a denominator",
			}
		}
		return core.RatioMetric{Name: name, NominatorColumn: doc.Nominator, DenominatorColumn: doc.Denominator}, nil
	default:
		return nil, &core.ConfigurationError{
			Field:  "metrics." + name + ".type",
			Value:  doc.Type,
			Reason: "unknown metric type",
			Hint:   "use simple or ratio",
		}
	}
}

// withField qualifies a ConfigurationError with the location it came from.
func withField(err error, field string) error {
	var cfgErr *core.ConfigurationError
	if errors.As(err, &cfgErr) {
		qualified := *cfgErr
		qualified.Field = field
		return &qualified
	}
	return err
}

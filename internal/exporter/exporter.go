// Package exporter pulls one day of Cost Explorer data and deposits it as a
// dated CSV in the bucket the watcher polls.
package exporter

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"go.uber.org/zap"

	"github.com/tanujbhatia24/capstone-herovired/internal/costs"
	"github.com/tanujbhatia24/capstone-herovired/internal/util"
)

var groupByDimensions = []cetypes.GroupDefinition{
	{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
	{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("REGION")},
}

var costMetrics = []string{"AmortizedCost", "BlendedCost", "UnblendedCost", "UsageQuantity"}

// CostAPI is the slice of the Cost Explorer client the exporter needs.
type CostAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput,
		optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// Uploader is the slice of the object store the exporter needs.
type Uploader interface {
	Put(ctx context.Context, key string, body []byte) error
}

// Exporter fetches daily costs and writes them to the bucket.
type Exporter struct {
	ce     CostAPI
	store  Uploader
	prefix string
	logger *zap.Logger
}

// New builds an Exporter with a real Cost Explorer client.
func New(ctx context.Context, region, prefix string, store Uploader, logger *zap.Logger) (*Exporter, error) {
	awsCfg, err := util.NewAWSConfig(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("create AWS config: %w", err)
	}

	return &Exporter{
		ce:     costexplorer.NewFromConfig(awsCfg),
		store:  store,
		prefix: prefix,
		logger: logger,
	}, nil
}

// NewWithClient builds an Exporter around an existing Cost Explorer client.
func NewWithClient(ce CostAPI, prefix string, store Uploader, logger *zap.Logger) *Exporter {
	return &Exporter{ce: ce, store: store, prefix: prefix, logger: logger}
}

// ExportDay fetches costs for one calendar day grouped by service and region
// and uploads them as <prefix>/<date>.csv. Zero-cost groups are dropped.
// Returns the uploaded key and the number of rows written.
func (e *Exporter) ExportDay(ctx context.Context, day time.Time) (string, int, error) {
	start := day.Format(costs.DateFormat)
	end := day.AddDate(0, 0, 1).Format(costs.DateFormat)

	e.logger.Info("Fetching AWS costs", zap.String("date", start))

	out, err := e.ce.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(start),
			End:   aws.String(end),
		},
		Granularity: cetypes.GranularityDaily,
		Metrics:     costMetrics,
		GroupBy:     groupByDimensions,
	})
	if err != nil {
		return "", 0, fmt.Errorf("get cost and usage for %s: %w", start, err)
	}

	var records []costs.Record
	for _, result := range out.ResultsByTime {
		date := day
		if result.TimePeriod != nil && result.TimePeriod.Start != nil {
			if d, err := time.Parse(costs.DateFormat, *result.TimePeriod.Start); err == nil {
				date = d
			}
		}
		for _, group := range result.Groups {
			rec := normalizeGroup(date, group)
			if rec.AmortizedCost == 0 && rec.UsageQuantity == 0 {
				continue
			}
			records = append(records, rec)
		}
	}

	data, err := costs.MarshalReport(records)
	if err != nil {
		return "", 0, fmt.Errorf("marshal report for %s: %w", start, err)
	}

	key := fmt.Sprintf("%s/%s.csv", e.prefix, start)
	if err := e.store.Put(ctx, key, data); err != nil {
		return "", 0, fmt.Errorf("upload report %s: %w", key, err)
	}

	e.logger.Info("Stored cost report",
		zap.String("key", key),
		zap.Int("rows", len(records)))

	return key, len(records), nil
}

// ExportYesterday exports the previous UTC day, the normal scheduled run.
func (e *Exporter) ExportYesterday(ctx context.Context) (string, int, error) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	return e.ExportDay(ctx, yesterday)
}

// normalizeGroup flattens one Cost Explorer group into a Record. Group keys
// follow the GroupBy order: service first, then region. Missing keys or
// amounts default to "Unknown" and zero.
func normalizeGroup(date time.Time, group cetypes.Group) costs.Record {
	service := "Unknown"
	region := "Unknown"
	if len(group.Keys) > 0 {
		service = costs.ServiceDisplayName(group.Keys[0])
	}
	if len(group.Keys) > 1 {
		region = group.Keys[1]
	}

	return costs.Record{
		Date:          date,
		Service:       service,
		Region:        region,
		AmortizedCost: metricAmount(group.Metrics, "AmortizedCost"),
		BlendedCost:   metricAmount(group.Metrics, "BlendedCost"),
		UnblendedCost: metricAmount(group.Metrics, "UnblendedCost"),
		UsageQuantity: metricAmount(group.Metrics, "UsageQuantity"),
	}
}

func metricAmount(metrics map[string]cetypes.MetricValue, name string) float64 {
	m, ok := metrics[name]
	if !ok || m.Amount == nil {
		return 0
	}
	v, err := strconv.ParseFloat(*m.Amount, 64)
	if err != nil {
		return 0
	}
	return round5(v)
}

// Cost Explorer amounts carry up to 5 decimal places.
func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

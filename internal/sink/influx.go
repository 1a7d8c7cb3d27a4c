// Package sink writes cost records to InfluxDB. Point identity is
// measurement+tags+timestamp, so re-writing the same file after a partial
// failure overwrites instead of double-counting.
package sink

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/tanujbhatia24/capstone-herovired/internal/costs"
)

// Measurement all cost points are written under.
const Measurement = "cost"

const callTimeout = 2 * time.Minute

// Influx writes cost records to one InfluxDB org/bucket.
type Influx struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
	logger   *zap.Logger
}

// NewInflux creates the client and verifies the server is reachable, so a
// misconfigured sink fails at startup instead of looping silently.
func NewInflux(ctx context.Context, url, token, org, bucket string, logger *zap.Logger) (*Influx, error) {
	client := influxdb2.NewClient(url, token)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	ok, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ping influxdb at %s: %w", url, err)
	}
	if !ok {
		client.Close()
		return nil, fmt.Errorf("influxdb at %s is not ready", url)
	}

	return &Influx{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		org:      org,
		bucket:   bucket,
		logger:   logger,
	}, nil
}

// Close releases the underlying HTTP client.
func (i *Influx) Close() {
	i.client.Close()
}

// NewPoint builds the write point for one cost record: tags {service, region},
// the four numeric fields, timestamped by the record's calendar day.
func NewPoint(rec costs.Record) *write.Point {
	return influxdb2.NewPoint(
		Measurement,
		map[string]string{
			"service": rec.Service,
			"region":  rec.Region,
		},
		map[string]interface{}{
			"amortized_cost": rec.AmortizedCost,
			"blended_cost":   rec.BlendedCost,
			"unblended_cost": rec.UnblendedCost,
			"usage_quantity": rec.UsageQuantity,
		},
		rec.Date,
	)
}

// WriteRecords writes all records in one blocking call. An error means none of
// the records should be considered delivered; the caller retries the whole
// file next cycle.
func (i *Influx) WriteRecords(ctx context.Context, records []costs.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*write.Point, len(records))
	for n, rec := range records {
		points[n] = NewPoint(rec)
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if err := i.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write %d points: %w", len(points), err)
	}

	i.logger.Debug("Points written",
		zap.Int("count", len(points)),
		zap.String("bucket", i.bucket))
	return nil
}

// PurgeBefore deletes cost points older than the cutoff. Retention is
// best-effort; a failed purge is logged by the caller and retried next cycle.
func (i *Influx) PurgeBefore(ctx context.Context, cutoff time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	err := i.client.DeleteAPI().DeleteWithName(ctx,
		i.org, i.bucket,
		time.Unix(0, 0), cutoff,
		fmt.Sprintf(`_measurement="%s"`, Measurement))
	if err != nil {
		return fmt.Errorf("delete points before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return nil
}

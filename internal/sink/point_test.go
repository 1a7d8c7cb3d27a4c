package sink

import (
	"testing"
	"time"

	"github.com/tanujbhatia24/capstone-herovired/internal/costs"
)

func TestNewPoint(t *testing.T) {
	rec := costs.Record{
		Date:          time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC),
		Service:       "AmazonEC2",
		Region:        "us-east-1",
		AmortizedCost: 12.5,
		BlendedCost:   12.0,
		UnblendedCost: 11.8,
		UsageQuantity: 100,
	}

	p := NewPoint(rec)

	if p.Name() != Measurement {
		t.Errorf("expected measurement %q, got %q", Measurement, p.Name())
	}
	if !p.Time().Equal(rec.Date) {
		t.Errorf("expected timestamp %v, got %v", rec.Date, p.Time())
	}

	tags := make(map[string]string)
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	// Tag values must equal the row's strings exactly, no normalization.
	if tags["service"] != "AmazonEC2" {
		t.Errorf("expected service tag AmazonEC2, got %q", tags["service"])
	}
	if tags["region"] != "us-east-1" {
		t.Errorf("expected region tag us-east-1, got %q", tags["region"])
	}
	if len(tags) != 2 {
		t.Errorf("expected exactly 2 tags, got %v", tags)
	}

	fields := make(map[string]interface{})
	for _, field := range p.FieldList() {
		fields[field.Key] = field.Value
	}
	want := map[string]float64{
		"amortized_cost": 12.5,
		"blended_cost":   12.0,
		"unblended_cost": 11.8,
		"usage_quantity": 100,
	}
	if len(fields) != len(want) {
		t.Fatalf("expected %d fields, got %v", len(want), fields)
	}
	for name, val := range want {
		got, ok := fields[name].(float64)
		if !ok {
			t.Errorf("field %q missing or not float64: %v", name, fields[name])
			continue
		}
		if got != val {
			t.Errorf("field %q = %v, want %v", name, got, val)
		}
	}
}

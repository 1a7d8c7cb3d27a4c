package costs

import (
	"strings"
	"testing"
	"time"
)

func TestParseReport(t *testing.T) {
	csvData := strings.Join([]string{
		"date,service,region,amortized_cost,blended_cost,unblended_cost,usage_quantity",
		"2025-08-21,AmazonEC2,us-east-1,12.50,12.00,11.80,100",
		"2025-08-21", // header-only fragment, must be skipped
	}, "\n")

	records, skipped, err := ParseReport([]byte(csvData))
	if err != nil {
		t.Fatalf("ParseReport() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if skipped != 1 {
		t.Errorf("expected 1 skipped row, got %d", skipped)
	}

	rec := records[0]
	if rec.Service != "AmazonEC2" {
		t.Errorf("expected service AmazonEC2, got %q", rec.Service)
	}
	if rec.Region != "us-east-1" {
		t.Errorf("expected region us-east-1, got %q", rec.Region)
	}
	if rec.AmortizedCost != 12.50 {
		t.Errorf("expected amortized_cost 12.50, got %v", rec.AmortizedCost)
	}
	if rec.BlendedCost != 12.00 {
		t.Errorf("expected blended_cost 12.00, got %v", rec.BlendedCost)
	}
	if rec.UnblendedCost != 11.80 {
		t.Errorf("expected unblended_cost 11.80, got %v", rec.UnblendedCost)
	}
	if rec.UsageQuantity != 100 {
		t.Errorf("expected usage_quantity 100, got %v", rec.UsageQuantity)
	}

	want := time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)
	if !rec.Date.Equal(want) {
		t.Errorf("expected timestamp %v, got %v", want, rec.Date)
	}
}

func TestParseReport_HeaderOrderIndependent(t *testing.T) {
	csvData := strings.Join([]string{
		"service,usage_quantity,date,region,unblended_cost,amortized_cost,blended_cost",
		"Amazon S3,42,2025-08-20,ap-south-1,0.30,0.50,0.40",
	}, "\n")

	records, skipped, err := ParseReport([]byte(csvData))
	if err != nil {
		t.Fatalf("ParseReport() error = %v", err)
	}
	if skipped != 0 {
		t.Errorf("expected 0 skipped rows, got %d", skipped)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Service != "Amazon S3" || rec.Region != "ap-south-1" {
		t.Errorf("wrong tags: service=%q region=%q", rec.Service, rec.Region)
	}
	if rec.AmortizedCost != 0.50 || rec.UsageQuantity != 42 {
		t.Errorf("wrong fields: amortized=%v usage=%v", rec.AmortizedCost, rec.UsageQuantity)
	}
}

func TestParseReport_MalformedRows(t *testing.T) {
	tests := []struct {
		name        string
		rows        []string
		wantRecords int
		wantSkipped int
	}{
		{
			name: "bad date is skipped",
			rows: []string{
				"not-a-date,AmazonEC2,us-east-1,1,1,1,1",
				"2025-08-21,AmazonEC2,us-east-1,1,1,1,1",
			},
			wantRecords: 1,
			wantSkipped: 1,
		},
		{
			name: "all fields unparseable is skipped",
			rows: []string{
				"2025-08-21,AmazonEC2,us-east-1,x,y,z,w",
			},
			wantRecords: 0,
			wantSkipped: 1,
		},
		{
			name: "single bad field defaults to zero",
			rows: []string{
				"2025-08-21,AmazonEC2,us-east-1,bad,2.0,3.0,4",
			},
			wantRecords: 1,
			wantSkipped: 0,
		},
		{
			name:        "header only",
			rows:        nil,
			wantRecords: 0,
			wantSkipped: 0,
		},
	}

	header := "date,service,region,amortized_cost,blended_cost,unblended_cost,usage_quantity"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			csvData := strings.Join(append([]string{header}, tt.rows...), "\n")
			records, skipped, err := ParseReport([]byte(csvData))
			if err != nil {
				t.Fatalf("ParseReport() error = %v", err)
			}
			if len(records) != tt.wantRecords {
				t.Errorf("expected %d records, got %d", tt.wantRecords, len(records))
			}
			if skipped != tt.wantSkipped {
				t.Errorf("expected %d skipped, got %d", tt.wantSkipped, skipped)
			}
		})
	}
}

func TestParseReport_MissingColumn(t *testing.T) {
	csvData := strings.Join([]string{
		"date,service,region,amortized_cost",
		"2025-08-21,AmazonEC2,us-east-1,1.0",
	}, "\n")

	if _, _, err := ParseReport([]byte(csvData)); err == nil {
		t.Fatal("expected error for missing columns, got nil")
	}
}

func TestParseReport_Empty(t *testing.T) {
	records, skipped, err := ParseReport(nil)
	if err != nil {
		t.Fatalf("ParseReport() error = %v", err)
	}
	if len(records) != 0 || skipped != 0 {
		t.Errorf("expected empty result, got %d records %d skipped", len(records), skipped)
	}
}

func TestMarshalReport_RoundTrip(t *testing.T) {
	in := []Record{
		{
			Date:          time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC),
			Service:       "Amazon EC2",
			Region:        "us-east-1",
			AmortizedCost: 12.5,
			BlendedCost:   12,
			UnblendedCost: 11.8,
			UsageQuantity: 100,
		},
	}

	data, err := MarshalReport(in)
	if err != nil {
		t.Fatalf("MarshalReport() error = %v", err)
	}

	out, skipped, err := ParseReport(data)
	if err != nil {
		t.Fatalf("ParseReport() error = %v", err)
	}
	if skipped != 0 {
		t.Errorf("expected 0 skipped, got %d", skipped)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out))
	}
	if out[0] != in[0] {
		t.Errorf("round trip mismatch:\n in=%+v\nout=%+v", in[0], out[0])
	}
}

func TestServiceDisplayName(t *testing.T) {
	if got := ServiceDisplayName("Amazon Elastic Compute Cloud - Compute"); got != "Amazon EC2" {
		t.Errorf("expected Amazon EC2, got %q", got)
	}
	if got := ServiceDisplayName("AWS Lambda"); got != "AWS Lambda" {
		t.Errorf("unmapped service should pass through, got %q", got)
	}
}

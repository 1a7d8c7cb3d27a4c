// Package costs holds the billing-row domain type and the CSV codec shared by
// the exporter and the watcher.
package costs

import (
	"time"
)

// Record is one row of exported billing data: one service+region combination
// for one calendar day.
type Record struct {
	Date          time.Time
	Service       string
	Region        string
	AmortizedCost float64
	BlendedCost   float64
	UnblendedCost float64
	UsageQuantity float64
}

// DateFormat is the calendar-day format used in CSV rows and object keys.
const DateFormat = "2006-01-02"

// serviceDisplayNames maps Cost Explorer's verbose service names to the short
// names the dashboards use. Unmapped services pass through unchanged.
var serviceDisplayNames = map[string]string{
	"Amazon Elastic Compute Cloud - Compute": "Amazon EC2",
	"Amazon Simple Storage Service":          "Amazon S3",
	"Amazon Elastic Block Store":             "Amazon EBS",
	"Amazon RDS Service":                     "Amazon RDS",
	"Amazon DynamoDB":                        "Amazon DynamoDB",
	"Amazon CloudWatch":                      "Amazon CloudWatch",
}

// ServiceDisplayName returns the short display name for a Cost Explorer
// service dimension value.
func ServiceDisplayName(service string) string {
	if short, ok := serviceDisplayNames[service]; ok {
		return short
	}
	return service
}

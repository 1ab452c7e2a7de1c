package models

import "encoding/json"

// CVERecord is the trimmed CVE JSON 5 record stored for search.
// Partitioned by dateReserved; the id is the CVE id so re-runs overwrite
// rather than duplicate.
type CVERecord struct {
	ID                string          `json:"id"`
	CVEID             string          `json:"cveId"`
	DataType          string          `json:"dataType"`
	DataVersion       string          `json:"dataVersion"`
	AssignerShortName string          `json:"assignerShortName"`
	DatePublished     string          `json:"datePublished"`
	DateReserved      string          `json:"dateReserved"`
	DateUpdated       string          `json:"dateUpdated"`
	Descriptions      json.RawMessage `json:"descriptions,omitempty"`
	Affected          json.RawMessage `json:"affected,omitempty"`
	Metrics           json.RawMessage `json:"metrics,omitempty"`
}

func (d CVERecord) DocumentID() string   { return d.ID }
func (d CVERecord) PartitionKey() string { return d.DateReserved }

// UsageRow is one aggregated line of the hourly running-VM report.
type UsageRow struct {
	SubscriptionName string `json:"subscriptionName"`
	SKU              string `json:"sku"`
	Total            int    `json:"total"`
	Date             string `json:"date,omitempty"`
	Time             string `json:"time,omitempty"`
}

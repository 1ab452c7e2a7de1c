// Package usage turns Resource Graph results into the hourly running-VM
// report rows appended to blob storage.
package usage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/platops/status-reports/internal/models"
)

// Header is the first line of every monthly report blob.
const Header = "subscriptionName,sku,total,date,time\n"

// VM is one running virtual machine.
type VM struct {
	SubscriptionName string `json:"subscriptionName"`
	SKU              string `json:"sku"`
}

// ScaleSet is one VM scale set with its running instance count.
type ScaleSet struct {
	SubscriptionName string `json:"subscriptionName"`
	SKU              string `json:"sku"`
	Total            int    `json:"total"`
}

type key struct {
	subscription string
	sku          string
}

// Aggregate counts VMs and sums scale set totals per (subscription, sku),
// dropping subscriptions whose name starts with any of exclude
// (case-insensitive). Rows are sorted by subscription then sku.
func Aggregate(vms []VM, scaleSets []ScaleSet, exclude []string) []models.UsageRow {
	totals := make(map[key]int)
	for _, vm := range vms {
		if excluded(vm.SubscriptionName, exclude) {
			continue
		}
		totals[key{vm.SubscriptionName, vm.SKU}]++
	}
	for _, ss := range scaleSets {
		if excluded(ss.SubscriptionName, exclude) {
			continue
		}
		totals[key{ss.SubscriptionName, ss.SKU}] += ss.Total
	}

	rows := make([]models.UsageRow, 0, len(totals))
	for k, n := range totals {
		rows = append(rows, models.UsageRow{SubscriptionName: k.subscription, SKU: k.sku, Total: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SubscriptionName != rows[j].SubscriptionName {
			return rows[i].SubscriptionName < rows[j].SubscriptionName
		}
		return rows[i].SKU < rows[j].SKU
	})
	return rows
}

func excluded(subscription string, prefixes []string) bool {
	lower := strings.ToLower(subscription)
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Stamp sets the date (YYYY-MM-DD) and time (HHMM) of every row from the
// run start, in UTC.
func Stamp(rows []models.UsageRow, start time.Time) {
	start = start.UTC()
	date := start.Format("2006-01-02")
	hm := start.Format("1504")
	for i := range rows {
		rows[i].Date = date
		rows[i].Time = hm
	}
}

// CSV renders rows without a header, ready to append after Header.
func CSV(rows []models.UsageRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, r := range rows {
		rec := []string{r.SubscriptionName, r.SKU, strconv.Itoa(r.Total), r.Date, r.Time}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write usage row for %q: %w", r.SubscriptionName, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush usage csv: %w", err)
	}
	return buf.Bytes(), nil
}

// BlobName returns the monthly report blob name, e.g. "2024-11-running.csv".
func BlobName(t time.Time) string {
	return t.UTC().Format("2006-01") + "-running.csv"
}

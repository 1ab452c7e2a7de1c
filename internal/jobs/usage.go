package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/platops/status-reports/internal/config"
	"github.com/platops/status-reports/internal/providers/azure"
	"github.com/platops/status-reports/internal/usage"
)

// GraphQuerier runs Resource Graph queries across readable subscriptions.
type GraphQuerier interface {
	QueryGraph(ctx context.Context, query string) ([]json.RawMessage, error)
}

// Appender appends to a named blob, writing header first on a new blob.
type Appender interface {
	Append(ctx context.Context, blobName string, header, data []byte) (bool, error)
}

// Usage appends the running VM and scale set counts to the monthly report
// blob.
type Usage struct {
	Base
	Graph   GraphQuerier
	Blobs   Appender
	Exclude []string
}

func (j *Usage) Name() string        { return config.JobUsage }
func (j *Usage) Description() string { return "hourly running VM and scale set counts appended to blob storage" }

// Run implements Job.
func (j *Usage) Run(ctx context.Context) (*Result, error) {
	began := time.Now()
	start := j.now()
	log := j.log().With(zap.String("job", j.Name()))

	vmRows, err := j.Graph.QueryGraph(ctx, usage.VMQuery())
	if err != nil {
		return nil, fmt.Errorf("query running vms: %w", err)
	}
	vms, err := azure.DecodeGraphRows[usage.VM](vmRows)
	if err != nil {
		return nil, fmt.Errorf("decode running vms: %w", err)
	}
	ssRows, err := j.Graph.QueryGraph(ctx, usage.ScaleSetQuery())
	if err != nil {
		return nil, fmt.Errorf("query scale sets: %w", err)
	}
	scaleSets, err := azure.DecodeGraphRows[usage.ScaleSet](ssRows)
	if err != nil {
		return nil, fmt.Errorf("decode scale sets: %w", err)
	}

	rows := usage.Aggregate(vms, scaleSets, j.Exclude)
	usage.Stamp(rows, start)
	data, err := usage.CSV(rows)
	if err != nil {
		return nil, err
	}

	name := usage.BlobName(start)
	created, err := j.Blobs.Append(ctx, name, []byte(usage.Header), data)
	if err != nil {
		return nil, err
	}
	log.Info("usage appended",
		zap.String("blob", name),
		zap.Bool("created", created),
		zap.Int("vms", len(vms)),
		zap.Int("scaleSets", len(scaleSets)),
		zap.Int("rows", len(rows)))
	return &Result{Job: j.Name(), Written: len(rows), Duration: time.Since(began)}, nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// DefaultBatchConcurrency bounds in-flight writes in BatchWrite when the
// caller does not choose a limit.
const DefaultBatchConcurrency = 16

// DeleteWhere deletes every item matched by q, addressing each one by its own
// partitionField value. It returns the number of items deleted and stops at
// the first failure.
func DeleteWhere(ctx context.Context, c Container, q Query, partitionField string) (int, error) {
	items, err := c.Query(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("list documents to remove from %q: %w", c.Name(), err)
	}
	deleted := 0
	for _, raw := range items {
		id, pk, err := itemKey(raw, partitionField)
		if err != nil {
			return deleted, fmt.Errorf("remove documents from %q: %w", c.Name(), err)
		}
		if err := c.Delete(ctx, pk, id); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// ReplaceResult counts the effect of ReplaceAll.
type ReplaceResult struct {
	Deleted int
	Written int
}

// ReplaceAll clears the documents matched by q and then creates docs one by
// one. Creation stops at the first failure; documents created before it stay.
func ReplaceAll[D Document](ctx context.Context, c Container, q Query, partitionField string, docs []D) (ReplaceResult, error) {
	var res ReplaceResult
	deleted, err := DeleteWhere(ctx, c, q, partitionField)
	res.Deleted = deleted
	if err != nil {
		return res, err
	}
	for _, d := range docs {
		if err := c.Create(ctx, d); err != nil {
			return res, err
		}
		res.Written++
	}
	return res, nil
}

// BatchOptions configures BatchWrite.
type BatchOptions struct {
	// Concurrency is the maximum number of writes in flight.
	// Zero means DefaultBatchConcurrency.
	Concurrency int64

	// Upsert selects Upsert instead of Create for each document.
	Upsert bool
}

// BatchWrite writes docs concurrently, never exceeding opts.Concurrency
// in-flight requests. Unlike ReplaceAll it does not stop on failure: every
// document is attempted and the individual errors are joined.
func BatchWrite[D Document](ctx context.Context, c Container, docs []D, opts BatchOptions) (int, error) {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultBatchConcurrency
	}
	sem := semaphore.NewWeighted(limit)

	type outcome struct {
		err error
	}
	results := make(chan outcome, len(docs))

	launched := 0
	for _, d := range docs {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled: stop launching, account for the rest.
			results <- outcome{err: fmt.Errorf("batch write to %q: %w", c.Name(), err)}
			launched++
			break
		}
		launched++
		go func(d D) {
			defer sem.Release(1)
			var err error
			if opts.Upsert {
				err = c.Upsert(ctx, d)
			} else {
				err = c.Create(ctx, d)
			}
			results <- outcome{err: err}
		}(d)
	}

	written := 0
	var errs []error
	for i := 0; i < launched; i++ {
		o := <-results
		if o.err != nil {
			errs = append(errs, o.err)
			continue
		}
		written++
	}
	return written, errors.Join(errs...)
}

// Outcome reports what UpsertByNaturalKey did.
type Outcome string

const (
	Created  Outcome = "created"
	Replaced Outcome = "replaced"
	Skipped  Outcome = "skipped"
)

// UpsertByNaturalKey looks a document up by business fields (q) rather than
// its database id:
//
//   - no match: doc is created;
//   - a match for which unchanged returns true: nothing is written;
//   - otherwise the first match is replaced by doc, keeping its id.
//
// Extra matches beyond the first are duplicates from earlier runs and are
// deleted.
func UpsertByNaturalKey(ctx context.Context, c Container, doc Document, q Query, partitionField string, unchanged func(existing json.RawMessage) bool) (Outcome, error) {
	matches, err := c.Query(ctx, q)
	if err != nil {
		return "", fmt.Errorf("look up %q in %q: %w", doc.DocumentID(), c.Name(), err)
	}
	if len(matches) == 0 {
		if err := c.Create(ctx, doc); err != nil {
			return "", err
		}
		return Created, nil
	}

	for _, dup := range matches[1:] {
		id, pk, err := itemKey(dup, partitionField)
		if err != nil {
			return "", err
		}
		if err := c.Delete(ctx, pk, id); err != nil {
			return "", err
		}
	}

	existing := matches[0]
	if unchanged != nil && unchanged(existing) {
		return Skipped, nil
	}
	id, _, err := itemKey(existing, partitionField)
	if err != nil {
		return "", err
	}
	if err := c.Replace(ctx, id, doc); err != nil {
		return "", err
	}
	return Replaced, nil
}

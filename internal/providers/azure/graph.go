package azure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resourcegraph/armresourcegraph"
)

// maxGraphSubscriptions is the most subscriptions one Resource Graph
// request accepts.
const maxGraphSubscriptions = 1000

// QueryGraph runs a Resource Graph query over every subscription the
// credential can read and returns each result row.
func (c *Client) QueryGraph(ctx context.Context, query string) ([]json.RawMessage, error) {
	subs, err := c.Subscriptions(ctx)
	if err != nil {
		return nil, err
	}
	api, err := armresourcegraph.NewClient(c.cred, c.opts.armOptions())
	if err != nil {
		return nil, fmt.Errorf("create resource graph client: %w", err)
	}
	ids := make([]string, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ID)
	}
	return queryGraph(ctx, api, query, ids)
}

// queryGraph splits subscriptions into chunks the API accepts and follows
// skip tokens until every page of every chunk is read.
func queryGraph(ctx context.Context, api resourceGraphAPI, query string, subscriptionIDs []string) ([]json.RawMessage, error) {
	var rows []json.RawMessage
	for start := 0; start < len(subscriptionIDs); start += maxGraphSubscriptions {
		end := min(start+maxGraphSubscriptions, len(subscriptionIDs))
		req := armresourcegraph.QueryRequest{
			Query:         to.Ptr(query),
			Subscriptions: to.SliceOfPtrs(subscriptionIDs[start:end]...),
			Options: &armresourcegraph.QueryRequestOptions{
				ResultFormat: to.Ptr(armresourcegraph.ResultFormatObjectArray),
			},
		}
		for {
			resp, err := api.Resources(ctx, req, nil)
			if err != nil {
				return nil, fmt.Errorf("query resource graph: %w", err)
			}
			page, err := decodeRows(resp.Data)
			if err != nil {
				return nil, err
			}
			rows = append(rows, page...)
			if resp.SkipToken == nil || *resp.SkipToken == "" {
				break
			}
			req.Options.SkipToken = resp.SkipToken
		}
	}
	return rows, nil
}

// decodeRows converts the untyped objectArray payload into raw rows.
func decodeRows(data any) ([]json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode resource graph rows: %w", err)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("resource graph rows are not an object array: %w", err)
	}
	return rows, nil
}

// DecodeGraphRows unmarshals every row into T.
func DecodeGraphRows[T any](rows []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, r := range rows {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

package azure

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
)

// Subscription is a subscription the credential can read.
type Subscription struct {
	ID   string
	Name string
}

// Subscriptions lists every subscription visible to the credential.
func (c *Client) Subscriptions(ctx context.Context) ([]Subscription, error) {
	api, err := armsubscriptions.NewClient(c.cred, c.opts.armOptions())
	if err != nil {
		return nil, fmt.Errorf("create subscriptions client: %w", err)
	}
	return listSubscriptions(ctx, api)
}

func listSubscriptions(ctx context.Context, api subscriptionsAPI) ([]Subscription, error) {
	var out []Subscription
	pager := api.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		for _, s := range page.Value {
			if s == nil || s.SubscriptionID == nil {
				continue
			}
			sub := Subscription{ID: *s.SubscriptionID}
			if s.DisplayName != nil {
				sub.Name = *s.DisplayName
			}
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FilterSubscriptions keeps subscriptions whose display name contains any
// of terms (case-sensitive, as subscription names are upper case by
// convention). No terms keeps everything.
func FilterSubscriptions(subs []Subscription, terms []string) []Subscription {
	if len(terms) == 0 {
		return subs
	}
	var out []Subscription
	for _, s := range subs {
		for _, t := range terms {
			if t != "" && strings.Contains(s.Name, t) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

package pipeline

import (
	"context"

	"gazette/internal/compose"
	"gazette/internal/core"
	"gazette/internal/delivery"
)

// NewsSource provides trending articles for a country.
type NewsSource interface {
	TrendingArticles(ctx context.Context, country string) ([]core.TrendingArticle, error)
}

// Composer drafts newsletter content and marketing emails.
type Composer interface {
	DraftNewsletter(ctx context.Context, articles []core.TrendingArticle) (core.Draft, error)
	RepairDraft(ctx context.Context, raw string) (core.Draft, error)
	DraftCampaign(ctx context.Context, newsletterContent string, variant compose.Variant) (core.EmailDraft, error)
}

// Dispatcher sends the finished campaigns to every user.
type Dispatcher interface {
	DispatchCampaigns(ctx context.Context, subscriber, nonSubscriber core.Campaign) ([]delivery.Result, error)
}

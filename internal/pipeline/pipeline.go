// Package pipeline orchestrates one end-to-end newsletter run: fetch news,
// draft content, repair malformed output, persist, draft the two marketing
// emails, and deliver them.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gazette/internal/compose"
	"gazette/internal/core"
	"gazette/internal/delivery"
	"gazette/internal/logger"
	"gazette/internal/persistence"
)

// Pipeline wires the generation stages into one fixed sequence.
type Pipeline struct {
	news        NewsSource
	composer    Composer
	newsletters persistence.NewsletterRepository
	dispatcher  Dispatcher
	country     string
	log         *slog.Logger
}

// New creates a pipeline with all dependencies.
func New(news NewsSource, composer Composer, newsletters persistence.NewsletterRepository, dispatcher Dispatcher, country string) *Pipeline {
	return &Pipeline{
		news:        news,
		composer:    composer,
		newsletters: newsletters,
		dispatcher:  dispatcher,
		country:     country,
		log:         logger.Get(),
	}
}

// RunResult summarizes a completed pipeline run.
type RunResult struct {
	Newsletter   core.Newsletter
	Delivered    []delivery.Result
	Repaired     bool
	ArticleCount int
}

// Run executes the stages in order: news, draft, repair when the draft is
// malformed, persist, subscriber campaign, non-subscriber campaign, deliver.
// Stage errors abort the run; malformed model output never does.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	state := &core.RunState{
		Country: p.country,
		Extra:   map[string]string{},
	}
	started := time.Now()

	articles, err := p.news.TrendingArticles(ctx, state.Country)
	if err != nil {
		return nil, fmt.Errorf("fetch trending news: %w", err)
	}
	state.Trending = articles
	p.log.Info("Fetched trending news", "country", state.Country, "articles", len(articles))

	if err := p.draftStage(ctx, state); err != nil {
		return nil, err
	}

	newsletter := core.Newsletter{
		ID:        uuid.NewString(),
		Title:     state.NewsletterTitle,
		Content:   state.NewsletterContent,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.newsletters.Create(ctx, &newsletter); err != nil {
		return nil, fmt.Errorf("persist newsletter: %w", err)
	}
	p.log.Info("Persisted newsletter", "id", newsletter.ID, "title", newsletter.Title)

	if err := p.campaignStage(ctx, state); err != nil {
		return nil, err
	}

	results, err := p.dispatcher.DispatchCampaigns(ctx, state.SubscriberEmail, state.NonSubscriberEmail)
	if err != nil {
		return nil, fmt.Errorf("deliver campaigns: %w", err)
	}

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}
	state.Extra["duration"] = time.Since(started).String()
	p.log.Info("Pipeline run completed",
		"newsletter_id", newsletter.ID,
		"recipients", len(results),
		"failed_sends", failed,
		"repaired", state.DraftRepaired,
		"duration", state.Extra["duration"])

	return &RunResult{
		Newsletter:   newsletter,
		Delivered:    results,
		Repaired:     state.DraftRepaired,
		ArticleCount: len(articles),
	}, nil
}

// draftStage produces the newsletter title and content, running the single
// repair attempt if and only if the first draft's envelope was malformed.
func (p *Pipeline) draftStage(ctx context.Context, state *core.RunState) error {
	draft, err := p.composer.DraftNewsletter(ctx, state.Trending)
	if err != nil {
		return err
	}

	state.NewsletterTitle, state.NewsletterContent = compose.ResolveDraft(draft)
	if !draft.Malformed() {
		return nil
	}

	p.log.Warn("Newsletter draft was malformed, attempting repair")
	state.DraftRepaired = true

	repaired, err := p.composer.RepairDraft(ctx, draft.Raw)
	if err != nil {
		return err
	}

	if repaired.Malformed() {
		p.log.Warn("Repair attempt still malformed, publishing raw content")
		state.NewsletterTitle = compose.ApologyTitle
		state.NewsletterContent = repaired.Raw
		return nil
	}

	state.NewsletterTitle = repaired.Parsed.Title
	state.NewsletterContent = repaired.Parsed.Content
	return nil
}

// campaignStage drafts both marketing email variants from the finished
// newsletter content.
func (p *Pipeline) campaignStage(ctx context.Context, state *core.RunState) error {
	subscriberDraft, err := p.composer.DraftCampaign(ctx, state.NewsletterContent, compose.VariantSubscriber)
	if err != nil {
		return err
	}
	state.SubscriberEmail = compose.VariantSubscriber.Resolve(subscriberDraft)

	nonSubscriberDraft, err := p.composer.DraftCampaign(ctx, state.NewsletterContent, compose.VariantNonSubscriber)
	if err != nil {
		return err
	}
	state.NonSubscriberEmail = compose.VariantNonSubscriber.Resolve(nonSubscriberDraft)

	return nil
}

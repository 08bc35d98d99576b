// Package compose turns trending articles into newsletter and marketing email
// drafts via a chat model, with fallback values for output the model refuses
// to format.
package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gazette/internal/core"
	"gazette/internal/llm"
)

const (
	// FallbackTitle is used when the model's newsletter output cannot be
	// decoded and the raw text is published as-is.
	FallbackTitle = "Today's Newsletter"

	// ApologyTitle is used when the repair attempt also fails and the raw
	// text is published under a reader-facing apology.
	ApologyTitle = "Our Apologies: Today's Newsletter"
)

// Variant selects which marketing email a campaign draft targets.
type Variant int

const (
	VariantSubscriber Variant = iota
	VariantNonSubscriber
)

func (v Variant) guidance() string {
	if v == VariantSubscriber {
		return subscriberGuidance
	}
	return nonSubscriberGuidance
}

// FallbackSubject is the canned subject line used when the campaign envelope
// cannot be decoded.
func (v Variant) FallbackSubject() string {
	if v == VariantSubscriber {
		return "Your Gazette Is Here"
	}
	return "See What You're Missing in Today's Gazette"
}

// Resolve turns a campaign draft into a deliverable email, substituting the
// canned subject and the raw text when the envelope was malformed.
func (v Variant) Resolve(draft core.EmailDraft) core.Campaign {
	if draft.Malformed() {
		return core.Campaign{Subject: v.FallbackSubject(), HTML: draft.Raw}
	}
	return core.Campaign{Subject: draft.Parsed.Subject, HTML: draft.Parsed.HTML}
}

// ResolveDraft turns a newsletter draft into publishable title and content,
// substituting the fallback title and the raw model output when the envelope
// was malformed.
func ResolveDraft(draft core.Draft) (string, string) {
	if draft.Malformed() {
		return FallbackTitle, draft.Raw
	}
	return draft.Parsed.Title, draft.Parsed.Content
}

// Composer drafts newsletters and campaign emails with a chat model.
type Composer struct {
	client      llm.ChatClient
	maxArticles int
}

// NewComposer creates a composer that consumes at most maxArticles leading
// articles per draft. Values outside 3..5 fall back to 3.
func NewComposer(client llm.ChatClient, maxArticles int) *Composer {
	if maxArticles < 3 || maxArticles > 5 {
		maxArticles = 3
	}
	return &Composer{client: client, maxArticles: maxArticles}
}

// DraftNewsletter asks the model for a newsletter built from the leading
// articles. A model transport error is returned; a malformed envelope is not
// an error and comes back as a tagged raw draft.
func (c *Composer) DraftNewsletter(ctx context.Context, articles []core.TrendingArticle) (core.Draft, error) {
	limit := len(articles)
	if limit > c.maxArticles {
		limit = c.maxArticles
	}

	var block strings.Builder
	for _, article := range articles[:limit] {
		fmt.Fprintf(&block, "<trending_news> Title: %s \nContent: %s</trending_news>\n", article.Title, article.Content)
	}

	raw, err := c.client.Complete(ctx,
		fmt.Sprintf(writerSystemPrompt, block.String()),
		"Using the given trending news, write a newsletter")
	if err != nil {
		return core.Draft{}, fmt.Errorf("draft newsletter: %w", err)
	}

	return parseDraft(raw), nil
}

// RepairDraft re-prompts the model once with its previous malformed output.
// The caller decides what to do when the result is still malformed.
func (c *Composer) RepairDraft(ctx context.Context, raw string) (core.Draft, error) {
	repaired, err := c.client.Complete(ctx,
		fmt.Sprintf(repairSystemPrompt, raw),
		"Return the corrected JSON object")
	if err != nil {
		return core.Draft{}, fmt.Errorf("repair draft: %w", err)
	}

	return parseDraft(repaired), nil
}

// DraftCampaign asks the model for the marketing email variant built from the
// finished newsletter content.
func (c *Composer) DraftCampaign(ctx context.Context, newsletterContent string, variant Variant) (core.EmailDraft, error) {
	raw, err := c.client.Complete(ctx,
		fmt.Sprintf(campaignSystemPrompt, variant.guidance(), newsletterContent),
		"Write the marketing email for today's newsletter")
	if err != nil {
		return core.EmailDraft{}, fmt.Errorf("draft campaign: %w", err)
	}

	return parseEmailDraft(raw), nil
}

// parseDraft decodes the {Title, Content} envelope. Undecodable output or a
// missing key yields a malformed draft carrying the raw text.
func parseDraft(raw string) core.Draft {
	var envelope struct {
		Title   *string `json:"Title"`
		Content *string `json:"Content"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &envelope); err != nil || envelope.Title == nil || envelope.Content == nil {
		return core.Draft{Raw: raw}
	}
	return core.Draft{Parsed: &core.ParsedDraft{Title: *envelope.Title, Content: *envelope.Content}, Raw: raw}
}

// parseEmailDraft decodes the {Subject, HTML} envelope with the same
// malformed-on-failure shape as parseDraft.
func parseEmailDraft(raw string) core.EmailDraft {
	var envelope struct {
		Subject *string `json:"Subject"`
		HTML    *string `json:"HTML"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &envelope); err != nil || envelope.Subject == nil || envelope.HTML == nil {
		return core.EmailDraft{Raw: raw}
	}
	return core.EmailDraft{Parsed: &core.ParsedEmail{Subject: *envelope.Subject, HTML: *envelope.HTML}, Raw: raw}
}

// stripFences removes a surrounding markdown code fence, which chat models
// add around JSON even when told not to.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

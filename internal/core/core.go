// Package core defines the domain types shared across the gazette pipeline,
// persistence, and HTTP layers.
package core

import "time"

// TrendingArticle is a (title, content) pair pulled from the news provider for
// a single pipeline run. It is never persisted.
type TrendingArticle struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Newsletter is a finished, persisted newsletter issue. Rows are written once
// by the pipeline's persist stage and are read-only afterwards.
type Newsletter struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a registered account. The subscription fields are owned by the
// billing subsystem; the delivery stage only reads Email and IsSubscribed.
type User struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	HashedPassword       string    `json:"-"`
	IsSubscribed         bool      `json:"is_subscribed"`
	StripeCustomerID     string    `json:"-"`
	StripeSubscriptionID string    `json:"-"`
	SubscriptionStatus   string    `json:"subscription_status,omitempty"`
	SubscriptionEnd      time.Time `json:"subscription_end,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Draft is the result of asking the model for a newsletter in the
// {Title, Content} JSON envelope. Either Parsed is set, or the envelope could
// not be decoded and Raw carries the model's verbatim output. Callers branch
// on Malformed instead of comparing title strings.
type Draft struct {
	Parsed *ParsedDraft
	Raw    string
}

// ParsedDraft is a successfully decoded newsletter envelope.
type ParsedDraft struct {
	Title   string
	Content string
}

// Malformed reports whether the model output failed envelope decoding.
func (d Draft) Malformed() bool { return d.Parsed == nil }

// EmailDraft is the result of asking the model for a marketing email in the
// {Subject, HTML} JSON envelope, with the same parsed-or-raw shape as Draft.
type EmailDraft struct {
	Parsed *ParsedEmail
	Raw    string
}

// ParsedEmail is a successfully decoded marketing email envelope.
type ParsedEmail struct {
	Subject string
	HTML    string
}

// Malformed reports whether the model output failed envelope decoding.
func (d EmailDraft) Malformed() bool { return d.Parsed == nil }

// Campaign is a finished marketing email ready for delivery.
type Campaign struct {
	Subject string
	HTML    string
}

// RunState is the single mutable record threaded through every pipeline
// stage. It is created empty at the start of a run, filled in additively, and
// discarded when the run ends; only the newsletter row and the outgoing
// emails outlive it.
type RunState struct {
	Country string

	Trending []TrendingArticle

	NewsletterTitle   string
	NewsletterContent string
	DraftRepaired     bool

	SubscriberEmail    Campaign
	NonSubscriberEmail Campaign

	// Extra holds free-form per-run values that no stage depends on
	// structurally (provider diagnostics, timings).
	Extra map[string]string
}

package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gazette/internal/core"
)

// fakeUserRepo serves a fixed user list; only List is exercised here.
type fakeUserRepo struct {
	users []core.User
	err   error
}

func (f *fakeUserRepo) Create(ctx context.Context, user *core.User) error { return nil }
func (f *fakeUserRepo) Get(ctx context.Context, id string) (*core.User, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeUserRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*core.User, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeUserRepo) List(ctx context.Context) ([]core.User, error) { return f.users, f.err }
func (f *fakeUserRepo) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	return nil
}
func (f *fakeUserRepo) UpdateSubscription(ctx context.Context, customerID, subscriptionID, status string) error {
	return nil
}
func (f *fakeUserRepo) Delete(ctx context.Context, id string) error { return nil }

// sentMail records one dispatched email.
type sentMail struct {
	to      string
	subject string
	body    string
}

// fakeSender records sends and fails for addresses in failFor.
type fakeSender struct {
	sent    []sentMail
	failFor map[string]bool
}

func (f *fakeSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: htmlBody})
	if f.failFor[to] {
		return errors.New("smtp: transient failure")
	}
	return nil
}

var (
	subscriberCampaign    = core.Campaign{Subject: "Sub", HTML: "<p>full story</p>"}
	nonSubscriberCampaign = core.Campaign{Subject: "Tease", HTML: "<p>teaser</p>"}
)

func TestDispatchSendsCorrectVariantExactlyOnce(t *testing.T) {
	users := &fakeUserRepo{users: []core.User{
		{Email: "paid@example.com", IsSubscribed: true},
		{Email: "free@example.com", IsSubscribed: false},
		{Email: "other@example.com", IsSubscribed: true},
	}}
	sender := &fakeSender{}
	dispatcher := NewDispatcher(users, sender)

	results, err := dispatcher.DispatchCampaigns(context.Background(), subscriberCampaign, nonSubscriberCampaign)
	if err != nil {
		t.Fatalf("DispatchCampaigns returned error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if len(sender.sent) != 3 {
		t.Fatalf("Expected 3 sends, got %d", len(sender.sent))
	}

	bySubject := map[string]string{}
	seen := map[string]int{}
	for _, mail := range sender.sent {
		bySubject[mail.to] = mail.subject
		seen[mail.to]++
	}

	for to, count := range seen {
		if count != 1 {
			t.Errorf("Recipient %s received %d emails, want exactly 1", to, count)
		}
	}
	if bySubject["paid@example.com"] != "Sub" || bySubject["other@example.com"] != "Sub" {
		t.Error("Subscribed users must receive the subscriber variant")
	}
	if bySubject["free@example.com"] != "Tease" {
		t.Error("Non-subscribed users must receive the non-subscriber variant")
	}
}

func TestDispatchContinuesAfterFailure(t *testing.T) {
	users := &fakeUserRepo{users: []core.User{
		{Email: "first@example.com"},
		{Email: "broken@example.com"},
		{Email: "last@example.com"},
	}}
	sender := &fakeSender{failFor: map[string]bool{"broken@example.com": true}}
	dispatcher := NewDispatcher(users, sender)

	results, err := dispatcher.DispatchCampaigns(context.Background(), subscriberCampaign, nonSubscriberCampaign)
	if err != nil {
		t.Fatalf("DispatchCampaigns returned error: %v", err)
	}

	if len(sender.sent) != 3 {
		t.Fatalf("A failed send must not stop later deliveries, got %d sends", len(sender.sent))
	}

	var failed []string
	for _, result := range results {
		if result.Err != nil {
			failed = append(failed, result.Email)
		}
	}
	if len(failed) != 1 || failed[0] != "broken@example.com" {
		t.Errorf("Expected exactly broken@example.com to fail, got %v", failed)
	}
}

func TestDispatchPropagatesLoadError(t *testing.T) {
	users := &fakeUserRepo{err: errors.New("db down")}
	dispatcher := NewDispatcher(users, &fakeSender{})

	if _, err := dispatcher.DispatchCampaigns(context.Background(), subscriberCampaign, nonSubscriberCampaign); err == nil {
		t.Fatal("Expected load error to propagate")
	}
}

func TestDispatchWrapsBodyInEmailShell(t *testing.T) {
	users := &fakeUserRepo{users: []core.User{{Email: "a@example.com", IsSubscribed: true}}}
	sender := &fakeSender{}
	dispatcher := NewDispatcher(users, sender)

	if _, err := dispatcher.DispatchCampaigns(context.Background(), subscriberCampaign, nonSubscriberCampaign); err != nil {
		t.Fatalf("DispatchCampaigns returned error: %v", err)
	}

	body := sender.sent[0].body
	if !strings.Contains(body, "<p>full story</p>") {
		t.Error("Wrapped email must contain the campaign body unescaped")
	}
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("Wrapped email must carry the shared shell")
	}
}

func TestWrapHTMLFallsBackToBareBody(t *testing.T) {
	wrapped := WrapHTML("Title", "<b>hello</b>")
	if !strings.Contains(wrapped, "<b>hello</b>") {
		t.Error("WrapHTML must embed the body verbatim")
	}
	if !strings.Contains(wrapped, "Gazette") {
		t.Error("WrapHTML must include the masthead")
	}
}

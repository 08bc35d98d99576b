// Package delivery sends the finished marketing emails to every registered
// user over SMTP.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"gazette/internal/config"
	"gazette/internal/core"
	"gazette/internal/logger"
	"gazette/internal/persistence"
)

// Sender dispatches a single email. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender implements Sender against an SMTP relay with a fixed sender
// identity.
type SMTPSender struct {
	client      *mail.Client
	fromAddress string
	fromName    string
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender builds a sender from configuration.
func NewSMTPSender(cfg config.Email) (*SMTPSender, error) {
	if cfg.SMTP.Host == "" {
		return nil, fmt.Errorf("email.smtp.host is required. Set SMTP_HOST or email.smtp.host in the config file")
	}
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("email.from_address is required")
	}

	options := []mail.Option{
		mail.WithPort(cfg.SMTP.Port),
		mail.WithTimeout(30 * time.Second),
	}
	if cfg.SMTP.Username != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTP.Username),
			mail.WithPassword(cfg.SMTP.Password),
		)
	}
	if cfg.SMTP.TLSEnabled {
		options = append(options, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		options = append(options, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(cfg.SMTP.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPSender{
		client:      client,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}, nil
}

// Send delivers one HTML email synchronously.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromAddress); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}

	return nil
}

// Result records the outcome of one recipient's delivery.
type Result struct {
	Email      string
	Subscribed bool
	Err        error
}

// Dispatcher sends the campaign variants to every user.
type Dispatcher struct {
	users  persistence.UserRepository
	sender Sender
}

// NewDispatcher wires the dispatcher.
func NewDispatcher(users persistence.UserRepository, sender Sender) *Dispatcher {
	return &Dispatcher{users: users, sender: sender}
}

// DispatchCampaigns loads every user and sends the subscriber variant to
// subscribed users and the non-subscriber variant to everyone else, exactly
// once each, sequentially. A failed send is recorded in that recipient's
// Result and does not stop the remaining deliveries.
func (d *Dispatcher) DispatchCampaigns(ctx context.Context, subscriber, nonSubscriber core.Campaign) ([]Result, error) {
	users, err := d.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}

	results := make([]Result, 0, len(users))
	for _, user := range users {
		campaign := nonSubscriber
		if user.IsSubscribed {
			campaign = subscriber
		}

		sendErr := d.sender.Send(ctx, user.Email, campaign.Subject, WrapHTML(campaign.Subject, campaign.HTML))
		if sendErr != nil {
			logger.Error("Failed to deliver campaign email", sendErr, "email", user.Email)
		}

		results = append(results, Result{
			Email:      user.Email,
			Subscribed: user.IsSubscribed,
			Err:        sendErr,
		})
	}

	return results, nil
}

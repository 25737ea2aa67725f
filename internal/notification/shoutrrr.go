package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// PhonePlaceholder in a shoutrrr URL is replaced by the recipient's phone.
const PhonePlaceholder = "{phone}"

const defaultProviderTimeout = 10 * time.Second

// Priority orders notifications for providers that support it.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// PriorityForSeverity maps an alert severity onto a notification priority.
func PriorityForSeverity(severity string) Priority {
	switch Priority(strings.ToLower(severity)) {
	case PriorityCritical:
		return PriorityCritical
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Notification is a provider-neutral outbound message.
type Notification struct {
	Priority  Priority
	Title     string
	Message   string
	Recipient string // substituted for PhonePlaceholder
}

// NewNotification creates a notification without a recipient.
func NewNotification(priority Priority, title, message string) *Notification {
	return &Notification{Priority: priority, Title: title, Message: message}
}

// Provider sends notifications to an external service.
type Provider interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// ShoutrrrProvider delivers through one or more shoutrrr service URLs.
type ShoutrrrProvider struct {
	name    string
	enabled bool
	urls    []string
	timeout time.Duration
}

// NewShoutrrrProvider creates a provider. timeout <= 0 selects 10s.
func NewShoutrrrProvider(name string, enabled bool, urls []string, timeout time.Duration) *ShoutrrrProvider {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &ShoutrrrProvider{
		name:    name,
		enabled: enabled,
		urls:    cleanURLs(urls),
		timeout: timeout,
	}
}

func cleanURLs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, u := range in {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Name returns the provider name.
func (p *ShoutrrrProvider) Name() string { return p.name }

// Enabled reports whether the provider is enabled and has URLs.
func (p *ShoutrrrProvider) Enabled() bool { return p.enabled && len(p.urls) > 0 }

// ValidateConfig checks that every URL parses into a known service.
func (p *ShoutrrrProvider) ValidateConfig() error {
	if !p.enabled {
		return nil
	}
	if len(p.urls) == 0 {
		return fmt.Errorf("provider %s has no service URLs", p.name)
	}
	if _, err := shoutrrr.CreateSender(p.resolve("0")...); err != nil {
		return fmt.Errorf("provider %s: invalid service URL: %w", p.name, err)
	}
	return nil
}

func (p *ShoutrrrProvider) resolve(recipient string) []string {
	out := make([]string, len(p.urls))
	for i, u := range p.urls {
		out[i] = strings.ReplaceAll(u, PhonePlaceholder, recipient)
	}
	return out
}

// Send delivers n to every configured URL. It returns when all services
// answered, the provider timeout elapsed or ctx was cancelled.
func (p *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if !p.Enabled() {
		return fmt.Errorf("provider %s is disabled", p.name)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s delivery aborted: %w", p.name, err)
	}
	urls := p.resolve(n.Recipient)
	for _, u := range urls {
		if strings.Contains(u, PhonePlaceholder) {
			return fmt.Errorf("provider %s: unresolved %s placeholder", p.name, PhonePlaceholder)
		}
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return fmt.Errorf("failed to create %s sender: %w", p.name, err)
	}

	params := types.Params{}
	if n.Title != "" {
		params["title"] = n.Title
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for _, sendErr := range sender.Send(n.Message, &params) {
			if sendErr != nil {
				errs = append(errs, sendErr)
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s delivery failed: %w", p.name, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s delivery aborted: %w", p.name, ctx.Err())
	}
}

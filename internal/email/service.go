// Package email renders CoastCare notification emails and sends them over
// SMTP.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/conf"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/coastcare/coastal-alerts/internal/observability"
	"github.com/wneessen/go-mail"
	"golang.org/x/time/rate"
)

const (
	senderName       = "CoastCare Alerts"
	defaultHost      = "smtp.gmail.com"
	defaultPort      = 587
	defaultRateLimit = 5
	defaultTimeout   = 15 * time.Second

	templateAlert   = "alert"
	templateWelcome = "welcome"
)

// Config holds the SMTP relay settings.
type Config struct {
	Host      string
	Port      int
	Secure    bool
	User      string
	Pass      string
	AppURL    string
	RateLimit float64 // messages per second
	Timeout   time.Duration
}

// ConfigFromSettings maps the email section of the service settings.
func ConfigFromSettings(s *conf.EmailSettings) Config {
	return Config{
		Host:      s.Host,
		Port:      s.Port,
		Secure:    s.Secure,
		User:      s.User,
		Pass:      s.Pass,
		AppURL:    s.AppURL,
		RateLimit: s.RateLimit,
		Timeout:   s.Timeout.Std(),
	}
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.Port <= 0 {
		c.Port = defaultPort
	}
	if c.AppURL == "" {
		c.AppURL = DefaultAppURL
	}
	if c.RateLimit <= 0 {
		c.RateLimit = defaultRateLimit
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Status reports whether the service can send mail.
type Status struct {
	Configured bool `json:"configured"`
	Connected  bool `json:"connected"`
}

// transport is the subset of *mail.Client the service uses.
type transport interface {
	DialWithContext(ctx context.Context) error
	Close() error
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Service sends alert and welcome emails. Every send returns a plain success
// flag; failures are logged, never returned.
type Service struct {
	cfg     Config
	client  transport
	limiter *rate.Limiter
	metrics *observability.Metrics
	log     logger.Logger
}

// NewService builds the SMTP client when both credentials are present. An
// unconfigured service is valid and reports every send as failed.
func NewService(cfg Config, metrics *observability.Metrics, log logger.Logger) (*Service, error) {
	cfg.applyDefaults()
	s := newService(cfg, nil, metrics, log)
	if !s.configured() {
		log.Warn("email service not configured, set SMTP_USER and SMTP_PASS to enable it")
		return s, nil
	}

	opts := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Pass),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	opts = append(opts, mail.WithPort(cfg.Port))

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	s.client = client
	log.Info("email service configured",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.Bool("secure", cfg.Secure))
	return s, nil
}

func newService(cfg Config, client transport, metrics *observability.Metrics, log logger.Logger) *Service {
	cfg.applyDefaults()
	return &Service{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		metrics: metrics,
		log:     log,
	}
}

func (s *Service) configured() bool {
	return s.cfg.User != "" && s.cfg.Pass != ""
}

// Status reports configuration and transport presence.
func (s *Service) Status() Status {
	return Status{Configured: s.configured(), Connected: s.client != nil}
}

// AppURL is the dashboard base URL used in links.
func (s *Service) AppURL() string {
	return s.cfg.AppURL
}

// TestConnection dials the relay and closes the connection without sending.
func (s *Service) TestConnection(ctx context.Context) bool {
	if s.client == nil {
		return false
	}
	if err := s.client.DialWithContext(ctx); err != nil {
		s.log.Error("email service connection failed", logger.Error(err))
		return false
	}
	if err := s.client.Close(); err != nil {
		s.log.Warn("failed to close smtp connection", logger.Error(err))
	}
	s.log.Info("email service connection verified")
	return true
}

// SendAlertEmail sends the alert template to one recipient.
func (s *Service) SendAlertEmail(ctx context.Context, to string, data *alerting.NotificationData) bool {
	tpl, err := RenderAlert(data, s.cfg.AppURL)
	if err != nil {
		s.log.Error("failed to render alert email", logger.Error(err))
		s.count(templateAlert, "error")
		return false
	}
	return s.send(ctx, templateAlert, to, tpl)
}

// SendWelcomeEmail sends the subscription welcome template.
func (s *Service) SendWelcomeEmail(ctx context.Context, to, name string) bool {
	tpl, err := RenderWelcome(name, to, s.cfg.AppURL)
	if err != nil {
		s.log.Error("failed to render welcome email", logger.Error(err))
		s.count(templateWelcome, "error")
		return false
	}
	return s.send(ctx, templateWelcome, to, tpl)
}

func (s *Service) send(ctx context.Context, kind, to string, tpl Template) bool {
	if s.client == nil {
		s.log.Error("email transporter not initialized", logger.String("template", kind))
		s.count(kind, "unconfigured")
		return false
	}

	msg, err := s.buildMessage(to, tpl)
	if err != nil {
		s.log.Error("failed to build email message",
			logger.String("template", kind),
			logger.Error(err))
		s.count(kind, "error")
		return false
	}

	if err := s.limiter.Wait(ctx); err != nil {
		s.log.Warn("email send abandoned while rate limited",
			logger.String("template", kind),
			logger.Error(err))
		s.count(kind, "error")
		return false
	}

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		s.log.Error("failed to send email",
			logger.String("template", kind),
			logger.Error(err))
		s.count(kind, "error")
		return false
	}

	s.log.Info("email sent", logger.String("template", kind))
	s.count(kind, "success")
	return true
}

func (s *Service) buildMessage(to string, tpl Template) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(senderName, s.cfg.User); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(tpl.Subject)
	msg.SetBodyString(mail.TypeTextPlain, tpl.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, tpl.HTML)
	return msg, nil
}

func (s *Service) count(kind, outcome string) {
	if s.metrics != nil {
		s.metrics.EmailSends.WithLabelValues(kind, outcome).Inc()
	}
}

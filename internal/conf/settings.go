// Package conf loads and validates service configuration.
package conf

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/coastcare/coastal-alerts/internal/errors"
)

// Settings is the complete service configuration.
type Settings struct {
	Main         MainSettings         `mapstructure:"main" yaml:"main" json:"main"`
	Log          LogSettings          `mapstructure:"log" yaml:"log" json:"log"`
	Database     DatabaseSettings     `mapstructure:"database" yaml:"database" json:"database"`
	HTTP         HTTPSettings         `mapstructure:"http" yaml:"http" json:"http"`
	Email        EmailSettings        `mapstructure:"email" yaml:"email" json:"email"`
	Notification NotificationSettings `mapstructure:"notification" yaml:"notification" json:"notification"`
	MQTT         MQTTSettings         `mapstructure:"mqtt" yaml:"mqtt" json:"mqtt"`
	Sentry       SentrySettings       `mapstructure:"sentry" yaml:"sentry" json:"sentry"`
}

type MainSettings struct {
	Name     string `mapstructure:"name" yaml:"name" json:"name"`
	TimeZone string `mapstructure:"timezone" yaml:"timezone" json:"timezone"`
}

type LogSettings struct {
	Level string `mapstructure:"level" yaml:"level" json:"level"`
}

// DatabaseSettings selects the store backend. Path is used by sqlite, DSN by mysql.
type DatabaseSettings struct {
	Driver       string `mapstructure:"driver" yaml:"driver" json:"driver"`
	Path         string `mapstructure:"path" yaml:"path" json:"path"`
	DSN          string `mapstructure:"dsn" yaml:"dsn" json:"-"`
	MaxOpenConns int    `mapstructure:"maxopenconns" yaml:"maxopenconns" json:"maxopenconns"`
	Debug        bool   `mapstructure:"debug" yaml:"debug" json:"debug"`
}

type HTTPSettings struct {
	Listen        string   `mapstructure:"listen" yaml:"listen" json:"listen"`
	SessionSecret string   `mapstructure:"sessionsecret" yaml:"sessionsecret" json:"-"`
	ReadTimeout   Duration `mapstructure:"readtimeout" yaml:"readtimeout" json:"readtimeout"`
	WriteTimeout  Duration `mapstructure:"writetimeout" yaml:"writetimeout" json:"writetimeout"`
	// WebsocketRate is the allowed websocket connection attempts per minute per client IP.
	WebsocketRate float64 `mapstructure:"websocketrate" yaml:"websocketrate" json:"websocketrate"`
	Debug         bool    `mapstructure:"debug" yaml:"debug" json:"debug"`
}

// EmailSettings configures the SMTP relay. User and Pass must both be set for
// the email channel to report itself as configured.
type EmailSettings struct {
	Host   string `mapstructure:"host" yaml:"host" json:"host"`
	Port   int    `mapstructure:"port" yaml:"port" json:"port"`
	Secure bool   `mapstructure:"secure" yaml:"secure" json:"secure"`
	User   string `mapstructure:"user" yaml:"user" json:"user"`
	Pass   string `mapstructure:"pass" yaml:"pass" json:"-"`
	// AppURL is the dashboard base URL linked from email templates.
	AppURL    string   `mapstructure:"appurl" yaml:"appurl" json:"appurl"`
	RateLimit float64  `mapstructure:"ratelimit" yaml:"ratelimit" json:"ratelimit"`
	Timeout   Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

type NotificationSettings struct {
	ChannelTimeout Duration         `mapstructure:"channeltimeout" yaml:"channeltimeout" json:"channeltimeout"`
	MaxConcurrency int              `mapstructure:"maxconcurrency" yaml:"maxconcurrency" json:"maxconcurrency"`
	InboxTTL       Duration         `mapstructure:"inboxttl" yaml:"inboxttl" json:"inboxttl"`
	DefaultMethods []string         `mapstructure:"defaultmethods" yaml:"defaultmethods" json:"defaultmethods"`
	SMS            ShoutrrrSettings `mapstructure:"sms" yaml:"sms" json:"sms"`
	Push           ShoutrrrSettings `mapstructure:"push" yaml:"push" json:"push"`
}

// ShoutrrrSettings lists shoutrrr service URLs for a channel. An empty list
// makes the channel log deliveries instead of sending them.
type ShoutrrrSettings struct {
	URLs    []string `mapstructure:"urls" yaml:"urls" json:"-"`
	Timeout Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

type MQTTSettings struct {
	Enabled        bool     `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Broker         string   `mapstructure:"broker" yaml:"broker" json:"broker"`
	ClientID       string   `mapstructure:"clientid" yaml:"clientid" json:"clientid"`
	Username       string   `mapstructure:"username" yaml:"username" json:"username"`
	Password       string   `mapstructure:"password" yaml:"password" json:"-"`
	TopicPrefix    string   `mapstructure:"topicprefix" yaml:"topicprefix" json:"topicprefix"`
	QoS            int      `mapstructure:"qos" yaml:"qos" json:"qos"`
	ConnectTimeout Duration `mapstructure:"connecttimeout" yaml:"connecttimeout" json:"connecttimeout"`
	PublishAlerts  bool     `mapstructure:"publishalerts" yaml:"publishalerts" json:"publishalerts"`
}

type SentrySettings struct {
	DSN         string  `mapstructure:"dsn" yaml:"dsn" json:"-"`
	Environment string  `mapstructure:"environment" yaml:"environment" json:"environment"`
	SampleRate  float64 `mapstructure:"samplerate" yaml:"samplerate" json:"samplerate"`
}

// Supported values for Database.Driver.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

var knownMethods = []string{"email", "web", "sms", "push"}

// Location returns the configured time zone, falling back to local time.
func (s *Settings) Location() *time.Location {
	if s.Main.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Main.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Validate checks settings that would otherwise fail at runtime.
func (s *Settings) Validate() error {
	var errs []error

	switch s.Database.Driver {
	case DriverSQLite:
		if s.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case DriverMySQL:
		if s.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for mysql"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", s.Database.Driver))
	}

	if s.Email.Port <= 0 || s.Email.Port > 65535 {
		errs = append(errs, fmt.Errorf("email.port %d out of range", s.Email.Port))
	}
	if s.Notification.ChannelTimeout <= 0 {
		errs = append(errs, errors.New("notification.channeltimeout must be positive"))
	}
	if s.Notification.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("notification.maxconcurrency must be positive"))
	}
	for _, m := range s.Notification.DefaultMethods {
		if !slices.Contains(knownMethods, strings.ToLower(m)) {
			errs = append(errs, fmt.Errorf("unknown notification method %q in notification.defaultmethods", m))
		}
	}
	if s.MQTT.Enabled && s.MQTT.Broker == "" {
		errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
	}
	if s.MQTT.QoS < 0 || s.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos %d must be 0, 1 or 2", s.MQTT.QoS))
	}
	if s.Main.TimeZone != "" {
		if _, err := time.LoadLocation(s.Main.TimeZone); err != nil {
			errs = append(errs, fmt.Errorf("invalid main.timezone: %w", err))
		}
	}

	return errors.Join(errs...)
}

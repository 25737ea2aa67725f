package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides, e.g. COASTCARE_DATABASE_DRIVER.
const envPrefix = "COASTCARE"

// legacyEnv maps settings keys to the bare environment variable names the
// mail relay has always been configured with.
var legacyEnv = map[string]string{
	"email.host":   "SMTP_HOST",
	"email.port":   "SMTP_PORT",
	"email.secure": "SMTP_SECURE",
	"email.user":   "SMTP_USER",
	"email.pass":   "SMTP_PASS",
	"email.appurl": "APP_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("main.name", "coastcare")
	v.SetDefault("main.timezone", "")
	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "coastcare.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxopenconns", 10)
	v.SetDefault("database.debug", false)

	v.SetDefault("http.listen", ":8080")
	v.SetDefault("http.sessionsecret", "")
	v.SetDefault("http.readtimeout", "15s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.websocketrate", 30)
	v.SetDefault("http.debug", false)

	v.SetDefault("email.host", "smtp.gmail.com")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.secure", false)
	v.SetDefault("email.user", "")
	v.SetDefault("email.pass", "")
	v.SetDefault("email.appurl", "http://localhost:3000")
	v.SetDefault("email.ratelimit", 5)
	v.SetDefault("email.timeout", "15s")

	v.SetDefault("notification.channeltimeout", "10s")
	v.SetDefault("notification.maxconcurrency", 8)
	v.SetDefault("notification.inboxttl", "72h")
	v.SetDefault("notification.defaultmethods", []string{"email", "web"})
	v.SetDefault("notification.sms.urls", []string{})
	v.SetDefault("notification.sms.timeout", "10s")
	v.SetDefault("notification.push.urls", []string{})
	v.SetDefault("notification.push.timeout", "10s")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.clientid", "coastcare")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topicprefix", "coastcare")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.connecttimeout", "10s")
	v.SetDefault("mqtt.publishalerts", true)

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.samplerate", 1.0)
}

// Load reads settings from defaults, an optional YAML file and the
// environment, in increasing order of precedence. An empty path searches the
// working directory and /etc/coastcare for config.yaml and tolerates its absence.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/coastcare")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &settings, nil
}

// Defaults returns settings populated only from built-in defaults.
func Defaults() *Settings {
	v := viper.New()
	setDefaults(v)
	var settings Settings
	if err := v.Unmarshal(&settings, viper.DecodeHook(DurationDecodeHook())); err != nil {
		// Defaults are static; a decode failure is a programming error.
		panic(fmt.Sprintf("conf: invalid defaults: %v", err))
	}
	return &settings
}

// ChannelTimeout returns the per-attempt delivery deadline.
func (s *Settings) ChannelTimeout() time.Duration {
	return s.Notification.ChannelTimeout.Std()
}

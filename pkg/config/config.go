// SPDX-FileCopyrightText: 2026 k0s authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the diskwatch configuration.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/k0sproject/diskwatch/pkg/bytesize"
	"github.com/k0sproject/diskwatch/pkg/disk"
	"github.com/k0sproject/diskwatch/pkg/monitor"
	"github.com/k0sproject/diskwatch/pkg/notify"
)

// EnvPrefix is prepended to environment variables overriding configuration
// keys, e.g. DISKWATCH_MAIL_PASSWORD for mail.password.
const EnvPrefix = "DISKWATCH"

// DefaultPath is the configuration file used if none is given.
const DefaultPath = "diskwatch.yaml"

// Samplers that may be configured.
const (
	SamplerDf     = "df"
	SamplerStatfs = "statfs"
)

// Config is the root of the configuration file.
type Config struct {
	Sampler       string        `mapstructure:"sampler" validate:"oneof=df statfs"`
	SampleTimeout time.Duration `mapstructure:"sampleTimeout" validate:"gt=0"`
	SendTimeout   time.Duration `mapstructure:"sendTimeout" validate:"gt=0"`
	Metrics       MetricsConfig `mapstructure:"metrics"`
	Mail          MailConfig    `mapstructure:"mail"`
	Mounts        []MountConfig `mapstructure:"mounts" validate:"required,min=1,dive"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddress is the host:port to serve /metrics on. Empty disables it.
	ListenAddress string `mapstructure:"listenAddress" validate:"omitempty,hostname_port"`
}

// MailConfig describes the SMTP relay alerts are sent through.
type MailConfig struct {
	Host       string        `mapstructure:"host" validate:"required"`
	Port       int           `mapstructure:"port" validate:"min=1,max=65535"`
	Security   bool          `mapstructure:"security"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	From       string        `mapstructure:"from" validate:"required"`
	To         []string      `mapstructure:"to" validate:"required,min=1"`
	Attempts   uint          `mapstructure:"attempts" validate:"min=1"`
	RetryDelay time.Duration `mapstructure:"retryDelay" validate:"min=0"`
}

// MountConfig is the configuration of a single monitored mount point.
type MountConfig struct {
	Path           string        `mapstructure:"path" validate:"required"`
	MaxPercentUsed *int          `mapstructure:"maxPercentUsed" validate:"required,min=0,max=100"`
	MinFree        string        `mapstructure:"minFree" validate:"required"`
	Schedule       string        `mapstructure:"schedule" validate:"required"`
	AlertInterval  time.Duration `mapstructure:"alertInterval" validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sampler", SamplerDf)
	v.SetDefault("sampleTimeout", monitor.DefaultSampleTimeout)
	v.SetDefault("sendTimeout", monitor.DefaultSendTimeout)
	v.SetDefault("metrics.listenAddress", "")
	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 25)
	v.SetDefault("mail.security", false)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.to", []string{})
	v.SetDefault("mail.attempts", 1)
	v.SetDefault("mail.retryDelay", 5*time.Second)
}

// Load reads the configuration file at path, applies defaults and
// environment overrides, and validates the result. All validation problems
// are reported at once.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks the whole configuration and returns all problems joined
// into a single error.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fieldErr := range fieldErrs {
			errs = append(errs, describe(fieldErr))
		}
	}

	if c.Mail.Host != "" && !govalidator.IsHost(c.Mail.Host) {
		errs = append(errs, fmt.Errorf("mail.host: not a valid host name or IP address: %q", c.Mail.Host))
	}
	if c.Mail.From != "" && !govalidator.IsEmail(c.Mail.From) {
		errs = append(errs, fmt.Errorf("mail.from: not a valid email address: %q", c.Mail.From))
	}
	for i, to := range c.Mail.To {
		if !govalidator.IsEmail(to) {
			errs = append(errs, fmt.Errorf("mail.to[%d]: not a valid email address: %q", i, to))
		}
	}

	for i := range c.Mounts {
		mount := &c.Mounts[i]
		if mount.MinFree != "" {
			if _, err := bytesize.Parse(mount.MinFree); err != nil {
				errs = append(errs, fmt.Errorf("mounts[%d].minFree: %w", i, err))
			}
		}
		if mount.Schedule != "" {
			if _, err := monitor.ParseSchedule(mount.Schedule); err != nil {
				errs = append(errs, fmt.Errorf("mounts[%d].schedule: %w", i, err))
			}
		}
	}

	return errors.Join(errs...)
}

func describe(err validator.FieldError) error {
	field := strings.TrimPrefix(err.Namespace(), "Config.")
	switch err.Tag() {
	case "required":
		return fmt.Errorf("%s: required", field)
	case "oneof":
		return fmt.Errorf("%s: must be one of %s, got %v", field, err.Param(), err.Value())
	case "hostname_port":
		return fmt.Errorf("%s: must be of the form host:port, got %v", field, err.Value())
	default:
		if err.Param() != "" {
			return fmt.Errorf("%s: failed on %s=%s, got %v", field, err.Tag(), err.Param(), err.Value())
		}
		return fmt.Errorf("%s: failed on %s, got %v", field, err.Tag(), err.Value())
	}
}

// Watches converts the mount configurations into watches for the scheduler.
func (c *Config) Watches() ([]monitor.MountWatch, error) {
	watches := make([]monitor.MountWatch, 0, len(c.Mounts))
	for i, mount := range c.Mounts {
		minFree, err := bytesize.Parse(mount.MinFree)
		if err != nil {
			return nil, fmt.Errorf("mounts[%d].minFree: %w", i, err)
		}
		if mount.MaxPercentUsed == nil {
			return nil, fmt.Errorf("mounts[%d].maxPercentUsed: required", i)
		}

		watches = append(watches, monitor.MountWatch{
			Path:           mount.Path,
			MaxPercentUsed: *mount.MaxPercentUsed,
			MinFreeBytes:   minFree,
			MinFree:        strings.TrimSpace(mount.MinFree),
			Schedule:       mount.Schedule,
			AlertCooldown:  mount.AlertInterval,
		})
	}

	return watches, nil
}

// NewSampler returns the configured disk sampler.
func (c *Config) NewSampler() (disk.Sampler, error) {
	switch c.Sampler {
	case SamplerDf, "":
		return &disk.DfSampler{}, nil
	case SamplerStatfs:
		return &disk.StatfsSampler{}, nil
	default:
		return nil, fmt.Errorf("unknown sampler %q", c.Sampler)
	}
}

// SMTP returns the settings of the SMTP sink.
func (c *Config) SMTP() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.Mail.Host,
		Port:     c.Mail.Port,
		Security: c.Mail.Security,
		Username: c.Mail.Username,
		Password: c.Mail.Password,
		From:     c.Mail.From,
		To:       c.Mail.To,
		Timeout:  c.SendTimeout,
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Monitor struct {
		LeakFlowThreshold float64        `yaml:"leak_flow_threshold"`
		LeakTimeThreshold *time.Duration `yaml:"leak_time_threshold"`
		UnitPrice         string         `yaml:"unit_price"`
	} `yaml:"monitor"`
	Source struct {
		Kind                string         `yaml:"kind"`
		SerialPort          string         `yaml:"serial_port"`
		BaudRate            int            `yaml:"baud_rate"`
		SettleDelay         time.Duration  `yaml:"settle_delay"`
		FallbackToSynthetic *bool          `yaml:"fallback_to_synthetic"`
		Tick                time.Duration  `yaml:"tick"`
		ProfileSwitch       time.Duration  `yaml:"profile_switch"`
		ErrorBackoff        *time.Duration `yaml:"error_backoff"`
	} `yaml:"source"`
	HTTP struct {
		Listen string `yaml:"listen"`
	} `yaml:"http"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		APIBase  string `yaml:"api_base"`
	} `yaml:"telegram"`
	Schedule struct {
		StatusCron       string `yaml:"status_cron"`
		LeakReminderCron string `yaml:"leak_reminder_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs error
	floatVar := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = f
		}
	}
	durationVar := func(name string, dst **time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = &d
		}
	}
	stringVar := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	stringVar("SOURCE_KIND", &c.Source.Kind)
	if v := os.Getenv("SIMULATE"); v != "" {
		simulate, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("SIMULATE: %w", err))
		} else if simulate {
			c.Source.Kind = "synthetic"
		} else if c.Source.Kind == "" || c.Source.Kind == "synthetic" {
			c.Source.Kind = "serial"
		}
	}
	stringVar("SERIAL_PORT", &c.Source.SerialPort)
	if v := os.Getenv("BAUD_RATE"); v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("BAUD_RATE: %w", err))
		} else {
			c.Source.BaudRate = baud
		}
	}
	floatVar("LEAK_FLOW_THRESHOLD", &c.Monitor.LeakFlowThreshold)
	durationVar("LEAK_TIME_THRESHOLD", &c.Monitor.LeakTimeThreshold)
	stringVar("UNIT_PRICE", &c.Monitor.UnitPrice)
	stringVar("HTTP_LISTEN", &c.HTTP.Listen)
	stringVar("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	stringVar("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	stringVar("SQLITE_PATH", &c.Database.SQLitePath)
	stringVar("LOG_LEVEL", &c.Log.Level)
	stringVar("HTTPS_PROXY", &c.Proxy)
	return errs
}

func (c *Config) applyDefaults() {
	if c.Monitor.LeakFlowThreshold == 0 {
		c.Monitor.LeakFlowThreshold = 0.2
	}
	// An explicit 0s is kept: it raises a leak on the first leak-range reading.
	if c.Monitor.LeakTimeThreshold == nil {
		leakTime := 30 * time.Second
		c.Monitor.LeakTimeThreshold = &leakTime
	}
	if c.Monitor.UnitPrice == "" {
		c.Monitor.UnitPrice = "0.35"
	}
	if c.Source.Kind == "" {
		c.Source.Kind = "synthetic"
	}
	if c.Source.SerialPort == "" {
		c.Source.SerialPort = "/dev/ttyACM0"
	}
	if c.Source.BaudRate == 0 {
		c.Source.BaudRate = 9600
	}
	if c.Source.SettleDelay == 0 {
		c.Source.SettleDelay = 2 * time.Second
	}
	if c.Source.FallbackToSynthetic == nil {
		fallback := true
		c.Source.FallbackToSynthetic = &fallback
	}
	if c.Source.Tick == 0 {
		c.Source.Tick = time.Second
	}
	if c.Source.ProfileSwitch == 0 {
		c.Source.ProfileSwitch = 15 * time.Second
	}
	if c.Source.ErrorBackoff == nil {
		backoff := time.Second
		c.Source.ErrorBackoff = &backoff
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = "0.0.0.0:9090"
	}
	if c.Telegram.APIBase == "" {
		c.Telegram.APIBase = "https://api.telegram.org"
	}
	if c.Schedule.StatusCron == "" {
		c.Schedule.StatusCron = "0 */5 * * * *"
	}
	if c.Schedule.LeakReminderCron == "" {
		c.Schedule.LeakReminderCron = "0 */10 * * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/flow_sentinel.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// UnitPriceDecimal returns the configured unit price. Call Validate first.
func (c *Config) UnitPriceDecimal() decimal.Decimal {
	return decimal.RequireFromString(c.Monitor.UnitPrice)
}

// TelegramEnabled reports whether leak alerts should be pushed.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs error
	if c.Monitor.LeakFlowThreshold <= 0 {
		errs = multierr.Append(errs, errors.New("monitor.leak_flow_threshold must be positive"))
	}
	if *c.Monitor.LeakTimeThreshold < 0 {
		errs = multierr.Append(errs, errors.New("monitor.leak_time_threshold must not be negative"))
	}
	if price, err := decimal.NewFromString(c.Monitor.UnitPrice); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("monitor.unit_price: %w", err))
	} else if price.IsNegative() {
		errs = multierr.Append(errs, errors.New("monitor.unit_price must not be negative"))
	}

	switch c.Source.Kind {
	case "synthetic":
	case "serial":
		if c.Source.SerialPort == "" {
			errs = multierr.Append(errs, errors.New("source.serial_port is required for the serial source"))
		}
		if c.Source.BaudRate <= 0 {
			errs = multierr.Append(errs, errors.New("source.baud_rate must be positive"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("source.kind %q is not one of serial, synthetic", c.Source.Kind))
	}
	if c.Source.Tick <= 0 {
		errs = multierr.Append(errs, errors.New("source.tick must be positive"))
	}
	if *c.Source.ErrorBackoff < 0 {
		errs = multierr.Append(errs, errors.New("source.error_backoff must not be negative"))
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.StatusCron); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("schedule.status_cron: %w", err))
	}
	if _, err := parser.Parse(c.Schedule.LeakReminderCron); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("schedule.leak_reminder_cron: %w", err))
	}

	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		errs = multierr.Append(errs, errors.New("telegram.bot_token and telegram.chat_id must be set together"))
	}
	return errs
}

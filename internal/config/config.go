package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"github.com/Guilhem-Bonnet/series-notifier/internal/adapters/notion"
	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
)

const (
	EnvPrefix = "SERIES"

	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

type Config struct {
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Notion    NotionConfig    `mapstructure:"notion"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Digest    DigestConfig    `mapstructure:"digest"`
	// Subscriptions: rappel quotidien des abonnements à payer.
	Subscriptions SubscriptionsConfig `mapstructure:"subscriptions"`
	Timezone      string              `mapstructure:"timezone"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Log           LogConfig           `mapstructure:"log"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	UserID int64  `mapstructure:"user_id"`
	// PollTimeout en secondes.
	PollTimeout int  `mapstructure:"poll_timeout"`
	Debug       bool `mapstructure:"debug"`
}

type NotionConfig struct {
	Token      string            `mapstructure:"token"`
	DatabaseID string            `mapstructure:"database_id"`
	BaseURL    string            `mapstructure:"base_url"`
	Version    string            `mapstructure:"version"`
	PageSize   int               `mapstructure:"page_size"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	Properties notion.Properties `mapstructure:"properties"`
	Values     notion.Values     `mapstructure:"values"`
}

// MirrorConfig: Enabled=false donne le déploiement à un seul magasin.
type MirrorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	Path    string `mapstructure:"path"`
}

type ReconcileConfig struct {
	WriteBack string   `mapstructure:"writeback"`
	Times     []string `mapstructure:"times"`
}

type DigestConfig struct {
	Times  []string `mapstructure:"times"`
	Window string   `mapstructure:"window"`
	// ReconcileFirst lance une passe complète avant chaque digest.
	ReconcileFirst bool `mapstructure:"reconcile_first"`
}

type SubscriptionsConfig struct {
	Enabled    bool                          `mapstructure:"enabled"`
	DatabaseID string                        `mapstructure:"database_id"`
	Times      []string                      `mapstructure:"times"`
	Properties notion.SubscriptionProperties `mapstructure:"properties"`
}

type HTTPConfig struct {
	// Addr vide: API d'administration désactivée.
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// legacyEnv: noms de variables historiques encore acceptés.
var legacyEnv = map[string]string{
	"notion.token":       "API_SECRET",
	"notion.database_id": "SERIES_ID",
	"telegram.token":     "BOT_TOKEN",
	"telegram.user_id":   "MY_ID",

	"subscriptions.database_id": "SUBS_ID",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.user_id", 0)
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("telegram.debug", false)

	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("notion.base_url", notion.DefaultBaseURL)
	v.SetDefault("notion.version", notion.DefaultVersion)
	v.SetDefault("notion.page_size", notion.DefaultPageSize)
	v.SetDefault("notion.timeout", "15s")

	p := notion.DefaultProperties()
	v.SetDefault("notion.properties.title", p.Title)
	v.SetDefault("notion.properties.status", p.Status)
	v.SetDefault("notion.properties.season", p.Season)
	v.SetDefault("notion.properties.finished", p.Finished)
	v.SetDefault("notion.properties.release_date", p.ReleaseDate)
	v.SetDefault("notion.properties.next_episode_date", p.NextEpisodeDate)
	v.SetDefault("notion.properties.kind", p.Kind)

	vals := notion.DefaultValues()
	v.SetDefault("notion.values.watching", vals.Watching)
	v.SetDefault("notion.values.want_to_watch", vals.WantToWatch)
	v.SetDefault("notion.values.watched", vals.Watched)
	v.SetDefault("notion.values.finished_yes", vals.FinishedYes)
	v.SetDefault("notion.values.finished_no", vals.FinishedNo)
	v.SetDefault("notion.values.anime", vals.Anime)
	v.SetDefault("notion.values.series", vals.Series)
	v.SetDefault("notion.values.cartoon", vals.Cartoon)

	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.driver", DriverSQLite)
	v.SetDefault("mirror.path", "series.db")

	v.SetDefault("reconcile.writeback", string(domain.WriteBackPatch))
	v.SetDefault("reconcile.times", []string{"07:00", "13:00", "19:00"})

	v.SetDefault("digest.times", []string{"11:15"})
	v.SetDefault("digest.window", string(domain.WindowToday))
	v.SetDefault("digest.reconcile_first", true)

	v.SetDefault("subscriptions.enabled", false)
	v.SetDefault("subscriptions.database_id", "")
	v.SetDefault("subscriptions.times", []string{"09:00"})
	sp := notion.DefaultSubscriptionProperties()
	v.SetDefault("subscriptions.properties.title", sp.Title)
	v.SetDefault("subscriptions.properties.type", sp.Type)
	v.SetDefault("subscriptions.properties.price", sp.Price)
	v.SetDefault("subscriptions.properties.total_pay", sp.TotalPay)
	v.SetDefault("subscriptions.properties.period", sp.Period)
	v.SetDefault("subscriptions.properties.charge_date", sp.ChargeDate)
	v.SetDefault("subscriptions.properties.family", sp.Family)
	v.SetDefault("subscriptions.properties.yearly", sp.Yearly)

	v.SetDefault("timezone", "Local")
	v.SetDefault("http.addr", "127.0.0.1:8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "series-notifier")
}

// Load lit le fichier YAML (path explicite, sinon ./config.yaml puis ~/.config/series-notifier)
// puis applique les variables d'environnement SERIES_* et les noms historiques.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := defaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// Validate contrôle la configuration commune à toutes les commandes.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Notion.Token) == "" {
		errs = append(errs, errors.New("notion.token is required"))
	}
	if strings.TrimSpace(c.Notion.DatabaseID) == "" {
		errs = append(errs, errors.New("notion.database_id is required"))
	}
	if c.Mirror.Enabled {
		switch c.Mirror.Driver {
		case DriverSQLite, DriverBolt:
		default:
			errs = append(errs, fmt.Errorf("mirror.driver must be %q or %q, got %q", DriverSQLite, DriverBolt, c.Mirror.Driver))
		}
		if strings.TrimSpace(c.Mirror.Path) == "" {
			errs = append(errs, errors.New("mirror.path is required when the mirror is enabled"))
		}
	}
	switch domain.WriteBackStrategy(c.Reconcile.WriteBack) {
	case domain.WriteBackPatch, domain.WriteBackReimport:
	default:
		errs = append(errs, fmt.Errorf("reconcile.writeback must be %q or %q, got %q", domain.WriteBackPatch, domain.WriteBackReimport, c.Reconcile.WriteBack))
	}
	if _, err := domain.ParseClockTimes(c.Reconcile.Times); err != nil {
		errs = append(errs, fmt.Errorf("reconcile.times: %w", err))
	}
	if _, err := domain.ParseClockTimes(c.Digest.Times); err != nil {
		errs = append(errs, fmt.Errorf("digest.times: %w", err))
	}
	if _, err := domain.ParseWindow(c.Digest.Window); err != nil {
		errs = append(errs, fmt.Errorf("digest.window: %w", err))
	}
	if c.Subscriptions.Enabled {
		if strings.TrimSpace(c.Subscriptions.DatabaseID) == "" {
			errs = append(errs, errors.New("subscriptions.database_id is required when subscriptions are enabled"))
		}
		if _, err := domain.ParseClockTimes(c.Subscriptions.Times); err != nil {
			errs = append(errs, fmt.Errorf("subscriptions.times: %w", err))
		}
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	return errors.Join(errs...)
}

// ValidateBot ajoute les exigences du bot (serve).
func (c *Config) ValidateBot() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if c.Telegram.UserID == 0 {
		errs = append(errs, errors.New("telegram.user_id is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *Config) NotionOptions() notion.Options {
	return notion.Options{
		Token:      c.Notion.Token,
		DatabaseID: c.Notion.DatabaseID,
		BaseURL:    c.Notion.BaseURL,
		Version:    c.Notion.Version,
		PageSize:   c.Notion.PageSize,
		Timeout:    c.Notion.Timeout,
		Properties: c.Notion.Properties,
		Values:     c.Notion.Values,
		Subscriptions: notion.SubscriptionOptions{
			DatabaseID: c.Subscriptions.DatabaseID,
			Properties: c.Subscriptions.Properties,
		},
	}
}

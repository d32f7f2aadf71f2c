package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/siting-cli/internal/store"
	"github.com/sells-group/siting-cli/internal/suitability"
	"github.com/sells-group/siting-cli/internal/terrain"
)

// DateLayout is the layout of solar season dates.
const DateLayout = "2006-01-02"

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Workspace WorkspaceConfig `yaml:"workspace" mapstructure:"workspace"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// WorkspaceConfig locates the analysis workspace.
type WorkspaceConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// AnalysisConfig holds the suitability model parameters.
type AnalysisConfig struct {
	Weights         map[string]float64 `yaml:"weights" mapstructure:"weights"`
	Threshold       float64            `yaml:"threshold" mapstructure:"threshold"`
	MinAreaHa       float64            `yaml:"min_area_ha" mapstructure:"min_area_ha"`
	QuantileClasses int                `yaml:"quantile_classes" mapstructure:"quantile_classes"`
	DistanceCeiling float64            `yaml:"distance_ceiling" mapstructure:"distance_ceiling"`
	Tables          TablesConfig       `yaml:"tables" mapstructure:"tables"`
	Solar           SolarConfig        `yaml:"solar" mapstructure:"solar"`
}

// TablesConfig holds breakpoint tables as [lo, hi, score] triples. An empty
// table selects the built-in default.
type TablesConfig struct {
	Slope    [][]float64 `yaml:"slope" mapstructure:"slope"`
	Aspect   [][]float64 `yaml:"aspect" mapstructure:"aspect"`
	Distance [][]float64 `yaml:"distance" mapstructure:"distance"`
}

// SolarConfig configures the clear-sky insolation model.
type SolarConfig struct {
	Latitude       float64 `yaml:"latitude" mapstructure:"latitude"`
	StartDate      string  `yaml:"start_date" mapstructure:"start_date"`
	EndDate        string  `yaml:"end_date" mapstructure:"end_date"`
	DayInterval    int     `yaml:"day_interval" mapstructure:"day_interval"`
	HourInterval   float64 `yaml:"hour_interval" mapstructure:"hour_interval"`
	Transmissivity float64 `yaml:"transmissivity" mapstructure:"transmissivity"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SITING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "siting.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("workspace.root", ".")
	v.SetDefault("analysis.weights", toAny(suitability.DefaultWeights()))
	v.SetDefault("analysis.threshold", 4.5)
	v.SetDefault("analysis.min_area_ha", 2.0)
	v.SetDefault("analysis.quantile_classes", 5)
	v.SetDefault("analysis.distance_ceiling", 100000.0)
	v.SetDefault("analysis.solar.latitude", 48.5)
	v.SetDefault("analysis.solar.start_date", "2020-06-01")
	v.SetDefault("analysis.solar.end_date", "2020-08-31")
	v.SetDefault("analysis.solar.day_interval", 14)
	v.SetDefault("analysis.solar.hour_interval", 2.0)
	v.SetDefault("analysis.solar.transmissivity", 0.5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func toAny(w suitability.Weights) map[string]any {
	out := make(map[string]any, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Validate checks the analysis parameters for the given mode ("analyze",
// "serve", "runs"). Analysis problems are reported together as a
// *suitability.ConfigurationError.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "analyze":
		return c.validateAnalysis(errs)
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
	case "runs":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateAnalysis(errs []string) error {
	a := c.Analysis
	if err := a.WeightSet().Validate(suitability.Criteria); err != nil {
		errs = append(errs, problems(err)...)
	}
	if _, err := a.SlopeTable(); err != nil {
		errs = append(errs, "analysis.tables.slope: "+strings.Join(problems(err), ", "))
	}
	if _, err := a.AspectTable(); err != nil {
		errs = append(errs, "analysis.tables.aspect: "+strings.Join(problems(err), ", "))
	}
	if _, err := a.DistanceTable(); err != nil {
		errs = append(errs, "analysis.tables.distance: "+strings.Join(problems(err), ", "))
	}
	if math.IsNaN(a.Threshold) || math.IsInf(a.Threshold, 0) {
		errs = append(errs, "analysis.threshold must be finite")
	}
	if !(a.MinAreaHa >= 0) || math.IsInf(a.MinAreaHa, 0) {
		errs = append(errs, "analysis.min_area_ha must be >= 0")
	}
	if a.QuantileClasses < 2 {
		errs = append(errs, "analysis.quantile_classes must be >= 2")
	}
	if !(a.DistanceCeiling > 0) {
		errs = append(errs, "analysis.distance_ceiling must be > 0")
	}
	if _, err := a.SolarParams(); err != nil {
		errs = append(errs, "analysis.solar: "+err.Error())
	}

	if len(errs) > 0 {
		return &suitability.ConfigurationError{Problems: errs}
	}
	return nil
}

func problems(err error) []string {
	var ce *suitability.ConfigurationError
	if errors.As(err, &ce) {
		return ce.Problems
	}
	return []string{err.Error()}
}

// WeightSet returns the configured weights.
func (a AnalysisConfig) WeightSet() suitability.Weights {
	return suitability.Weights(a.Weights)
}

// SlopeTable returns the slope breakpoint table.
func (a AnalysisConfig) SlopeTable() (*suitability.Table, error) {
	return table(a.Tables.Slope, suitability.DefaultSlopeTable)
}

// AspectTable returns the aspect breakpoint table.
func (a AnalysisConfig) AspectTable() (*suitability.Table, error) {
	return table(a.Tables.Aspect, suitability.DefaultAspectTable)
}

// DistanceTable returns the distance-to-roads breakpoint table.
func (a AnalysisConfig) DistanceTable() (*suitability.Table, error) {
	return table(a.Tables.Distance, suitability.DefaultDistanceTable)
}

func table(ranges [][]float64, fallback func() *suitability.Table) (*suitability.Table, error) {
	if len(ranges) == 0 {
		return fallback(), nil
	}
	return suitability.TableFromRanges(ranges)
}

// SolarParams parses the solar season into model parameters.
func (a AnalysisConfig) SolarParams() (terrain.SolarParams, error) {
	s := a.Solar
	start, err := time.Parse(DateLayout, s.StartDate)
	if err != nil {
		return terrain.SolarParams{}, eris.Wrapf(err, "config: parse start_date %q", s.StartDate)
	}
	end, err := time.Parse(DateLayout, s.EndDate)
	if err != nil {
		return terrain.SolarParams{}, eris.Wrapf(err, "config: parse end_date %q", s.EndDate)
	}
	p := terrain.SolarParams{
		Latitude:       s.Latitude,
		Start:          start,
		End:            end,
		DayInterval:    s.DayInterval,
		HourInterval:   s.HourInterval,
		Transmissivity: s.Transmissivity,
	}
	if err := p.Validate(); err != nil {
		return terrain.SolarParams{}, err
	}
	return p, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

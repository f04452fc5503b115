package config

import (
	"fmt"
	"os"
	"time"

	"github.com/alejandrodnm/eventbt/internal/domain"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest   BacktestConfig   `yaml:"backtest"`
	Allocation AllocationConfig `yaml:"allocation"`
	Overlay    OverlayConfig    `yaml:"overlay"`
	Data       DataConfig       `yaml:"data"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

// BacktestConfig controla el tamaño, los costes y la simulación de cada evento.
// Los campos puntero distinguen "no indicado" de un cero explícito.
type BacktestConfig struct {
	PortfolioValue       float64  `yaml:"portfolio_value"` // capital bruto, repartido a partes iguales por evento
	CostPerShare         *float64 `yaml:"cost_per_share"`  // por lado
	LongFinancingSpread  *float64 `yaml:"long_financing_spread"`
	ShortFinancingSpread *float64 `yaml:"short_financing_spread"`
	VolumeWindow         int      `yaml:"volume_window"`       // sesiones de la media de volumen
	MaxVolumeFraction    float64  `yaml:"max_volume_fraction"` // 0.01 = 1% del volumen medio
	TradingDaysPerYear   int      `yaml:"trading_days_per_year"`
	ReversionHoldDays    int      `yaml:"reversion_hold_days"` // 0 = intradía
	Workers              int      `yaml:"workers"`             // 0 = runtime.NumCPU()
}

// AllocationConfig controla el reparto de capital a partir de scores externos.
type AllocationConfig struct {
	MaxPosition  float64  `yaml:"max_position"`
	CostPerTrade *float64 `yaml:"cost_per_trade"`
}

// OverlayConfig describe la call europea del overlay de cartera.
type OverlayConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Multiplier    float64  `yaml:"multiplier"`
	StrikeOffset  *float64 `yaml:"strike_offset"`
	ExpiryDays    int      `yaml:"expiry_days"` // días hábiles
	RiskFree      *float64 `yaml:"risk_free"`
	DividendYield float64  `yaml:"dividend_yield"`
	Volatility    float64  `yaml:"volatility"`
}

// DataConfig indica de dónde salen los datos de mercado.
type DataConfig struct {
	Source       string `yaml:"source"`        // sqlite | csv
	Dir          string `yaml:"dir"`           // directorio CSV si source = csv
	Benchmark    string `yaml:"benchmark"`     // símbolo de referencia de la reversión
	LookbackDays int    `yaml:"lookback_days"` // historia previa al primer anuncio
	FREDBase     string `yaml:"fred_base"`
	FREDSeries   string `yaml:"fred_series"`
	FREDAPIKey   string `yaml:"-"` // solo desde FRED_API_KEY
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Parse interpreta un YAML y aplica entorno y defaults. Un documento vacío
// produce la configuración por defecto.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg, nil
}

// Params convierte la sección backtest en los parámetros inmutables del run.
func (c *Config) Params() (domain.Params, error) {
	b := c.Backtest
	p := domain.Params{
		GrossPortfolioValue:     decimal.NewFromFloat(b.PortfolioValue),
		TransactionCostPerShare: decimal.NewFromFloat(*b.CostPerShare),
		LongFinancingSpread:     *b.LongFinancingSpread,
		ShortFinancingSpread:    *b.ShortFinancingSpread,
		MaxVolumeFraction:       b.MaxVolumeFraction,
		TradingDaysPerYear:      b.TradingDaysPerYear,
		VolumeWindow:            b.VolumeWindow,
		ReversionHoldDays:       b.ReversionHoldDays,
	}
	if err := p.Validate(); err != nil {
		return domain.Params{}, fmt.Errorf("config.Params: %w", err)
	}
	return p, nil
}

// Lookback devuelve la historia previa al primer anuncio que se carga.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Data.LookbackDays) * 24 * time.Hour
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("EVENTBT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("FRED_API_KEY"); v != "" {
		cfg.Data.FREDAPIKey = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	def := domain.DefaultParams()
	b := &cfg.Backtest
	if b.PortfolioValue <= 0 {
		b.PortfolioValue = def.GrossPortfolioValue.InexactFloat64()
	}
	if b.CostPerShare == nil {
		b.CostPerShare = ptr(def.TransactionCostPerShare.InexactFloat64())
	}
	if b.LongFinancingSpread == nil {
		b.LongFinancingSpread = ptr(def.LongFinancingSpread)
	}
	if b.ShortFinancingSpread == nil {
		b.ShortFinancingSpread = ptr(def.ShortFinancingSpread)
	}
	if b.VolumeWindow <= 0 {
		b.VolumeWindow = def.VolumeWindow
	}
	if b.MaxVolumeFraction <= 0 {
		b.MaxVolumeFraction = def.MaxVolumeFraction
	}
	if b.TradingDaysPerYear <= 0 {
		b.TradingDaysPerYear = def.TradingDaysPerYear
	}

	if cfg.Allocation.MaxPosition <= 0 {
		cfg.Allocation.MaxPosition = 0.10
	}
	if cfg.Allocation.CostPerTrade == nil {
		cfg.Allocation.CostPerTrade = ptr(0.0005)
	}

	o := &cfg.Overlay
	if o.Multiplier <= 0 {
		o.Multiplier = 0.01
	}
	if o.StrikeOffset == nil {
		o.StrikeOffset = ptr(0.02)
	}
	if o.ExpiryDays <= 0 {
		o.ExpiryDays = 30
	}
	if o.RiskFree == nil {
		o.RiskFree = ptr(0.01)
	}
	if o.Volatility <= 0 {
		o.Volatility = 0.20
	}

	if cfg.Data.Source == "" {
		cfg.Data.Source = "sqlite"
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Data.Benchmark == "" {
		cfg.Data.Benchmark = "SPY"
	}
	if cfg.Data.LookbackDays <= 0 {
		cfg.Data.LookbackDays = 45 // cubre la ventana de volumen de 20 sesiones con festivos
	}
	if cfg.Data.FREDBase == "" {
		cfg.Data.FREDBase = "https://api.stlouisfed.org"
	}
	if cfg.Data.FREDSeries == "" {
		cfg.Data.FREDSeries = "DFF"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "eventbt.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func ptr(v float64) *float64 { return &v }

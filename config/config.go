package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultRPCURL   = "https://bsc-dataseed.binance.org/"
	defaultContract = "0x18b2a687610328590bc8f2e5fedde3b582a49cda"

	// Valores por defecto de un backtest sin perfil (BNB).
	DefaultAmountPerTrade = "0.001"
	DefaultCapital        = "1"
)

// Config es la configuración completa del backtester.
type Config struct {
	Ledger     LedgerConfig     `yaml:"ledger"`
	Repository RepositoryConfig `yaml:"repository"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
	Profiles   []Profile        `yaml:"profiles"`
}

// LedgerConfig apunta al contrato de predicción en BSC.
type LedgerConfig struct {
	RPCURL            string  `yaml:"rpc_url"`
	ContractAddress   string  `yaml:"contract_address"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	FetchTimeoutMS    int     `yaml:"fetch_timeout_ms"`
}

// RepositoryConfig controla el refresco de la cache de rondas.
type RepositoryConfig struct {
	MinEpoch       int64 `yaml:"min_epoch"`       // rondas anteriores se ignoran
	StaleThreshold int64 `yaml:"stale_threshold"` // no refrescar por menos de N rondas nuevas
	BatchSize      int   `yaml:"batch_size"`
	GroupSize      int   `yaml:"group_size"`
	MaxInFlight    int64 `yaml:"max_in_flight"` // 0 = sin tope
}

// StorageConfig controla dónde se persisten las rondas.
type StorageConfig struct {
	Backend string `yaml:"backend"` // json | sqlite | badger
	Path    string `yaml:"path"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Profile es un conjunto de settings guardado con nombre.
// Los importes van como string para no pasar por float.
type Profile struct {
	Name             string `yaml:"name"`
	Strategy         string `yaml:"strategy"`
	AmountPerTrade   string `yaml:"amount_per_trade"`
	CapitalAmount    string `yaml:"capital_amount"`
	WeightSide       string `yaml:"weight_side"`
	WeightMultiplier int64  `yaml:"weight_multiplier"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validateProfiles(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// FetchTimeout devuelve el timeout por ronda como time.Duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Ledger.FetchTimeoutMS) * time.Millisecond
}

// Profile busca un perfil por nombre (sin distinguir mayúsculas).
func (c *Config) Profile(name string) (Profile, bool) {
	for _, p := range c.Profiles {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Profile{}, false
}

// validateProfiles exige nombres no vacíos y únicos.
func (c *Config) validateProfiles() error {
	seen := make(map[string]bool, len(c.Profiles))
	for i, p := range c.Profiles {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			return fmt.Errorf("profile #%d has no name", i+1)
		}
		if seen[key] {
			return fmt.Errorf("another profile exists with the same name %q", p.Name)
		}
		seen[key] = true
	}
	return nil
}

// Settings convierte el perfil en SimulationSettings. No valida la
// asequibilidad del stake; eso lo hace el engine antes de simular.
func (p Profile) Settings() (domain.SimulationSettings, error) {
	var s domain.SimulationSettings

	kind, err := domain.ParseStrategy(p.Strategy)
	if err != nil {
		return s, fmt.Errorf("config: profile %q: %w", p.Name, err)
	}
	s.Strategy = kind

	amount := p.AmountPerTrade
	if amount == "" {
		amount = DefaultAmountPerTrade
	}
	if s.AmountPerTrade, err = decimal.NewFromString(amount); err != nil {
		return s, fmt.Errorf("config: profile %q: amount_per_trade %q: %w", p.Name, amount, domain.ErrInvalidSettings)
	}

	capital := p.CapitalAmount
	if capital == "" {
		capital = DefaultCapital
	}
	if s.CapitalAmount, err = decimal.NewFromString(capital); err != nil {
		return s, fmt.Errorf("config: profile %q: capital_amount %q: %w", p.Name, capital, domain.ErrInvalidSettings)
	}

	if kind == domain.StrategyDualWallet {
		if s.WeightSide, err = domain.ParseWeightSide(p.WeightSide); err != nil {
			return s, fmt.Errorf("config: profile %q: %w", p.Name, err)
		}
		s.WeightMultiplier = p.WeightMultiplier
	}
	return s, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BSC_PROVIDER_URL"); v != "" {
		cfg.Ledger.RPCURL = v
	}
	if v := os.Getenv("PKS_CONTRACT_ADDRESS"); v != "" {
		cfg.Ledger.ContractAddress = v
	}
	if v := os.Getenv("CACHE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Ledger.RPCURL == "" {
		cfg.Ledger.RPCURL = defaultRPCURL
	}
	if cfg.Ledger.ContractAddress == "" {
		cfg.Ledger.ContractAddress = defaultContract
	}
	if cfg.Ledger.RequestsPerSecond <= 0 {
		cfg.Ledger.RequestsPerSecond = 50
	}
	if cfg.Ledger.Burst <= 0 {
		cfg.Ledger.Burst = 25
	}
	if cfg.Ledger.FetchTimeoutMS <= 0 {
		cfg.Ledger.FetchTimeoutMS = 10_000
	}
	if cfg.Repository.MinEpoch <= 0 {
		cfg.Repository.MinEpoch = 100 // las rondas 0-99 no son fiables
	}
	if cfg.Repository.StaleThreshold <= 0 {
		cfg.Repository.StaleThreshold = 10
	}
	if cfg.Repository.BatchSize <= 0 {
		cfg.Repository.BatchSize = 100
	}
	if cfg.Repository.GroupSize <= 0 {
		cfg.Repository.GroupSize = 10
	}
	if cfg.Repository.MaxInFlight < 0 {
		cfg.Repository.MaxInFlight = 0
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "json"
	}
	if cfg.Storage.Path == "" {
		switch cfg.Storage.Backend {
		case "sqlite":
			cfg.Storage.Path = "rounds.db"
		case "badger":
			cfg.Storage.Path = "rounds.badger"
		default:
			cfg.Storage.Path = "rounds.json"
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

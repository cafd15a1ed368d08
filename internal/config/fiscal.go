package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FiscalConfig carries the engine parameters that operators tune per
// deployment. The jurisdiction tax tables themselves live in the rule
// store; this file only holds knobs.
type FiscalConfig struct {
	// HomeJurisdiction is the state the company operates from; a sale to
	// another jurisdiction uses the interstate exit code.
	HomeJurisdiction string `mapstructure:"homeJurisdiction"`

	// LineTolerance is the accepted gap between qty*unitPrice and the
	// declared line total on inbound documents, in currency units.
	LineTolerance float64 `mapstructure:"lineTolerance"`

	// BalanceTolerance is the accepted gap between a sale's grand total
	// and the sum of its payments at finalize time.
	BalanceTolerance float64 `mapstructure:"balanceTolerance"`
}

func DefaultFiscalConfig() FiscalConfig {
	return FiscalConfig{
		HomeJurisdiction: "SP",
		LineTolerance:    0.01,
		BalanceTolerance: 0.01,
	}
}

// FiscalConfigHolder exposes the current FiscalConfig and hot-reloads it
// when the backing file changes.
type FiscalConfigHolder struct {
	current atomic.Value // holds FiscalConfig
}

func NewFiscalConfigHolder() (*FiscalConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("fiscal")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fiscalcore/config") // volume-mounted config
	v.AddConfigPath("/etc/fiscalcore")            // system config
	v.AddConfigPath(".")                          // current directory (dev mode)

	v.SetEnvPrefix("FISCALCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultFiscalConfig()
		v.SetDefault("fiscal.homeJurisdiction", defaults.HomeJurisdiction)
		v.SetDefault("fiscal.lineTolerance", defaults.LineTolerance)
		v.SetDefault("fiscal.balanceTolerance", defaults.BalanceTolerance)
	}

	var cfg FiscalConfig
	if err := v.UnmarshalKey("fiscal", &cfg); err != nil {
		return nil, err
	}
	if err := validateFiscalConfig(cfg); err != nil {
		return nil, err
	}

	holder := &FiscalConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FiscalConfig
		if err := v.UnmarshalKey("fiscal", &updated); err != nil {
			log.Printf("[fiscal-config] reload failed: %v", err)
			return
		}
		if err := validateFiscalConfig(updated); err != nil {
			log.Printf("[fiscal-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[fiscal-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// StaticFiscalConfigHolder wraps a fixed config, without file watching.
func StaticFiscalConfigHolder(cfg FiscalConfig) *FiscalConfigHolder {
	holder := &FiscalConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *FiscalConfigHolder) Get() FiscalConfig {
	return h.current.Load().(FiscalConfig)
}

func validateFiscalConfig(cfg FiscalConfig) error {
	if strings.TrimSpace(cfg.HomeJurisdiction) == "" {
		return errors.New("fiscal.homeJurisdiction cannot be empty")
	}
	if cfg.LineTolerance < 0 {
		return errors.New("fiscal.lineTolerance cannot be negative")
	}
	if cfg.BalanceTolerance < 0 {
		return errors.New("fiscal.balanceTolerance cannot be negative")
	}
	return nil
}

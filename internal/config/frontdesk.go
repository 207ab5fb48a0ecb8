package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FrontdeskConfig is operator policy the front desk can tune without a
// redeploy: accepted payment modes, the default currency for new bookings,
// and the folio numbering template.
type FrontdeskConfig struct {
	Currency            string   `mapstructure:"currency"`
	PaymentModes        []string `mapstructure:"paymentModes"`
	FolioNumberTemplate string   `mapstructure:"folioNumberTemplate"`
}

func DefaultFrontdeskConfig() FrontdeskConfig {
	return FrontdeskConfig{
		Currency:            "IDR",
		PaymentModes:        []string{"CASH", "CARD", "TRANSFER", "QRIS"},
		FolioNumberTemplate: "FOL-{YYYY}{MM}-{SEQ6}",
	}
}

// AllowsPaymentMode reports whether the mode is accepted at the desk.
func (c FrontdeskConfig) AllowsPaymentMode(mode string) bool {
	mode = strings.ToUpper(strings.TrimSpace(mode))
	for _, m := range c.PaymentModes {
		if strings.ToUpper(m) == mode {
			return true
		}
	}
	return false
}

type FrontdeskConfigHolder struct {
	current atomic.Value // holds FrontdeskConfig
}

func NewFrontdeskConfigHolder() (*FrontdeskConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("frontdesk")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/staypoint/config") // Volume-mounted config
	v.AddConfigPath("/etc/staypoint")            // System config
	v.AddConfigPath(".")                         // Current directory (dev mode)

	// env hanya untuk path override (optional)
	v.SetEnvPrefix("STAYPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// if config file not found, use defaults
		defaults := DefaultFrontdeskConfig()
		v.SetDefault("frontdesk.currency", defaults.Currency)
		v.SetDefault("frontdesk.paymentModes", defaults.PaymentModes)
		v.SetDefault("frontdesk.folioNumberTemplate", defaults.FolioNumberTemplate)
	}

	var cfg FrontdeskConfig
	if err := v.UnmarshalKey("frontdesk", &cfg); err != nil {
		return nil, err
	}
	if err := validateFrontdeskConfig(cfg); err != nil {
		return nil, err
	}

	holder := &FrontdeskConfigHolder{}
	holder.current.Store(cfg)

	// 🔥 HOT RELOAD
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FrontdeskConfig
		if err := v.UnmarshalKey("frontdesk", &updated); err != nil {
			log.Printf("[frontdesk-config] reload failed: %v", err)
			return
		}
		if err := validateFrontdeskConfig(updated); err != nil {
			log.Printf("[frontdesk-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[frontdesk-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *FrontdeskConfigHolder) Get() FrontdeskConfig {
	return h.current.Load().(FrontdeskConfig)
}

// NewStaticFrontdeskConfigHolder wraps a fixed config. No file watching;
// meant for tests and embedded callers.
func NewStaticFrontdeskConfigHolder(cfg FrontdeskConfig) *FrontdeskConfigHolder {
	holder := &FrontdeskConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateFrontdeskConfig(cfg FrontdeskConfig) error {
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("frontdesk.currency cannot be empty")
	}
	if len(cfg.PaymentModes) == 0 {
		return errors.New("frontdesk.paymentModes cannot be empty")
	}
	if strings.TrimSpace(cfg.FolioNumberTemplate) == "" {
		return errors.New("frontdesk.folioNumberTemplate cannot be empty")
	}
	return nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type BetTier struct {
	ID      string `json:"id"`
	BaseBet int64  `json:"base_bet"`
}

// AutoplayPolicy controls the default action taken when a turn timer expires.
// The exact defaults are deliberately configurable rather than hard-coded.
type AutoplayPolicy struct {
	// AutoDefuse makes the idle default defuse an explosive draw when the
	// seat holds a defuse card. When false an idle seat in the defuse
	// sub-state is eliminated instead.
	AutoDefuse bool `json:"auto_defuse"`
	// AutoDefuseDepth is the draw-pile depth used for the reinserted
	// explosive card when AutoDefuse fires. 0 means top of the pile.
	AutoDefuseDepth int `json:"auto_defuse_depth"`
	// HoldemCheckIfFree makes the holdem idle default check when nothing is
	// owed; folding only when a call is outstanding.
	HoldemCheckIfFree bool `json:"holdem_check_if_free"`
}

type GameConfig struct {
	TaxRate     float64   `json:"tax_rate"`
	DefaultTier string    `json:"default_tier"`
	Tiers       []BetTier `json:"tiers"`

	TurnDurationSeconds   int `json:"turn_duration_seconds"`
	NopeWindowSeconds     int `json:"nope_window_seconds"`
	NopeWindowCapSeconds  int `json:"nope_window_cap_seconds"`
	RematchTimeoutSeconds int `json:"rematch_timeout_seconds"`
	FavorResponseSeconds  int `json:"favor_response_seconds"`

	Autoplay AutoplayPolicy `json:"autoplay"`

	// KnownExpansions lists expansion ids accepted by room creation.
	KnownExpansions []string `json:"known_expansions"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration, or nil when not loaded.
func GetGameConfig() *GameConfig {
	return cfg
}

// TurnDurationSeconds returns the configured turn countdown with a safe default.
func TurnDurationSeconds() int {
	if cfg == nil || cfg.TurnDurationSeconds <= 0 {
		return 16
	}
	return cfg.TurnDurationSeconds
}

// NopeWindowSeconds returns the counter-window length with a safe default.
func NopeWindowSeconds() int {
	if cfg == nil || cfg.NopeWindowSeconds <= 0 {
		return 4
	}
	return cfg.NopeWindowSeconds
}

// NopeWindowCapSeconds returns the maximum a window can be extended to.
func NopeWindowCapSeconds() int {
	if cfg == nil || cfg.NopeWindowCapSeconds <= 0 {
		return 10
	}
	return cfg.NopeWindowCapSeconds
}

// RematchTimeoutSeconds returns the shared invitation deadline length.
func RematchTimeoutSeconds() int {
	if cfg == nil || cfg.RematchTimeoutSeconds <= 0 {
		return 120
	}
	return cfg.RematchTimeoutSeconds
}

// FavorResponseSeconds returns how long a favor target has to hand over a card.
func FavorResponseSeconds() int {
	if cfg == nil || cfg.FavorResponseSeconds <= 0 {
		return 10
	}
	return cfg.FavorResponseSeconds
}

// Autoplay returns the configured idle default policy.
func Autoplay() AutoplayPolicy {
	if cfg == nil {
		return AutoplayPolicy{AutoDefuse: true, HoldemCheckIfFree: true}
	}
	return cfg.Autoplay
}

// GetBaseBet returns the base bet for a given tier ID, or the default if not found.
func GetBaseBet(tierID string) int64 {
	if cfg == nil {
		return 100 // Safe default
	}

	target := tierID
	if target == "" {
		target = cfg.DefaultTier
	}

	for _, tier := range cfg.Tiers {
		if tier.ID == target {
			return tier.BaseBet
		}
	}

	// Fallback to default tier if specific ID not found
	for _, tier := range cfg.Tiers {
		if tier.ID == cfg.DefaultTier {
			return tier.BaseBet
		}
	}

	return 100
}

// IsKnownExpansion reports whether the expansion id is part of the catalog.
func IsKnownExpansion(id string) bool {
	if cfg == nil {
		// Without a loaded catalog only the built-in expansion is accepted.
		return id == "insight"
	}
	for _, known := range cfg.KnownExpansions {
		if known == id {
			return true
		}
	}
	return false
}

// Package config holds the engine's own tunables -- UID allocation range,
// subordinate range defaults, quadlet directory root, data-root base path,
// and journal path -- with user-mode-aware defaults. Loading a value from
// disk, flags, or environment is the caller's job (cmd/divban); this package
// only defines the value object and its defaulting rules.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/aryonoco/divban/internal/direrr"
	"github.com/aryonoco/divban/internal/provision"
)

// getuid is the function used to retrieve the current user ID.
// It is a variable to allow tests to simulate root/non-root environments.
var getuid = os.Getuid

// IsUserMode returns true if running as non-root user (uid != 0).
func IsUserMode() bool {
	return getuid() != 0
}

// EngineConfig is the engine's tunable surface, unmarshalable from a
// viper.Viper populated by the CLI layer from flags/env/a config file.
type EngineConfig struct {
	UIDRangeStart  int    `mapstructure:"uidRangeStart"`
	UIDRangeEnd    int    `mapstructure:"uidRangeEnd"`
	SubRangeStart  int    `mapstructure:"subRangeStart"`
	SubRangeSize   int    `mapstructure:"subRangeSize"`
	UsernamePrefix string `mapstructure:"usernamePrefix"`
	DataRoot       string `mapstructure:"dataRoot"`
	SubuidPath     string `mapstructure:"subuidPath"`
	SubgidPath     string `mapstructure:"subgidPath"`
	QuadletDir     string `mapstructure:"quadletDir"`
	JournalPath    string `mapstructure:"journalPath"`
}

// Default returns the spec-mandated defaults, with the two user-mode-aware
// paths (QuadletDir, JournalPath) resolved for the current process.
func Default() EngineConfig {
	s := provision.DefaultSettings()
	return EngineConfig{
		UIDRangeStart:  s.UIDRangeStart,
		UIDRangeEnd:    s.UIDRangeEnd,
		SubRangeStart:  s.SubRangeStart,
		SubRangeSize:   s.SubRangeSize,
		UsernamePrefix: s.UsernamePrefix,
		DataRoot:       s.DataRoot,
		SubuidPath:     s.SubuidPath,
		SubgidPath:     s.SubgidPath,
		QuadletDir:     defaultQuadletDir(),
		JournalPath:    defaultJournalPath(),
	}
}

func defaultQuadletDir() string {
	if IsUserMode() {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config/containers/systemd")
	}
	return "/etc/containers/systemd"
}

func defaultJournalPath() string {
	if IsUserMode() {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local/share/divban/journal.db")
	}
	return "/var/lib/divban/journal.db"
}

// Settings projects the loaded configuration onto the Mutation Engine's own
// tunable struct.
func (c EngineConfig) Settings() provision.Settings {
	return provision.Settings{
		UIDRangeStart:  c.UIDRangeStart,
		UIDRangeEnd:    c.UIDRangeEnd,
		SubRangeStart:  c.SubRangeStart,
		SubRangeSize:   c.SubRangeSize,
		UsernamePrefix: c.UsernamePrefix,
		DataRoot:       c.DataRoot,
		SubuidPath:     c.SubuidPath,
		SubgidPath:     c.SubgidPath,
	}
}

// Load starts from Default and overlays whatever v has bound (flags, env,
// or a config file already read into v by the caller). A nil v returns the
// defaults unchanged.
func Load(v *viper.Viper) (EngineConfig, error) {
	cfg := Default()
	if v == nil {
		return cfg, nil
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return EngineConfig{}, direrr.NewInvalidConfig("config", err.Error())
	}
	return cfg, nil
}

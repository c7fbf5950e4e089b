package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/TinyScreen/internal/logger"
)

// DefaultProfileID names the profile created with a fresh config.
const DefaultProfileID = "default"

// Profile is a named display setup: which display to open and how to
// render onto it.
type Profile struct {
	ID    string `json:"id" yaml:"id" mapstructure:"id"`
	Name  string `json:"name" yaml:"name" mapstructure:"name"`
	Flags Flags  `json:"flags" yaml:"flags" mapstructure:"flags"`
}

// Config represents the application configuration
type Config struct {
	Server   ServerConfig `json:"server" yaml:"server" mapstructure:"server"`
	Source   SourceConfig `json:"source" yaml:"source" mapstructure:"source"`
	OSD      OSDConfig    `json:"osd" yaml:"osd" mapstructure:"osd"`
	LogLevel string       `json:"log_level" yaml:"log_level" mapstructure:"log_level"`

	ActiveProfileID string    `json:"active_profile_id" yaml:"active_profile_id" mapstructure:"active_profile_id"`
	Profiles        []Profile `json:"profiles" yaml:"profiles" mapstructure:"profiles"`
}

// ServerConfig configures the status and control API.
type ServerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Port    int  `json:"port" yaml:"port" mapstructure:"port"`
}

// SourceConfig controls frame pacing for the play command.
type SourceConfig struct {
	FPS  int  `json:"fps" yaml:"fps" mapstructure:"fps"`
	Loop bool `json:"loop" yaml:"loop" mapstructure:"loop"`
}

// OSDConfig represents on-screen display configuration
type OSDConfig struct {
	Enabled bool                     `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Widgets []map[string]interface{} `json:"widgets" yaml:"widgets" mapstructure:"widgets"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// DefaultConfigPath returns $HOME/.config/tinyscreen/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "tinyscreen", "config.yaml"), nil
}

// NewManager loads configFile, or the default path when empty. A missing
// file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = m.getDefaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Int("profiles", len(m.config.Profiles)).
		Str("active_profile", m.config.ActiveProfileID).
		Msg("Config loaded")

	return m, nil
}

// getDefaults returns default configuration
func (m *Manager) getDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Enabled: false,
			Port:    8091,
		},
		Source: SourceConfig{
			FPS:  25,
			Loop: false,
		},
		OSD: OSDConfig{
			Enabled: true,
			Widgets: []map[string]interface{}{},
		},
		LogLevel:        "info",
		ActiveProfileID: DefaultProfileID,
		Profiles: []Profile{{
			ID:    DefaultProfileID,
			Name:  "Default",
			Flags: DefaultFlags(),
		}},
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := *m.getDefaults()
	cfg.Profiles = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	normalize(&cfg)

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// normalize fills gaps a hand-edited file may leave.
func normalize(cfg *Config) {
	if cfg.OSD.Widgets == nil {
		cfg.OSD.Widgets = []map[string]interface{}{}
	}
	if len(cfg.Profiles) == 0 {
		cfg.Profiles = []Profile{{ID: DefaultProfileID, Name: "Default", Flags: DefaultFlags()}}
	}
	active := false
	for _, p := range cfg.Profiles {
		if p.ID == cfg.ActiveProfileID {
			active = true
			break
		}
	}
	if !active {
		cfg.ActiveProfileID = cfg.Profiles[0].ID
	}
	for i := range cfg.Profiles {
		// gamma 0 is never valid, so it marks a profile written without one
		if cfg.Profiles[i].Flags.Gamma == 0 {
			cfg.Profiles[i].Flags.Gamma = 1.0
		}
	}
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return m.getDefaults()
	}

	cfg := *m.config
	cfg.Profiles = append([]Profile(nil), m.config.Profiles...)
	return &cfg
}

// ActiveFlags returns the rendering flags of the active profile.
func (m *Manager) ActiveFlags() Flags {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p := m.activeProfileLocked(); p != nil {
		return p.Flags
	}
	return DefaultFlags()
}

// activeProfileLocked returns the active profile (caller must hold at least read lock)
func (m *Manager) activeProfileLocked() *Profile {
	if m.config == nil {
		return nil
	}
	for i := range m.config.Profiles {
		if m.config.Profiles[i].ID == m.config.ActiveProfileID {
			return &m.config.Profiles[i]
		}
	}
	if len(m.config.Profiles) > 0 {
		return &m.config.Profiles[0]
	}
	return nil
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = m.getDefaults()
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Int("profile_count", len(cfg.Profiles)).
		Str("active_profile", cfg.ActiveProfileID).
		Msg("Saving config")

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved successfully")
	return nil
}

// Update replaces the entire configuration and saves it. Every profile's
// flags must validate.
func (m *Manager) Update(cfg *Config) error {
	normalize(cfg)
	for _, p := range cfg.Profiles {
		if err := p.Flags.Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", p.ID, err)
		}
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// SetFlag sets one rendering flag on the active profile using sub-option
// syntax for the value, e.g. SetFlag("dither", "0").
func (m *Manager) SetFlag(key, value string) error {
	m.mu.Lock()
	p := m.activeProfileLocked()
	if p == nil {
		m.mu.Unlock()
		return fmt.Errorf("no active profile")
	}
	flags := p.Flags
	if _, err := ParseSubOptions(key+"="+strings.ReplaceAll(value, ":", "?"), &flags); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := flags.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	p.Flags = flags
	id := p.ID
	m.mu.Unlock()

	logger.WithComponent("config").Info().
		Str("profile_id", id).
		Str("key", key).
		Str("value", value).
		Msg("Updated display flag")
	return m.Save()
}

// SetActiveProfile switches to a different profile
func (m *Manager) SetActiveProfile(profileID string) error {
	m.mu.Lock()
	found := false
	for _, p := range m.config.Profiles {
		if p.ID == profileID {
			found = true
			break
		}
	}
	if !found {
		m.mu.Unlock()
		return fmt.Errorf("profile not found: %s", profileID)
	}
	m.config.ActiveProfileID = profileID
	m.mu.Unlock()

	logger.WithComponent("config").Info().
		Str("profile_id", profileID).
		Msg("Switched to profile")
	return m.Save()
}

// ListProfiles returns all profiles
func (m *Manager) ListProfiles() []Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return []Profile{}
	}
	profiles := make([]Profile, len(m.config.Profiles))
	copy(profiles, m.config.Profiles)
	return profiles
}

// CreateProfile adds a profile holding flags under a unique ID derived
// from name.
func (m *Manager) CreateProfile(name string, flags Flags) (*Profile, error) {
	if err := flags.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	profile := Profile{
		ID:    m.generateProfileID(name),
		Name:  name,
		Flags: flags,
	}
	m.config.Profiles = append(m.config.Profiles, profile)
	m.mu.Unlock()

	logger.WithComponent("config").Info().
		Str("profile_id", profile.ID).
		Str("profile_name", name).
		Msg("Created new profile")

	if err := m.Save(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// DeleteProfile deletes a profile by ID
func (m *Manager) DeleteProfile(profileID string) error {
	if profileID == DefaultProfileID {
		return fmt.Errorf("cannot delete the default profile")
	}

	m.mu.Lock()
	found := false
	filtered := make([]Profile, 0, len(m.config.Profiles))
	for _, p := range m.config.Profiles {
		if p.ID != profileID {
			filtered = append(filtered, p)
		} else {
			found = true
		}
	}
	if !found {
		m.mu.Unlock()
		return fmt.Errorf("profile not found: %s", profileID)
	}
	m.config.Profiles = filtered
	if m.config.ActiveProfileID == profileID {
		m.config.ActiveProfileID = DefaultProfileID
	}
	m.mu.Unlock()

	logger.WithComponent("config").Info().
		Str("profile_id", profileID).
		Msg("Deleted profile")
	return m.Save()
}

// generateProfileID generates a unique profile ID from a name (caller must hold lock)
func (m *Manager) generateProfileID(name string) string {
	base := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	var result strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	id := result.String()
	if id == "" {
		id = "profile"
	}

	originalID := id
	for counter := 1; m.profileIDExists(id); counter++ {
		id = fmt.Sprintf("%s-%d", originalID, counter)
	}
	return id
}

func (m *Manager) profileIDExists(id string) bool {
	for _, p := range m.config.Profiles {
		if p.ID == id {
			return true
		}
	}
	return false
}

// GetViper returns a viper instance loaded from the config file, for
// dotted-key access such as "server.port".
func (m *Manager) GetViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(m.configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return v, nil
}

// UpdateFromViper replaces the configuration with the state of v and
// saves it.
func (m *Manager) UpdateFromViper(v *viper.Viper) error {
	cfg := *m.getDefaults()
	cfg.Profiles = nil
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return m.Update(&cfg)
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetConfigDir returns the config directory path
func (m *Manager) GetConfigDir() string {
	return filepath.Dir(m.configPath)
}

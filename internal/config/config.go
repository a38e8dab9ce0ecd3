package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/callo451/deskwise-remote/internal/domain"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	// ServerURL is the base URL of the session/signalling surface as seen
	// by the operator client.
	ServerURL string `mapstructure:"server_url"`

	// PollInterval paces the signalling poll loop. The poll model puts a
	// latency floor on negotiation; keep it in the low single-digit
	// seconds rather than hammering the store.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// PollFailureThreshold is how many consecutive failed ticks are
	// tolerated before the failure surfaces as a session error.
	PollFailureThreshold int `mapstructure:"poll_failure_threshold"`

	// StatsInterval paces quality-metric sampling on the peer connection.
	StatsInterval time.Duration `mapstructure:"stats_interval"`

	// ScreenshotDir is where control-surface screenshots are written.
	ScreenshotDir string `mapstructure:"screenshot_dir"`

	// ICEServers is the STUN/TURN list the registry issues to new sessions.
	ICEServers []domain.ICEServer `mapstructure:"ice_servers"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		path = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(path)

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("server_url", "http://127.0.0.1:8080")
	v.SetDefault("poll_interval", "2s")
	v.SetDefault("poll_failure_threshold", 3)
	v.SetDefault("stats_interval", "1s")
	v.SetDefault("screenshot_dir", ".")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", path)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.ICEServers) == 0 {
		cfg.ICEServers = []domain.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}
	return &cfg, nil
}

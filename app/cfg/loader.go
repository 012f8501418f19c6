package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"tress.db" description:"Path to the SQLite database file"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"3000" description:"HTTP server port"`
	SyncInterval int    `long:"sync-interval" env:"SYNC_INTERVAL" default:"3600" description:"Full feed sync interval in seconds"`
	UIDir        string `long:"ui-dir" env:"UI_DIR" default:"ui/dist" description:"Directory containing the built web UI"`

	// Push notification credentials
	VAPIDPublicKey  string `long:"vapid-public-key" env:"VAPID_PUBLIC_KEY" description:"VAPID public key for web push (base64url)"`
	VAPIDPrivateKey string `long:"vapid-private-key" env:"VAPID_PRIVATE_KEY" description:"VAPID private key for web push (base64url)"`
	VAPIDSubject    string `long:"vapid-subject" env:"VAPID_SUBJECT" default:"mailto:admin@localhost" description:"VAPID subject (contact URI sent to push services)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Tress/1.0" description:"User agent string for outbound HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:          raw.DBPath,
		Port:            raw.Port,
		SyncInterval:    raw.SyncInterval,
		UIDir:           raw.UIDir,
		VAPIDPublicKey:  raw.VAPIDPublicKey,
		VAPIDPrivateKey: raw.VAPIDPrivateKey,
		VAPIDSubject:    raw.VAPIDSubject,
		UserAgent:       raw.UserAgent,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

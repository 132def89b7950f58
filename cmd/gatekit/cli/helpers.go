package cli

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/gatekit/gatekit/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// GATEKIT_DATA_DIR env var, or ~/.gatekit as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("GATEKIT_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.gatekit"
}

// storeConfig resolves the user store configuration from viper. The sqlite
// backend treats DSN as a data directory; postgres and mysql expect a full
// connection string in store.dsn.
func storeConfig() store.Config {
	driver := viper.GetString("store.driver")
	if driver == "" || driver == "sqlite" {
		dsn := viper.GetString("store.data_dir")
		if dsn == "" {
			dsn = resolveDataDir()
		}
		return store.Config{Driver: "sqlite", DSN: dsn}
	}
	return store.Config{Driver: driver, DSN: viper.GetString("store.dsn")}
}

// openStore opens the configured user store.
func openStore() (*store.Store, error) {
	return store.New(storeConfig())
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}

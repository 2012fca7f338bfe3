// Package cmd implements the spill command surface used by operators
// and automation to inspect and compact the shared log store.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bioneural/spill/internal/config"
	"github.com/bioneural/spill/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "spill",
	Short: "Shared structured-logging store for command-line tools",
	Long: `Spill captures the diagnostic output of independent tool processes as
structured records in a single durable store, and provides the read
side for it: tailing, filtered search, raw export and compaction.

The destination is resolved from --dest, then SPILL_DEST, then the
default under the user state directory. A .db/.sqlite/.sqlite3
extension selects the sqlite backend; anything else the append-only
file backend.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("dest", "", "log destination path (default: $SPILL_DEST or state dir)")
	_ = viper.BindPFlag("dest", rootCmd.PersistentFlags().Lookup("dest"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(config.ConfigDir())

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SPILL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// openStore resolves the configured destination and opens the matching
// backend.
func openStore() (store.Store, *config.Config) {
	cfg := config.Get()
	return store.Open(cfg.Dest), cfg
}

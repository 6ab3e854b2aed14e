// Package cmd provides the commands of the naspac terminal client.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Configuration keys, also settable as NASPAC_<KEY> environment variables
const (
	keyBackendURL     = "backend_url"
	keyBackendTimeout = "backend_timeout"
	keyStore          = "store"
	keyClient         = "client"
	keyLogLevel       = "log_level"
	keyInitTimeout    = "init_timeout"
)

// NewRootCommand builds the naspac command tree. Each invocation is one
// client instance over the local store.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "naspac",
		Short: "NASPAC portal terminal client",
		Long: `naspac signs in to the NASPAC portal backend and keeps the session in a
local store, so later commands run as the signed-in user.

Configuration:
  Config is loaded from naspac.yaml in the current directory or $HOME/.naspac/.
  Environment variables override config values with the NASPAC_ prefix.
  Example: NASPAC_BACKEND_URL=https://api.naspac.example`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./naspac.yaml)")
	flags.String("backend-url", "http://localhost:3000", "NASPAC backend base URL")
	flags.String("store", defaultStorePath(), "path of the local session store")
	flags.String("client", "default", "client instance name; each keeps its own session")
	_ = a.v.BindPFlag(keyBackendURL, flags.Lookup("backend-url"))
	_ = a.v.BindPFlag(keyStore, flags.Lookup("store"))
	_ = a.v.BindPFlag(keyClient, flags.Lookup("client"))

	a.v.SetDefault(keyBackendTimeout, 15*time.Second)
	a.v.SetDefault(keyInitTimeout, 10*time.Second)
	a.v.SetDefault(keyLogLevel, "warn")

	root.AddCommand(
		a.loginCommand(),
		a.verifyOTPCommand(),
		a.whoamiCommand(),
		a.menuCommand(),
		a.logoutCommand(),
		a.statusCommand(),
		a.forgotPasswordCommand(),
		a.resetPasswordCommand(),
		versionCommand(),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) loadConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if found := findConfigFile(); found != "" {
		a.v.SetConfigFile(found)
	} else {
		a.v.SetConfigName("naspac")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("NASPAC")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// findConfigFile looks for naspac.yaml or naspac.yml with an explicit extension
// so the binary itself is never matched.
func findConfigFile() string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".naspac"))
	}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "naspac"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "naspac.db"
	}
	return filepath.Join(home, ".naspac", "naspac.db")
}

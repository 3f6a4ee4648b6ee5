package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pbserver/internal/app"
	"pbserver/internal/config"
	"pbserver/internal/discovery"
	"pbserver/internal/identity"
	"pbserver/internal/server"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file from its default (or env-overridden)
// location.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "pbserver",
	Short: "Local photo backup server",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["storage_path"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Storage: %s\n", cfg.StoragePath)
		fmt.Printf("Listen:  %s:%d\n", cfg.Host, cfg.Port)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Service: %s\n", cfg.ServiceName)
		fmt.Printf("Listen:  %s:%d\n", cfg.Host, cfg.Port)
		fmt.Printf("Storage: %s (%s)\n", cfg.StoragePath, cfg.Storage.Type)
		fmt.Printf("Index:   %s\n", cfg.Index.Type)
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backup server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		srv := server.New(a.Service(), a.Identity(), cfg.ServiceName, a.Logger())

		// Discovery failure is not fatal: clients can still reach the
		// server by address.
		disc, err := discovery.Register(cfg.ServiceName, cfg.Port, a.Identity().ServerID, a.Logger())
		if err != nil {
			a.Logger().Warn("mDNS registration failed", "error", err)
		}

		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		a.Logger().Info("server starting", "addr", addr, "storage", cfg.StoragePath)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Listen(addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if disc != nil {
				disc.Shutdown()
			}
			return fmt.Errorf("server failed: %w", err)
		case sig := <-sigCh:
			a.Logger().Info("shutting down", "signal", sig.String())
			if disc != nil {
				disc.Shutdown()
			}
			if err := srv.Shutdown(); err != nil {
				return fmt.Errorf("shutting down server: %w", err)
			}
			return nil
		}
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "View backup statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		stats, err := a.Service().Stats()
		if err != nil {
			return err
		}

		fmt.Printf("Storage:     %s\n", stats.StorageRoot)
		fmt.Printf("Total files: %d\n", stats.TotalFiles)
		fmt.Printf("Total size:  %s (%d bytes)\n", stats.TotalSizeHuman, stats.TotalSizeBytes)
		if stats.FirstBackup != nil {
			fmt.Printf("First:       %s\n", stats.FirstBackup.Format("2006-01-02 15:04:05"))
		}
		if stats.LastBackup != nil {
			fmt.Printf("Last:        %s\n", stats.LastBackup.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// identity command
var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Print the pairing payload for client setup",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ident, err := identity.LoadOrCreate(cfg.StoragePath)
		if err != nil {
			return fmt.Errorf("loading identity: %w", err)
		}

		payload, err := ident.PairingPayload()
		if err != nil {
			return err
		}

		fmt.Println(payload)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(identityCmd)
}

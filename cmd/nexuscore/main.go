// Command nexuscore is the CLI entry point for the resilient data-loader
// orchestrator, grounded on the teacher's cmd/cryptorun/main.go cobra tree
// and zerolog wiring.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Maeshowe/Nexus-Core/internal/config"
	"github.com/Maeshowe/Nexus-Core/internal/loader"
	"github.com/Maeshowe/Nexus-Core/internal/logging"
	"github.com/Maeshowe/Nexus-Core/internal/provideradapter/fmp"
	"github.com/Maeshowe/Nexus-Core/internal/provideradapter/fred"
	"github.com/Maeshowe/Nexus-Core/internal/provideradapter/polygon"
)

const (
	appName = "nexuscore"
	version = "v1.0.0"
)

var (
	cfgFile string
	cfg     config.Config
	ld      *loader.Loader
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     appName,
		Short:   "Resilient multi-provider financial data loader",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			pretty := term.IsTerminal(int(os.Stdin.Fd()))

			if cfgFile != "" {
				loaded, err := config.FromYAML(cfgFile)
				if err != nil {
					return err
				}
				cfg = loaded
			} else {
				cfg = config.FromEnv()
			}

			logger := logging.Setup(cfg.LogLevel, pretty)
			log.Logger = logger

			ld = loader.New(cfg, logger)
			ld.RegisterAdapter(fmp.New(cfg.FMP.BaseURL, cfg.FMP.APIKey))
			ld.RegisterAdapter(polygon.New(cfg.Polygon.BaseURL, cfg.Polygon.APIKey))
			ld.RegisterAdapter(fred.New(cfg.FRED.BaseURL, cfg.FRED.APIKey))

			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (defaults to environment variables)")

	root.AddCommand(
		newFetchCmd(),
		newHealthCmd(),
		newEndpointsCmd(),
		newResetCircuitCmd(),
		newResetHealthCmd(),
		newServeCmd(),
	)

	return root
}

func newFetchCmd() *cobra.Command {
	var params map[string]string
	var useCache bool
	var raw bool

	cmd := &cobra.Command{
		Use:   "fetch <provider> <endpoint>",
		Short: "Fetch one endpoint through the resilience pipeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			result, err := ld.Fetch(ctx, args[0], args[1], params, useCache)
			if err != nil {
				return err
			}

			pretty := term.IsTerminal(int(os.Stdout.Fd())) && !raw
			enc := json.NewEncoder(os.Stdout)
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(map[string]interface{}{
				"request_id":        result.RequestID,
				"from_cache":        result.FromCache,
				"retries_performed": result.RetriesPerformed,
				"data":              result.Data,
			})
		},
	}

	cmd.Flags().StringToStringVar(&params, "param", nil, "endpoint parameter, repeatable (key=value)")
	cmd.Flags().BoolVar(&useCache, "cache", true, "allow serving from and writing to the cache")
	cmd.Flags().BoolVar(&raw, "raw", false, "force compact JSON output even on a terminal")

	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Print the current health report for every provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := ld.GetAPIHealthReport()
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

func newEndpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints <provider>",
		Short: "List every registered endpoint for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := ld.GetSupportedEndpoints(args[0])
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func newResetCircuitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-circuit",
		Short: "Reset every provider's circuit breaker state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ld.ResetCircuitBreaker()
			return nil
		},
	}
}

func newResetHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-health",
		Short: "Reset every provider's health monitor state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ld.ResetHealthMonitor()
			return nil
		},
	}
}

// cmd/kvkeeper/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	kvkeeperclient "github.com/avivl/kvkeeper/client/go/kvkeeper-client"
	"github.com/avivl/kvkeeper/internal/config"
	"github.com/avivl/kvkeeper/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultHealthTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "kvkeeper",
		Short:        "Environment-driven settings and a key-value store client",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "directory or file holding config.yaml")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newConfigCmd(&configPath),
		newHealthCmd(&configPath),
		newGetCmd(&configPath),
		newSetCmd(&configPath),
		newSAddCmd(&configPath),
		newSMembersCmd(&configPath),
		newDelCmd(&configPath),
		newPingCmd(&configPath),
	)

	return rootCmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC health service backed by the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			app, err := NewApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			return app.Serve(ctx)
		},
	}
}

func newConfigCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved settings with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(settings.Redacted())
		},
	}
}

func newHealthCmd(configPath *string) *cobra.Command {
	var (
		address string
		service string
		wait    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query a running kvkeeper server for store readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if address == "" {
				settings, err := config.Load(*configPath)
				if err != nil {
					return err
				}
				address = settings.ServerAddress
			}

			client, err := kvkeeperclient.NewKVKeeperClient(address, kvkeeperclient.WithService(service))
			if err != nil {
				return err
			}
			defer client.Close()

			if wait > 0 {
				ctx, cancel := context.WithTimeout(cmd.Context(), wait)
				defer cancel()
				if err := client.WaitUntilServing(ctx, 500*time.Millisecond); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), healthpb.HealthCheckResponse_SERVING)
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultHealthTimeout)
			defer cancel()
			st, err := client.Check(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), st)
			if st != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("service %q is %s", service, st)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "server address (defaults to serverAddress from config)")
	cmd.Flags().StringVar(&service, "service", kvkeeperclient.DefaultService, "health service name")
	cmd.Flags().DurationVar(&wait, "wait", 0, "poll until SERVING or the duration elapses")
	return cmd
}

// withStore connects a short-lived App and runs fn against its service
func withStore(cmd *cobra.Command, configPath string, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := NewApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer app.Shutdown()

	if err := app.Connect(ctx); err != nil {
		return fmt.Errorf("%s: %w", store.Classify(err), err)
	}
	return fn(ctx, app)
}

func newGetCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored at KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, *configPath, func(ctx context.Context, app *App) error {
				value, found, err := app.service.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintln(cmd.OutOrStdout(), "(nil)")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}
}

func newSetCmd(configPath *string) *cobra.Command {
	var expiry string

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store VALUE at KEY, optionally expiring after --expiry seconds",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, *configPath, func(ctx context.Context, app *App) error {
				if err := app.service.Set(ctx, args[0], args[1], store.ParseExpiry(expiry)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&expiry, "expiry", "", "time to live in seconds; values below 1 store without expiry")
	return cmd
}

func newSAddCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sadd KEY MEMBER...",
		Short: "Add members to the set at KEY",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, *configPath, func(ctx context.Context, app *App) error {
				if err := app.service.SAdd(ctx, args[0], args[1:]...); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			})
		},
	}
}

func newSMembersCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "smembers KEY",
		Short: "List the members of the set at KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, *configPath, func(ctx context.Context, app *App) error {
				members, err := app.service.SMembers(ctx, args[0])
				if err != nil {
					return err
				}
				for _, m := range members {
					fmt.Fprintln(cmd.OutOrStdout(), m)
				}
				return nil
			})
		},
	}
}

func newDelCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "del KEY",
		Short: "Delete KEY and print how many keys were removed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, *configPath, func(ctx context.Context, app *App) error {
				removed, err := app.service.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), removed)
				return nil
			})
		},
	}
}

func newPingCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Connect to the configured store and ping it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, *configPath, func(ctx context.Context, app *App) error {
				if err := app.service.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "PONG")
				return nil
			})
		},
	}
}

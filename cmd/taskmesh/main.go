// Command taskmesh runs the orchestration HTTP server.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/model/anthropic"
	"github.com/hupe1980/taskmesh/model/openai"
	"github.com/hupe1980/taskmesh/server"
	"github.com/hupe1980/taskmesh/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskmesh",
		Short:         "AI-task orchestration engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var (
		addr       string
		configFile string
		provider   string
		debug      bool
		pretty     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestration HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real env vars win
			_ = godotenv.Load()

			level := zerolog.InfoLevel
			if debug {
				level = zerolog.DebugLevel
			}
			logger := logging.NewZerolog(os.Stderr, level, pretty)

			persisted, err := config.LoadFile(configFile)
			if err != nil {
				return err
			}
			persisted = config.Merge(persisted, config.LoadEnv())

			caller, err := buildCaller(provider)
			if err != nil {
				return err
			}

			manager := session.New(caller, func(o *session.Options) {
				o.Logger = logger
				o.Secret = os.Getenv("TASKMESH_CALLBACK_SECRET")
				o.PersistedConfig = persisted
			})

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(manager, func(o *server.Options) { o.Logger = logger }),
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server listening", "addr", addr, "provider", provider)
			return srv.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&configFile, "config", "", "path to a config override file")
	cmd.Flags().StringVar(&provider, "provider", "auto", "model provider: anthropic, openai, mock or auto")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "human-readable log output")

	return cmd
}

// buildCaller selects the agent backend. "auto" picks by available API keys,
// falling back to the deterministic mock for local experimentation.
func buildCaller(provider string) (core.Caller, error) {
	switch provider {
	case "anthropic":
		return anthropic.New(), nil
	case "openai":
		return openai.New(), nil
	case "mock":
		return model.NewMock(), nil
	case "auto":
		if os.Getenv("ANTHROPIC_API_KEY") != "" {
			return anthropic.New(), nil
		}
		if os.Getenv("OPENAI_API_KEY") != "" {
			return openai.New(), nil
		}
		return model.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

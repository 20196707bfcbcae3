package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agrisense/agrisense/agent"
	"github.com/agrisense/agrisense/core/llm"
	"github.com/agrisense/agrisense/internal/profile"
	"github.com/agrisense/agrisense/internal/version"
	"github.com/agrisense/agrisense/metrics"
	"github.com/agrisense/agrisense/orchestrator"
	"github.com/agrisense/agrisense/server"
	"github.com/agrisense/agrisense/session"
	"github.com/agrisense/agrisense/workflow"
)

var rootCmd = &cobra.Command{
	Use:   "agrisense",
	Short: `An AI-powered agricultural advisory service. Ask farming questions, get multi-agent expert answers.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Only load .env for direct binary execution; a service manager
		// supplies environment variables itself.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		logger := slog.Default()

		var llmService llm.Service
		if instanceProfile.IsAIEnabled() {
			svc, err := llm.NewService(&llm.Config{
				Provider: instanceProfile.LLMProvider,
				Model:    instanceProfile.LLMModel,
				APIKey:   instanceProfile.LLMAPIKey,
				BaseURL:  instanceProfile.LLMBaseURL,
				Timeout:  instanceProfile.LLMTimeout,
			})
			if err != nil {
				slog.Warn("failed to initialize LLM service, degrading to deterministic mode",
					"provider", instanceProfile.LLMProvider, "error", err)
			} else {
				llmService = svc
				slog.Info("LLM service initialized",
					"provider", instanceProfile.LLMProvider,
					"model", instanceProfile.LLMModel)
			}
		} else {
			slog.Info("LLM disabled, running with keyword routing and deterministic synthesis")
		}

		var primary session.Store
		if instanceProfile.RedisURL != "" {
			store, err := session.NewRedisStore(instanceProfile.RedisURL, instanceProfile.SessionTTL)
			if err != nil {
				slog.Warn("redis unavailable, sessions are process-local", "error", err)
			} else {
				primary = store
				slog.Info("redis session store connected")
			}
		}
		sessions := session.NewManager(primary, instanceProfile.SessionTTL, instanceProfile.SessionHistory, logger)

		if instanceProfile.WorkflowsFile != "" {
			if err := workflow.LoadTemplates(instanceProfile.WorkflowsFile); err != nil {
				slog.Error("failed to load workflow templates", "path", instanceProfile.WorkflowsFile, "error", err)
				return
			}
			slog.Info("workflow templates loaded", "path", instanceProfile.WorkflowsFile)
		}

		registry := agent.NewRegistry()
		if err := agent.NewCatalogAdvisors(registry, llmService, logger); err != nil {
			slog.Error("failed to build agent fleet", "error", err)
			return
		}
		if err := registry.Register(agent.NewGeneralChat(llmService, logger)); err != nil {
			slog.Error("failed to register general chat agent", "error", err)
			return
		}

		exporter := metrics.NewExporter(metrics.Config{})

		orch := orchestrator.New(registry, llmService, sessions, logger, exporter,
			orchestrator.WithMaxAgents(instanceProfile.MaxAgents),
			orchestrator.WithAgentTimeout(instanceProfile.AgentTimeout),
			orchestrator.WithMaxParallelTasks(instanceProfile.MaxParallelTasks),
			orchestrator.WithLowLLMMode(instanceProfile.LowLLMMode),
		)

		s := server.NewServer(instanceProfile, orch, registry, sessions, exporter, logger)

		c := make(chan os.Signal, 1)
		// SIGTERM is the graceful shutdown signal for most process managers.
		signal.Notify(c, terminationSignals...)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)

		addr := fmt.Sprintf("%s:%d", instanceProfile.Addr, instanceProfile.Port)
		if err := s.Start(addr); err != nil {
			slog.Error("failed to start server", "error", err)
			cancel()
		}

		<-ctx.Done()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("port", 28090)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28090, "port of server")

	for _, flag := range []string{"mode", "addr", "port"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("agrisense")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("AgriSense %s started successfully!\n", p.Version)

	if p.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}
	fmt.Printf("Mode: %s\n", p.Mode)
	if len(p.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", p.Port)
		fmt.Printf("Ask away: curl -X POST http://localhost:%d/api/v1/query -d '{\"query\":\"what should I plant this season?\"}'\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}

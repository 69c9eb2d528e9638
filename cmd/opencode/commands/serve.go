package commands

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"github.com/spf13/cobra"

	"github.com/steerrt/agentrt/internal/agent"
	"github.com/steerrt/agentrt/internal/approval"
	"github.com/steerrt/agentrt/internal/config"
	"github.com/steerrt/agentrt/internal/credential"
	"github.com/steerrt/agentrt/internal/executor"
	"github.com/steerrt/agentrt/internal/llm"
	"github.com/steerrt/agentrt/internal/logging"
	"github.com/steerrt/agentrt/internal/persist"
	"github.com/steerrt/agentrt/internal/rpc"
	"github.com/steerrt/agentrt/internal/session"
	"github.com/steerrt/agentrt/internal/storage"
	"github.com/steerrt/agentrt/internal/tool"
	"github.com/steerrt/agentrt/internal/workspace"
	"github.com/steerrt/agentrt/pkg/types"
)

var (
	serveBind      string
	servePort      int
	serveDebugPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent service over gRPC",
	Long: `Run agentrt as a long-lived Agent Service: a gRPC server holding every
resident session, driven by remote clients through the unary and streaming
RPCs described in proto/agent/v1/agent.proto.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveBind, "bind", "127.0.0.1", "Address to bind the Agent Service to")
	serveCmd.Flags().IntVar(&servePort, "port", 4096, "Port to bind the Agent Service to")
	serveCmd.Flags().IntVar(&serveDebugPort, "debug-port", 4097, "Port to bind the healthz/debug HTTP listener to (0 disables it)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return fmt.Errorf("ensure paths: %w", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	appConfig, err := config.Load(workDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if model := GetGlobalModel(); model != "" {
		appConfig.Model = model
	}
	if appConfig.Model == "" {
		appConfig.Model = "anthropic/claude-sonnet-4-20250514"
	}

	persistDB, err := persist.Open(paths.SessionDBPath())
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer persistDB.Close()

	credStore, err := credential.NewStore()
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}

	llmRegistry := llm.InitializeClients(providerSettings(appConfig.Provider), credential.Resolver{Store: credStore}, appConfig.Model)

	agentRegistry := agent.NewRegistry()
	if appConfig.Agent != nil {
		agentRegistry.LoadFromConfig(appConfig.Agent)
	}

	store := storage.New(paths.StoragePath())

	// DefaultRegistry only needs a Workspace to discover which file/search
	// tools to register; DefaultExecutionFunc resolves the actual
	// per-session workspace at call time, so one process-wide local
	// workspace rooted at the server's cwd is enough to seed the catalog.
	seedWS := workspace.NewLocalWorkspace("serve", workDir, false)
	toolRegistry := tool.DefaultRegistry(seedWS, store)
	toolRegistry.RegisterTaskTool(agentRegistry)

	providerID, modelID := llm.ParseModelString(appConfig.Model)
	toolRegistry.SetTaskExecutor(executor.NewSubagentDispatcher(llmRegistry, agentRegistry, toolRegistry, seedWS, types.ModelRef{ProviderID: providerID, ModelID: modelID}))

	deps := session.Deps{
		LLM:          llmRegistry,
		Tools:        toolRegistry,
		Agents:       agentRegistry,
		Persist:      persistDB,
		DoomLoop:     approval.NewDoomLoopDetector(),
		GlobalConfig: appConfig,
	}

	manager := session.NewManager(deps, persistDB, session.DefaultMaxResident)
	rpcServer := rpc.NewServer(manager, credStore)

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", serveBind, servePort))
	if err != nil {
		return fmt.Errorf("listen on %s:%d: %w", serveBind, servePort, err)
	}

	gs := grpc.NewServer(grpc.ForceServerCodec(rpc.JSONCodec{}))
	rpc.Register(gs, rpcServer)

	logging.Info().Str("addr", lis.Addr().String()).Msg("agent service listening")

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()

	var debugSrv *http.Server
	if serveDebugPort > 0 {
		debugSrv = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", serveBind, serveDebugPort),
			Handler: rpc.DebugMux(rpcServer),
		}
		go func() {
			if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Warn().Err(err).Msg("debug listener stopped")
			}
		}()
		logging.Info().Str("addr", debugSrv.Addr).Msg("debug listener serving /healthz and /debug/sessions")
	}

	select {
	case <-ctx.Done():
		logging.Info().Msg("agent service shutting down")
		gs.GracefulStop()
		if debugSrv != nil {
			_ = debugSrv.Close()
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// providerSettings adapts a GlobalConfig's provider map to the shape
// llm.InitializeClients expects, matching internal/headless's helper of the
// same name (duplicated rather than shared since headless and commands
// don't otherwise depend on each other).
func providerSettings(providers map[string]types.ProviderConfig) map[string]llm.ProviderSettings {
	settings := make(map[string]llm.ProviderSettings, len(providers))
	for name, cfg := range providers {
		settings[name] = llm.ProviderSettings{Disable: cfg.Disable}
	}
	return settings
}

package app

import (
	"context"

	"github.com/artfusion-app/artfusion-cli/internal/client/backend"
	"github.com/artfusion-app/artfusion-cli/internal/config"
	"github.com/artfusion-app/artfusion-cli/internal/logger"
	"github.com/artfusion-app/artfusion-cli/internal/service/credits"
	"github.com/artfusion-app/artfusion-cli/internal/service/hostenv"
	"github.com/artfusion-app/artfusion-cli/internal/service/oauth"
	"github.com/artfusion-app/artfusion-cli/internal/service/session"
	"github.com/artfusion-app/artfusion-cli/internal/storage"
)

// appStack bundles the wired service layer for a single command run.
type appStack struct {
	cfg      *config.Config
	tokens   *storage.FileTokenStore
	client   backend.Client
	detector hostenv.Detector
	session  session.Service
	credits  credits.Service
}

// newAppStack wires the full service stack from configuration.
func newAppStack(ctx context.Context, cfg *config.Config) (*appStack, error) {
	tokens := storage.NewFileTokenStore(cfg.TokenFilePath)

	client, err := backend.NewClient(cfg, tokens)
	if err != nil {
		return nil, err
	}

	handshakes := storage.NewFileHandshakeStore(cfg.HandshakeFilePath)
	oauthService := oauth.NewService(cfg, client, handshakes, tokens)
	detector := hostenv.NewDetector(hostenv.NewEnvBridge())
	sessionService := session.NewService(cfg, client, tokens, oauthService, detector)

	creditsService, err := credits.NewService(sessionService, client)
	if err != nil {
		return nil, err
	}

	logger.Debugf(ctx, "Service stack wired against %s", client.GetBaseURL())

	return &appStack{
		cfg:      cfg,
		tokens:   tokens,
		client:   client,
		detector: detector,
		session:  sessionService,
		credits:  creditsService,
	}, nil
}

// teardown stops the stack's background work.
func (s *appStack) teardown() {
	s.session.Teardown()
}

// ExecuteStatusCommand is the entry point for the bare root command: it
// initializes the session and reports where the client stands.
func ExecuteStatusCommand(ctx context.Context, cfg *config.Config) {
	stack, err := newAppStack(ctx, cfg)
	if err != nil {
		logger.Fatalf(ctx, "Failed to initialize application: %v", err)
	}

	defer stack.teardown()

	stack.session.Initialize(ctx)

	logger.Infof(ctx, "Session state: %s", stack.session.CurrentState())

	if stack.session.CurrentState() != session.StateAuthenticated {
		logger.Info(ctx, "Not logged in. Run 'artfusion login <provider>' to authenticate.")

		return
	}

	printProfile(ctx, stack)
}

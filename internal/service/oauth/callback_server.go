package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/artfusion-app/artfusion-cli/internal/logger"
)

const (
	// callbackPathFormat is the path the provider redirects back to.
	callbackPathFormat = "/auth/callback/%s"

	// callbackServerShutdownTimeout bounds the graceful shutdown.
	callbackServerShutdownTimeout = 2 * time.Second

	// callbackReadHeaderTimeout guards the loopback listener against
	// slow-header connections.
	callbackReadHeaderTimeout = 5 * time.Second

	// callbackResponseBody is shown in the browser after the redirect lands.
	callbackResponseBody = `<!DOCTYPE html>
<html>
<head><title>Artfusion</title></head>
<body>
<p>Login received. You can close this window and return to the terminal.</p>
</body>
</html>`
)

// startCallbackServer starts the loopback HTTP server that receives the
// provider redirect. Only the first callback is delivered; repeated hits
// on the callback URL are answered but dropped.
func (s *ServiceImpl) startCallbackServer(
	ctx context.Context,
	provider string,
) (<-chan url.Values, func(), error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.cfg.CallbackPort))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on callback port %d: %w", s.cfg.CallbackPort, err)
	}

	callbacks := make(chan url.Values, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf(callbackPathFormat, provider), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(callbackResponseBody))

		select {
		case callbacks <- r.URL.Query():
		default:
			// A callback was already delivered.
			logger.Debug(r.Context(), "Duplicate provider callback ignored")
		}
	})

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: callbackReadHeaderTimeout,
	}

	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Debugf(ctx, "Callback server stopped: %v", serveErr)
		}
	}()

	logger.Debugf(ctx, "Callback server listening on 127.0.0.1:%d", s.cfg.CallbackPort)

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), callbackServerShutdownTimeout)
		defer cancel()

		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Debugf(ctx, "Callback server shutdown error: %v", shutdownErr)
		}
	}

	return callbacks, stop, nil
}

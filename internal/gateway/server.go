package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"forum-warden/internal/config"
	"forum-warden/internal/logger"
	"forum-warden/internal/moderation"
	"forum-warden/internal/platform"
	"forum-warden/internal/store"
)

// Server is the HTTP ingress for platform event envelopes and the operator
// snapshot surface.
type Server struct {
	server   *http.Server
	certFile string
	keyFile  string
}

// envelope wraps one platform event. Exactly one payload field is set,
// selected by Type.
type envelope struct {
	Type           string                         `json:"type"`
	MessageCreated *platform.MessageCreatedEvent  `json:"message_created,omitempty"`
	ThreadCreated  *platform.ThreadCreatedEvent   `json:"thread_created,omitempty"`
	Interaction    *platform.InteractionEvent     `json:"interaction,omitempty"`
}

// Start starts the gateway server
func (s *Server) Start() error {
	logger.Infof("Starting HTTP server on %s", s.server.Addr)

	if s.certFile != "" && s.keyFile != "" {
		logger.Infof("Using TLS with cert: %s, key: %s", s.certFile, s.keyFile)
		return s.server.ListenAndServeTLS(s.certFile, s.keyFile)
	}

	logger.Infof("WARNING: Running without TLS. Make sure you have a HTTPS proxy in front of this server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Setup wires the event and snapshot routes and returns the server.
func Setup(cfg *config.Config, svc *moderation.Service, st *store.Store) (*Server, error) {
	if cfg.Gateway.ListenAddr == "" {
		return nil, fmt.Errorf("gateway listen address is required")
	}

	mux := http.NewServeMux()

	mux.HandleFunc(cfg.Gateway.EventPath, func(w http.ResponseWriter, r *http.Request) {
		handleEvent(w, r, cfg, svc)
	})

	if cfg.Gateway.DebugPath != "" {
		mux.HandleFunc(cfg.Gateway.DebugPath, func(w http.ResponseWriter, r *http.Request) {
			logger.Infof("Debug endpoint accessed: %s %s", r.Method, r.URL.Path)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "forum-warden event gateway is running\n")
			fmt.Fprintf(w, "Guild: %s\n", cfg.Guild.ID)
			fmt.Fprintf(w, "Monitored channels: %d\n", len(cfg.Guild.AllowedChannels))
			fmt.Fprintf(w, "Featured forums: %d\n", len(cfg.Guild.FeaturedForums))
		})
	}

	// Operator snapshot surface.
	mux.HandleFunc("/state/bans", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, st.BannedEntries())
	})
	mux.HandleFunc("/state/permissions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, st.PermissionEntries())
	})
	mux.HandleFunc("/state/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, st.StatsSnapshot())
	})
	mux.HandleFunc("/state/featured", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, st.FeaturedSnapshot())
	})

	server := &http.Server{
		Addr:    cfg.Gateway.ListenAddr,
		Handler: mux,
	}

	return &Server{
		server:   server,
		certFile: cfg.Gateway.CertFile,
		keyFile:  cfg.Gateway.KeyFile,
	}, nil
}

func handleEvent(w http.ResponseWriter, r *http.Request, cfg *config.Config, svc *moderation.Service) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if cfg.Gateway.SecretToken != "" && r.Header.Get("X-Gateway-Token") != cfg.Gateway.SecretToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var env envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, "invalid event payload", http.StatusBadRequest)
		return
	}

	switch env.Type {
	case "message_created":
		if env.MessageCreated == nil {
			http.Error(w, "missing message_created payload", http.StatusBadRequest)
			return
		}
		svc.HandleMessageCreated(r.Context(), env.MessageCreated)
		w.WriteHeader(http.StatusAccepted)

	case "thread_created":
		if env.ThreadCreated == nil {
			http.Error(w, "missing thread_created payload", http.StatusBadRequest)
			return
		}
		svc.HandleThreadCreated(r.Context(), env.ThreadCreated)
		w.WriteHeader(http.StatusAccepted)

	case "interaction":
		if env.Interaction == nil {
			http.Error(w, "missing interaction payload", http.StatusBadRequest)
			return
		}
		rec, err := svc.HandleInteraction(r.Context(), env.Interaction)
		if err != nil {
			http.Error(w, statusMessage(err), statusCode(err))
			return
		}
		writeJSON(w, map[string]string{
			"action": rec.Action.String(),
			"result": rec.Result,
		})

	default:
		http.Error(w, "unknown event type: "+env.Type, http.StatusBadRequest)
	}
}

// statusCode maps the moderation error taxonomy onto HTTP statuses.
func statusCode(err error) int {
	switch {
	case errors.Is(err, moderation.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, moderation.ErrInvalidChannel):
		return http.StatusBadRequest
	case errors.Is(err, moderation.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, platform.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// statusMessage hides unexpected error details from the caller.
func statusMessage(err error) string {
	switch {
	case errors.Is(err, moderation.ErrPermissionDenied):
		return "You do not have permission for this action."
	case errors.Is(err, moderation.ErrInvalidChannel):
		return "This command can only be used in threads."
	case errors.Is(err, moderation.ErrTimeout):
		return "Operation timed out. Please try again."
	case errors.Is(err, platform.ErrNotFound):
		return "The referenced channel or user was not found."
	default:
		return "The operation failed."
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Error encoding response: %v", err)
	}
}

package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mchmarny/hireable/pkg/data"
	"github.com/mchmarny/hireable/pkg/eval"
	urfave "github.com/urfave/cli/v3"
	"golang.org/x/sync/singleflight"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
)

var (
	// GitHub logins: alphanumerics and hyphens, at most 39 chars.
	usernameExp = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`)

	portFlag = &urfave.IntFlag{
		Name:    "port",
		Usage:   "Port on which the server will listen (default: config server.port)",
		Sources: urfave.EnvVars("PORT"),
	}

	addressFlag = &urfave.StringFlag{
		Name:  "address",
		Usage: "Interface to bind",
		Value: "127.0.0.1",
	}

	serverCmd = &urfave.Command{
		Name:            "server",
		Aliases:         []string{"serve"},
		Usage:           "Start the JSON scoring API",
		HideHelpCommand: true,
		Flags: []urfave.Flag{
			portFlag,
			addressFlag,
			aiFlag,
		},
		Action: cmdStartServer,
	}
)

func cmdStartServer(ctx context.Context, cmd *urfave.Command) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}

	ev, err := cfg.evaluator(ctx, cmd.Bool(aiFlag.Name))
	if err != nil {
		return err
	}

	port := cmd.Int(portFlag.Name)
	if port <= 0 {
		port = cfg.Conf.Server.Port
	}
	address := fmt.Sprintf("%s:%d", cmd.String(addressFlag.Name), port)

	api := &reportAPI{
		db:   cfg.DB,
		src:  cfg.source(ctx),
		ev:   ev,
		opts: cfg.reportOptions(false),
	}

	s := &http.Server{
		Addr:           address,
		Handler:        makeRouter(api),
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	errCh := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("server started", "address", "http://"+address, "evaluator", ev != nil)

	select {
	case <-done:
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("error starting server: %w", err)
	}

	sctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

type reportAPI struct {
	db    *sql.DB
	src   data.CandidateSource
	ev    eval.Evaluator
	opts  data.ReportOptions
	group singleflight.Group
}

func makeRouter(api *reportAPI) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", api.healthHandler)
	mux.HandleFunc("GET /api/report/{username}", api.reportHandler)
	mux.HandleFunc("GET /api/reports", api.reportsHandler)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *reportAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.db.PingContext(r.Context()); err != nil {
		slog.Error("database ping failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version,
	})
}

// reportHandler serves a stored or freshly computed report. Concurrent
// requests for the same user share one computation.
func (a *reportAPI) reportHandler(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(r.PathValue("username"))
	if !usernameExp.MatchString(username) {
		writeError(w, http.StatusBadRequest, "invalid username")
		return
	}

	opts := a.opts
	if v := r.URL.Query().Get("refresh"); v != "" {
		refresh, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid refresh value")
			return
		}
		opts.Refresh = refresh
	}

	// The shared computation outlives any single caller; each request only
	// stops waiting when its own client goes away.
	key := username + "|" + strconv.FormatBool(opts.Refresh)
	ch := a.group.DoChan(key, func() (any, error) {
		return data.GetOrComputeReport(context.WithoutCancel(r.Context()), a.db, a.src, a.ev, username, opts)
	})

	var res singleflight.Result
	select {
	case <-r.Context().Done():
		slog.Debug("client gone before report was ready", "username", username, "error", r.Context().Err())
		return
	case res = <-ch:
	}

	if errors.Is(res.Err, data.ErrCandidateNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if res.Err != nil {
		slog.Error("failed to compute report", "username", username, "error", res.Err)
		writeError(w, http.StatusInternalServerError, "failed to compute report")
		return
	}

	writeJSON(w, http.StatusOK, res.Val)
}

func (a *reportAPI) reportsHandler(w http.ResponseWriter, r *http.Request) {
	limit := data.ReportLimitDefault
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	list, err := data.ListReports(a.db, limit)
	if err != nil {
		slog.Error("failed to list reports", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/cell"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// CallbackHandler receives the OAuth2 authorization code redirect for a single authorization session.
// Implements the [Handler] interface for registration with a [Router].
//
// The first valid callback resolves the session's cell with the code. Invalid callbacks are answered
// with 400 and leave the cell pending so the user can retry.
type CallbackHandler struct {
	path   string
	state  string
	code   *cell.Cell[string]
	logger *log.Logger
}

// NewCallbackHandler creates a handler serving /<path> that only accepts callbacks echoing state.
// The state token should be cryptographically random for CSRF protection.
func NewCallbackHandler(path, state string, logger *log.Logger) *CallbackHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CallbackHandler{
		path:   "/" + strings.TrimPrefix(path, "/"),
		state:  state,
		code:   cell.New[string](),
		logger: logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP validates the callback query and resolves the session.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")

	if errParam := q.Get("error"); errParam != "" {
		if !h.validState(state) {
			h.reject(w, fmt.Errorf("%w: provider error without matching state", shared.ErrStateMismatch))
			return
		}
		err := fmt.Errorf("%w: %s", shared.ErrAuthDenied, errParam)
		if desc := q.Get("error_description"); desc != "" {
			err = fmt.Errorf("%w: %s - %s", shared.ErrAuthDenied, errParam, desc)
		}
		h.code.Reject(err)
		h.logger.Warn("authorization denied by provider", "error", errParam)
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	switch {
	case code == "":
		h.reject(w, fmt.Errorf("%w: code is required", shared.ErrValidation))
		return
	case state == "":
		h.reject(w, fmt.Errorf("%w: state is required", shared.ErrValidation))
		return
	case !h.validState(state):
		h.reject(w, shared.ErrStateMismatch)
		return
	}

	if !h.code.Resolve(code) {
		h.logger.Debug("callback received after session completed, ignoring")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "success")
}

// reject answers a malformed callback without touching the session.
func (h *CallbackHandler) reject(w http.ResponseWriter, err error) {
	h.logger.Warn("rejected authorization callback", "error", err)
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (h *CallbackHandler) validState(state string) bool {
	return subtle.ConstantTimeCompare([]byte(state), []byte(h.state)) == 1
}

// Code blocks until the session receives an authorization code, fails, or ctx is done.
func (h *CallbackHandler) Code(ctx context.Context) (string, error) {
	return h.code.Await(ctx)
}

// Done returns a channel closed once the session is resolved.
func (h *CallbackHandler) Done() <-chan struct{} {
	return h.code.Done()
}

// Ping answers liveness probes with "pong".
func Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "pong")
}

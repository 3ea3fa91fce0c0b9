// Package handler is the REST transport adapter. Handlers parse the
// request, hand it to the access mediator, and translate the verdict
// into the JSON envelope.
package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"model-gateway/internal/gateway"
	"model-gateway/internal/middleware"
)

type Handler struct {
	mediator *gateway.Mediator
	log      *logrus.Entry
}

func New(mediator *gateway.Mediator, log *logrus.Logger) *Handler {
	return &Handler{
		mediator: mediator,
		log:      log.WithField("component", "rest"),
	}
}

// Register mounts the REST routes on the router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/mcp/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/mcp/system/info", h.SystemInfo).Methods(http.MethodGet)
	r.HandleFunc("/mcp/auth/validate", h.ValidateAuth).Methods(http.MethodGet)
	r.HandleFunc("/mcp/models", h.ListModels).Methods(http.MethodGet)
	r.HandleFunc("/mcp/models/{model}/access", h.ModelAccess).Methods(http.MethodGet)
}

// Health is the only unauthenticated route. It reports 503 while the
// global switch is off so load balancers can take the gateway out of
// rotation.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.mediator.Enabled() {
		writeError(w, gateway.ErrGatewayDisabled)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"gateway_version": h.mediator.Version(),
	})
}

func (h *Handler) SystemInfo(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authorize(r); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, h.mediator.SystemInfo())
}

func (h *Handler) ValidateAuth(w http.ResponseWriter, r *http.Request) {
	principal, err := h.authorize(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"valid":   true,
		"user_id": principal.ID,
	})
}

func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authorize(r); err != nil {
		writeError(w, err)
		return
	}
	models := h.mediator.EnabledModels()
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"models": models,
		"total":  len(models),
	})
}

func (h *Handler) ModelAccess(w http.ResponseWriter, r *http.Request) {
	principal, err := h.authorize(r)
	if err != nil {
		writeError(w, err)
		return
	}

	req := h.parseRequest(r)
	req.Model = mux.Vars(r)["model"]

	access, err := h.mediator.ModelAccess(r.Context(), principal, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, access)
}

// authorize runs the non-dispatch pipeline for the current request.
func (h *Handler) authorize(r *http.Request) (*gateway.Principal, *gateway.Error) {
	return h.mediator.Authorize(r.Context(), h.parseRequest(r))
}

func (h *Handler) parseRequest(r *http.Request) *gateway.Request {
	return &gateway.Request{
		Endpoint:   r.URL.Path,
		HTTPMethod: r.Method,
		RemoteAddr: middleware.ClientIP(r),
		UserAgent:  r.UserAgent(),
		APIKey:     extractAPIKey(r),
	}
}

// extractAPIKey reads the key from X-API-Key or a bearer token.
func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

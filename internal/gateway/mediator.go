// Package gateway contains the access mediator: the one place that
// decides, for every inbound call, whether it may proceed, against
// whom it is rate limited, what it may touch, and what gets recorded
// about it. Transports parse requests and format verdicts; everything
// in between happens here.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"model-gateway/internal/audit"
	"model-gateway/internal/store"
)

// PermissionRegistry answers the three permission questions.
type PermissionRegistry interface {
	GatewayEnabled() bool
	ModelExposed(model string) bool
	OperationAllowed(model string, op Operation) bool
	ModelOperations(model string) map[string]bool
	EnabledModels() []ModelInfo
	EnabledModelCount() int
}

// CredentialValidator resolves an API key to a principal or nil.
type CredentialValidator interface {
	Validate(rawKey, ipAddress string) *Principal
}

// RateLimiter is the sliding-window limiter surface the mediator uses.
type RateLimiter interface {
	Check(principalID string) bool
	Record(principalID string)
}

// Request is one inbound call, already parsed by a transport adapter.
type Request struct {
	Endpoint   string
	HTTPMethod string
	RemoteAddr string
	UserAgent  string
	APIKey     string

	// Model and Method are set for record-store dispatch requests.
	Model  string
	Method string
	Args   []interface{}
	KWArgs map[string]interface{}
}

// Verdict is the mediator's terminal decision: a result on completion
// or an abstract error on rejection, never both.
type Verdict struct {
	Principal *Principal
	Result    interface{}
	Err       *Error
}

// Completed reports whether the request reached the record store and
// succeeded.
func (v Verdict) Completed() bool { return v.Err == nil }

// Info is static deployment information reported by /system/info.
type Info struct {
	Version  string
	Database string
	Language string
	Timezone string
}

// Mediator orchestrates credential validation, rate limiting,
// permission checks and dispatch for both transports. All collaborators
// are injected; the mediator holds no hidden globals.
type Mediator struct {
	params    ParamStore
	registry  PermissionRegistry
	validator CredentialValidator
	limiter   RateLimiter
	sink      audit.Sink
	records   store.RecordStore
	info      Info
	log       *logrus.Entry
}

func NewMediator(params ParamStore, registry PermissionRegistry, validator CredentialValidator,
	limiter RateLimiter, sink audit.Sink, records store.RecordStore, info Info, log *logrus.Logger) *Mediator {
	return &Mediator{
		params:    params,
		registry:  registry,
		validator: validator,
		limiter:   limiter,
		sink:      sink,
		records:   records,
		info:      info,
		log:       log.WithField("component", "mediator"),
	}
}

// guard is one step of the per-request pipeline. A nil return means
// continue; a non-nil error is the terminal rejection.
type guard func(*requestState) *Error

// requestState carries one request through the guard pipeline.
type requestState struct {
	ctx       context.Context
	req       *Request
	principal *Principal
	operation Operation
}

// Authorize runs the non-dispatch pipeline (global switch, credential,
// rate limit) for endpoints that never touch the record store.
func (m *Mediator) Authorize(ctx context.Context, req *Request) (*Principal, *Error) {
	s := &requestState{ctx: ctx, req: req}
	for _, g := range []guard{m.checkEnabled, m.authenticate, m.rateLimit} {
		if err := g(s); err != nil {
			return nil, err
		}
	}
	return s.principal, nil
}

// Dispatch mediates one record-store call end to end. Each request is
// mediated exactly once; the mediator never retries.
func (m *Mediator) Dispatch(ctx context.Context, req *Request) Verdict {
	// Malformed names are rejected before any cache, registry or
	// store interaction.
	model, err := SanitizeModelName(req.Model)
	if err != nil {
		return Verdict{Err: err}
	}
	req.Model = model

	s := &requestState{ctx: ctx, req: req}
	for _, g := range []guard{m.checkEnabled, m.authenticate, m.rateLimit, m.checkPermission} {
		if err := g(s); err != nil {
			return Verdict{Principal: s.principal, Err: err}
		}
	}
	return m.dispatch(s)
}

// checkEnabled short-circuits every call while the global switch is
// off, bypassing all other checks.
func (m *Mediator) checkEnabled(s *requestState) *Error {
	if !m.registry.GatewayEnabled() {
		return ErrGatewayDisabled
	}
	return nil
}

// authenticate resolves the caller. With key enforcement off, the
// well-known public principal is substituted and the call proceeds.
func (m *Mediator) authenticate(s *requestState) *Error {
	if !BoolParam(m.params, ParamUseAPIKeys, "true") {
		m.log.Warn("API key enforcement is disabled; using public principal")
		s.principal = &Principal{ID: PublicID, Active: true}
		return nil
	}

	principal := m.validator.Validate(s.req.APIKey, clientIP(s.req.RemoteAddr))
	if principal == nil {
		return ErrInvalidAPIKey
	}
	s.principal = principal
	return nil
}

// rateLimit enforces the sliding window. Anonymous traffic is capped
// in aggregate under the reserved identifier.
func (m *Mediator) rateLimit(s *requestState) *Error {
	if !BoolParam(m.params, ParamEnableRateLimit, "true") {
		return nil
	}

	id := AnonymousID
	if s.principal != nil {
		id = s.principal.ID
	}

	if !m.limiter.Check(id) {
		m.sink.Record(audit.Event{
			Kind:         audit.KindRateLimit,
			UserID:       id,
			IPAddress:    clientIP(s.req.RemoteAddr),
			Endpoint:     s.req.Endpoint,
			ErrorMessage: "Rate limit exceeded",
		})
		return ErrRateLimited
	}
	m.limiter.Record(id)
	return nil
}

// checkPermission resolves (model, operation) and applies the
// permission model. Order matters: method mapping is pure, the store
// existence check decides NotFound, and only then is the registry
// consulted for the operation.
func (m *Mediator) checkPermission(s *requestState) *Error {
	req := s.req

	op, ok := MapMethodToOperation(req.Method)
	if !ok {
		m.recordDenied(s, req.Method, fmt.Sprintf("Method '%s' has no operation mapping. Access denied.", req.Method))
		return NewError(KindForbidden, "Access denied for model '%s' method '%s'.", req.Model, req.Method)
	}
	s.operation = op

	exists, err := m.records.ModelExists(s.ctx, req.Model)
	if err != nil {
		m.recordError(s, "E500", err.Error())
		return NewError(KindInternal, "Internal server error")
	}
	if !exists {
		m.recordError(s, "E404", fmt.Sprintf("Model '%s' not found.", req.Model))
		return NewError(KindNotFound, "Model '%s' not found.", req.Model)
	}

	if !m.registry.OperationAllowed(req.Model, op) {
		m.recordDenied(s, string(op), fmt.Sprintf("Access denied for model '%s' method '%s'.", req.Model, req.Method))
		return NewError(KindForbidden, "Access denied for model '%s' method '%s'.", req.Model, req.Method)
	}
	return nil
}

// dispatch forwards the allowed call to the record store under the
// configured deadline and records the outcome.
func (m *Mediator) dispatch(s *requestState) Verdict {
	req := s.req
	ctx := s.ctx

	if timeout := IntParam(m.params, ParamRequestTimeout, DefaultRequestTimeout); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	start := time.Now()
	result, recordIDs, err := m.invoke(ctx, req)
	duration := time.Since(start)

	if err != nil {
		if gwErr, ok := err.(*Error); ok && gwErr.Kind == KindBadRequest {
			return Verdict{Principal: s.principal, Err: gwErr}
		}
		m.sink.Record(audit.Event{
			Kind:         audit.KindError,
			UserID:       s.principal.ID,
			IPAddress:    clientIP(req.RemoteAddr),
			Endpoint:     req.Endpoint,
			Model:        req.Model,
			Operation:    req.Method,
			ErrorMessage: err.Error(),
			ErrorCode:    "E500",
			Duration:     duration,
		})
		m.log.WithError(err).WithFields(logrus.Fields{"model": req.Model, "method": req.Method}).Error("Record store call failed")
		return Verdict{Principal: s.principal, Err: NewError(KindInternal, "Internal server error")}
	}

	m.sink.Record(audit.Event{
		Kind:       audit.KindModelAccess,
		UserID:     s.principal.ID,
		APIKeyUsed: req.APIKey != "",
		IPAddress:  clientIP(req.RemoteAddr),
		Endpoint:   req.Endpoint,
		HTTPMethod: req.HTTPMethod,
		Model:      req.Model,
		Operation:  req.Method,
		RecordIDs:  recordIDs,
		Duration:   duration,
	})
	if s.operation != OpRead {
		m.sink.Record(audit.Event{
			Kind:      audit.KindWriteOperation,
			UserID:    s.principal.ID,
			IPAddress: clientIP(req.RemoteAddr),
			Endpoint:  req.Endpoint,
			Model:     req.Model,
			Operation: req.Method,
			RecordIDs: recordIDs,
			Duration:  duration,
		})
	}

	return Verdict{Principal: s.principal, Result: result}
}

// ModelAccess serves the introspection endpoint: is the model exposed
// and which operations does it allow.
func (m *Mediator) ModelAccess(ctx context.Context, principal *Principal, req *Request) (map[string]interface{}, *Error) {
	start := time.Now()

	model, err := SanitizeModelName(req.Model)
	if err != nil {
		return nil, err
	}

	exists, lookupErr := m.records.ModelExists(ctx, model)
	if lookupErr != nil {
		return nil, NewError(KindInternal, "Internal server error")
	}
	if !exists {
		m.sink.Record(audit.Event{
			Kind:         audit.KindError,
			UserID:       principalID(principal),
			IPAddress:    clientIP(req.RemoteAddr),
			Endpoint:     req.Endpoint,
			Model:        model,
			Operation:    "access",
			ErrorMessage: fmt.Sprintf("Model '%s' not found.", model),
			ErrorCode:    "E404",
		})
		return nil, NewError(KindNotFound, "Model '%s' not found.", model)
	}

	if !m.registry.ModelExposed(model) {
		m.sink.Record(audit.Event{
			Kind:         audit.KindPermissionDenied,
			UserID:       principalID(principal),
			IPAddress:    clientIP(req.RemoteAddr),
			Endpoint:     req.Endpoint,
			Model:        model,
			Operation:    "access",
			ErrorMessage: fmt.Sprintf("Model '%s' is not enabled for gateway access.", model),
			Duration:     time.Since(start),
		})
		return nil, NewError(KindForbidden, "Model '%s' is not enabled for gateway access.", model)
	}

	m.sink.Record(audit.Event{
		Kind:       audit.KindModelAccess,
		UserID:     principalID(principal),
		IPAddress:  clientIP(req.RemoteAddr),
		Endpoint:   req.Endpoint,
		HTTPMethod: req.HTTPMethod,
		Model:      model,
		Operation:  "access",
		Duration:   time.Since(start),
	})

	return map[string]interface{}{
		"model":      model,
		"enabled":    true,
		"operations": m.registry.ModelOperations(model),
	}, nil
}

// EnabledModels lists exposed models for the listing endpoint.
func (m *Mediator) EnabledModels() []ModelInfo {
	return m.registry.EnabledModels()
}

// SystemInfo reports deployment information for authenticated callers.
func (m *Mediator) SystemInfo() map[string]interface{} {
	return map[string]interface{}{
		"db_name":         m.info.Database,
		"gateway_version": m.info.Version,
		"language":        m.info.Language,
		"server_timezone": m.info.Timezone,
		"enabled_models":  m.registry.EnabledModelCount(),
	}
}

// Version returns the gateway version string.
func (m *Mediator) Version() string { return m.info.Version }

// Database returns the configured database name.
func (m *Mediator) Database() string { return m.info.Database }

// Enabled reports the global switch for health checks.
func (m *Mediator) Enabled() bool { return m.registry.GatewayEnabled() }

func (m *Mediator) recordDenied(s *requestState, operation, message string) {
	m.sink.Record(audit.Event{
		Kind:         audit.KindPermissionDenied,
		UserID:       principalID(s.principal),
		IPAddress:    clientIP(s.req.RemoteAddr),
		Endpoint:     s.req.Endpoint,
		Model:        s.req.Model,
		Operation:    operation,
		ErrorMessage: message,
	})
}

func (m *Mediator) recordError(s *requestState, code, message string) {
	m.sink.Record(audit.Event{
		Kind:         audit.KindError,
		UserID:       principalID(s.principal),
		IPAddress:    clientIP(s.req.RemoteAddr),
		Endpoint:     s.req.Endpoint,
		Model:        s.req.Model,
		Operation:    s.req.Method,
		ErrorMessage: message,
		ErrorCode:    code,
	})
}

func principalID(p *Principal) string {
	if p == nil {
		return ""
	}
	return p.ID
}

// clientIP strips the port from a remote address when present.
func clientIP(remoteAddr string) string {
	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 && !strings.Contains(remoteAddr[idx:], "]") {
		return remoteAddr[:idx]
	}
	return remoteAddr
}

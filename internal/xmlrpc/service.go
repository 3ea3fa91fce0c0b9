package xmlrpc

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"model-gateway/internal/gateway"
	"model-gateway/internal/middleware"
)

// maxRequestBody bounds how much XML a single call may carry.
const maxRequestBody = 4 << 20

// Service exposes the three classic RPC endpoints: common for
// version and authentication, db for administrative queries, and
// object for record access through execute_kw.
type Service struct {
	mediator *gateway.Mediator
	log      *logrus.Entry
}

func New(mediator *gateway.Mediator, log *logrus.Logger) *Service {
	return &Service{
		mediator: mediator,
		log:      log.WithField("component", "xmlrpc"),
	}
}

// Register mounts the RPC routes on the router.
func (s *Service) Register(r *mux.Router) {
	r.HandleFunc("/mcp/xmlrpc/common", s.Common).Methods(http.MethodPost)
	r.HandleFunc("/mcp/xmlrpc/db", s.DB).Methods(http.MethodPost)
	r.HandleFunc("/mcp/xmlrpc/object", s.Object).Methods(http.MethodPost)
}

// Common serves version and authenticate.
func (s *Service) Common(w http.ResponseWriter, r *http.Request) {
	method, params, err := s.readCall(w, r)
	if err != nil {
		return
	}

	switch method {
	case "version":
		writeResult(w, map[string]interface{}{
			"server_version":   s.mediator.Version(),
			"protocol_version": int64(1),
		})
	case "authenticate":
		s.authenticate(w, r, params)
	default:
		writeFault(w, http.StatusBadRequest, fmt.Sprintf("Unknown method '%s'", method))
	}
}

// authenticate treats the password slot of the classic signature
// (db, login, password, env) as the API key. Invalid credentials
// answer boolean false rather than a fault, matching the convention
// RPC clients already handle.
func (s *Service) authenticate(w http.ResponseWriter, r *http.Request, params []interface{}) {
	if len(params) < 3 {
		writeFault(w, http.StatusBadRequest, "authenticate requires at least 3 parameters")
		return
	}
	key, _ := params[2].(string)

	principal, authErr := s.mediator.Authorize(r.Context(), s.request(r, key))
	if authErr != nil {
		if authErr.Kind == gateway.KindUnauthorized {
			writeResult(w, false)
			return
		}
		writeFault(w, authErr.HTTPStatus(), authErr.Message)
		return
	}
	writeResult(w, principal.ID)
}

// DB serves server_version and list.
func (s *Service) DB(w http.ResponseWriter, r *http.Request) {
	method, _, err := s.readCall(w, r)
	if err != nil {
		return
	}

	switch method {
	case "server_version":
		writeResult(w, s.mediator.Version())
	case "list":
		writeResult(w, []interface{}{s.mediator.Database()})
	default:
		writeFault(w, http.StatusBadRequest, fmt.Sprintf("Unknown method '%s'", method))
	}
}

// Object accepts only execute_kw and hands the parsed call to the
// mediator. Any other method name is rejected before mediation.
func (s *Service) Object(w http.ResponseWriter, r *http.Request) {
	method, params, err := s.readCall(w, r)
	if err != nil {
		return
	}

	if method != "execute_kw" {
		writeFault(w, http.StatusBadRequest, fmt.Sprintf("Method '%s' is not supported. Use execute_kw.", method))
		return
	}
	if len(params) < 5 {
		writeFault(w, http.StatusBadRequest, "execute_kw requires at least 5 parameters")
		return
	}

	key, _ := params[2].(string)
	model, okModel := params[3].(string)
	rpcMethod, okMethod := params[4].(string)
	if !okModel || !okMethod {
		writeFault(w, http.StatusBadRequest, "Model and method must be strings")
		return
	}

	req := s.request(r, key)
	req.Model = model
	req.Method = rpcMethod
	if len(params) > 5 {
		if args, ok := params[5].([]interface{}); ok {
			req.Args = args
		}
	}
	if len(params) > 6 {
		if kwargs, ok := params[6].(map[string]interface{}); ok {
			req.KWArgs = kwargs
		}
	}

	verdict := s.mediator.Dispatch(r.Context(), req)
	if verdict.Err != nil {
		writeFault(w, verdict.Err.HTTPStatus(), verdict.Err.Message)
		return
	}
	writeResult(w, verdict.Result)
}

// readCall parses the request body, answering a 400 fault itself on
// framing errors.
func (s *Service) readCall(w http.ResponseWriter, r *http.Request) (string, []interface{}, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeFault(w, http.StatusBadRequest, "Unable to read request body")
		return "", nil, err
	}

	method, params, err := parseCall(body)
	if err != nil {
		writeFault(w, http.StatusBadRequest, err.Error())
		return "", nil, err
	}
	return method, params, nil
}

func (s *Service) request(r *http.Request, key string) *gateway.Request {
	return &gateway.Request{
		Endpoint:   r.URL.Path,
		HTTPMethod: r.Method,
		RemoteAddr: middleware.ClientIP(r),
		UserAgent:  r.UserAgent(),
		APIKey:     key,
	}
}

// Faults travel in a 200 response per XML-RPC convention; the numeric
// fault code carries the HTTP-aligned status.
func writeFault(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(marshalFault(code, message))
}

func writeResult(w http.ResponseWriter, result interface{}) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(marshalResponse(result))
}

package middleware

import (
	"net"
	"net/http"

	"github.com/MrEthical07/tokenpair"
	"go.uber.org/zap"
)

// Stage names, in evaluation order.
const (
	StagePublic         = "public"
	StageLogin          = "login"
	StageRefresh        = "refresh"
	StageLogout         = "logout"
	StageResourceAccess = "resource_access"
)

// Stage handles requests whose method and path match exactly.
type Stage struct {
	Name    string
	Method  string
	Path    string
	Handler http.Handler
}

// Pipeline dispatches each request to the first matching stage and sends
// everything else through ResourceAccess.
type Pipeline struct {
	engine    *tokenpair.Engine
	log       *zap.Logger
	public    []Stage
	rules     []Rule
	stages    []Stage
	resources http.Handler
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for stage outcomes.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithPublic serves method+path without authentication, ahead of every
// other stage.
func WithPublic(method, path string, h http.Handler) Option {
	return func(p *Pipeline) {
		p.public = append(p.public, Stage{Name: StagePublic, Method: method, Path: path, Handler: h})
	}
}

// WithRules replaces DefaultRules.
func WithRules(rules ...Rule) Option {
	return func(p *Pipeline) {
		p.rules = rules
	}
}

// NewPipeline wires the Login, Refresh and Logout stages on /auth and
// protects resources behind Guard and Policy.
func NewPipeline(engine *tokenpair.Engine, resources http.Handler, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine: engine,
		log:    zap.NewNop(),
		rules:  DefaultRules(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if resources == nil {
		resources = http.NotFoundHandler()
	}

	p.stages = append(p.stages, p.public...)
	p.stages = append(p.stages,
		Stage{Name: StageLogin, Method: http.MethodPost, Path: "/auth/login", Handler: http.HandlerFunc(p.login)},
		Stage{Name: StageRefresh, Method: http.MethodPost, Path: "/auth/refresh", Handler: http.HandlerFunc(p.refresh)},
		Stage{Name: StageLogout, Method: http.MethodPost, Path: "/auth/logout", Handler: http.HandlerFunc(p.logout)},
	)
	p.resources = Guard(engine, p.log)(Policy(engine, p.log, p.rules...)(resources))
	return p
}

// Stages returns the stage names in evaluation order, ending with
// ResourceAccess.
func (p *Pipeline) Stages() []string {
	names := make([]string, 0, len(p.stages)+1)
	for _, s := range p.stages {
		names = append(names, s.Name)
	}
	return append(names, StageResourceAccess)
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := tokenpair.WithClientIP(r.Context(), clientIP(r))
	ctx = tokenpair.WithUserAgent(ctx, r.UserAgent())
	r = r.WithContext(ctx)

	name, h := StageResourceAccess, p.resources
	for _, s := range p.stages {
		if r.Method == s.Method && r.URL.Path == s.Path {
			name, h = s.Name, s.Handler
			break
		}
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.ServeHTTP(rec, r)
	p.log.Debug("stage complete",
		zap.String("stage", name),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
	)
}

func (p *Pipeline) login(w http.ResponseWriter, r *http.Request) {
	subject, password, ok := r.BasicAuth()
	if !ok {
		WriteError(w, r, http.StatusUnauthorized)
		return
	}
	res, err := p.engine.Login(r.Context(), subject, password)
	if err != nil {
		reject(p.log, w, r, StageLogin, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (p *Pipeline) refresh(w http.ResponseWriter, r *http.Request) {
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		WriteError(w, r, http.StatusUnauthorized)
		return
	}
	res, err := p.engine.Refresh(r.Context(), raw)
	if err != nil {
		reject(p.log, w, r, StageRefresh, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (p *Pipeline) logout(w http.ResponseWriter, r *http.Request) {
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		WriteError(w, r, http.StatusUnauthorized)
		return
	}
	if err := p.engine.Logout(r.Context(), raw); err != nil {
		reject(p.log, w, r, StageLogout, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

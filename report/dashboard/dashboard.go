// Package dashboard serves a read-only HTTP+Swagger API over recent run
// summaries (SPEC_FULL.md §4.N), grounded on the teacher's rest_api package:
// a gin router, an optional Okta-JWT gate in front of every route, and
// swagger docs served via swaggo/gin-swagger + swaggo/files.
package dashboard

import (
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	jwtverifier "github.com/okta/okta-jwt-verifier-golang"
	swaggerfiles "github.com/swaggo/files"     // swagger embed files
	ginSwagger "github.com/swaggo/gin-swagger" // gin-swagger middleware

	"github.com/sharedcode/gocmocka"
	"github.com/sharedcode/gocmocka/report/dashboard/docs"
)

// Store is the read side the dashboard queries: the latest RunSummary per
// group plus, when a history backend (report.CassandraSink's table) is
// configured, past runs for one group. A MemoryStore satisfies this from
// in-process state; a Cassandra-backed implementation can satisfy it from
// the history table.
type Store interface {
	Groups() []*gocmocka.RunSummary
	Group(name string) (*gocmocka.RunSummary, bool)
	History(name string) []*gocmocka.RunSummary
}

// MemoryStore is a Store backed by the latest summaries seen in-process,
// the default when no Cassandra history backend is configured. It also
// implements gocmocka.Listener, so it can be registered directly in
// RunOptions.Listeners.
type MemoryStore struct {
	mu      sync.RWMutex
	latest  map[string]*gocmocka.RunSummary
	history map[string][]*gocmocka.RunSummary
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		latest:  make(map[string]*gocmocka.RunSummary),
		history: make(map[string][]*gocmocka.RunSummary),
	}
}

func (s *MemoryStore) Handle(ev gocmocka.Event) {
	if ev.Kind != gocmocka.EventGroupFinish {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[ev.Group] = ev.Summary
	s.history[ev.Group] = append(s.history[ev.Group], ev.Summary)
}

func (s *MemoryStore) Groups() []*gocmocka.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*gocmocka.RunSummary, 0, len(s.latest))
	for _, v := range s.latest {
		out = append(out, v)
	}
	return out
}

func (s *MemoryStore) Group(name string) (*gocmocka.RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.latest[name]
	return v, ok
}

func (s *MemoryStore) History(name string) []*gocmocka.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*gocmocka.RunSummary(nil), s.history[name]...)
}

// Server is the dashboard's gin router plus its JWT-gate configuration.
type Server struct {
	store      Store
	router     *gin.Engine
	jwtIssuer  string
	devBypass  bool
}

// New builds a Server over store. When jwtIssuer is non-empty, every
// /api/v1 route requires a valid Okta-issued bearer token for that issuer
// (SPEC_FULL.md §4.N), unless GOCMOCKA_ENV is "DEV", which disables the
// check; otherwise the API is open, suitable for local use.
func New(store Store, jwtIssuer string) *Server {
	docs.SwaggerInfo.BasePath = "/api/v1"
	s := &Server{
		store:     store,
		router:    gin.Default(),
		jwtIssuer: jwtIssuer,
		devBypass: os.Getenv("GOCMOCKA_ENV") == "DEV",
	}
	s.routes()
	return s
}

// Router exposes the underlying gin.Engine, e.g. for tests via httptest.
func (s *Server) Router() *gin.Engine { return s.router }

// Run blocks serving on addr (e.g. "localhost:8080").
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) routes() {
	v1 := s.router.Group("/api/v1")
	v1.Use(s.authGate)
	v1.GET("/groups", s.listGroups)
	v1.GET("/groups/:name", s.getGroup)
	v1.GET("/groups/:name/history", s.getHistory)

	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}

// authGate verifies the bearer token against s.jwtIssuer when one is
// configured; it is a no-op when no issuer is configured or when
// GOCMOCKA_ENV was "DEV" at New time.
func (s *Server) authGate(c *gin.Context) {
	if s.jwtIssuer == "" || s.devBypass {
		c.Next()
		return
	}
	auth := c.Request.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	verifier := (&jwtverifier.JwtVerifier{
		Issuer:           s.jwtIssuer,
		ClaimsToValidate: map[string]string{"aud": "api://default"},
	}).New()
	if _, err := verifier.VerifyAccessToken(token); err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	c.Next()
}

// listGroups godoc
// @Summary List the latest summary for every group
// @Produce json
// @Success 200 {array} gocmocka.RunSummary
// @Router /groups [get]
func (s *Server) listGroups(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Groups())
}

// getGroup godoc
// @Summary Get the latest summary for one group
// @Produce json
// @Param name path string true "Group name"
// @Success 200 {object} gocmocka.RunSummary
// @Failure 404 {object} map[string]string
// @Router /groups/{name} [get]
func (s *Server) getGroup(c *gin.Context) {
	g, ok := s.store.Group(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown group"})
		return
	}
	c.JSON(http.StatusOK, g)
}

// getHistory godoc
// @Summary Get the run history for one group
// @Produce json
// @Param name path string true "Group name"
// @Success 200 {array} gocmocka.RunSummary
// @Router /groups/{name}/history [get]
func (s *Server) getHistory(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.History(c.Param("name")))
}

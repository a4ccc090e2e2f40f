package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/momentos/internal/apiclient"
	"github.com/MarcoPoloResearchLab/momentos/internal/listsync"
	"github.com/MarcoPoloResearchLab/momentos/internal/moments"
	"github.com/MarcoPoloResearchLab/momentos/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionContextKey   = "momentos_session"
	requestIDContextKey = "momentos_request_id"
	requestIDHeader     = "X-Request-ID"

	defaultDismissAfter = 10 * time.Second
	maxUploadBytes      = 16 << 20
)

var (
	errMissingMomentAPI   = errors.New("moment api dependency required")
	errMissingAccountAPI  = errors.New("account api dependency required")
	errMissingSessions    = errors.New("session store dependency required")
	errMissingListControl = errors.New("list controller dependency required")
)

// MomentAPI is the part of the REST collaborator used by the moment views.
type MomentAPI interface {
	GetMoment(ctx context.Context, id moments.MomentID) (moments.Moment, error)
	CreateMoment(ctx context.Context, payload moments.Payload) error
	UpdateMoment(ctx context.Context, id moments.MomentID, payload moments.Payload) error
}

// AccountAPI is the part of the REST collaborator used by the auth and profile views.
type AccountAPI interface {
	Login(ctx context.Context, username, password string) (apiclient.LoginResult, error)
	CreateAccount(ctx context.Context, account apiclient.Account) error
	Profile(ctx context.Context) (apiclient.Profile, error)
	UpdateProfile(ctx context.Context, profile apiclient.Profile) error
}

// SessionStore persists the signed-in user.
type SessionStore interface {
	session.Provider
	Save(ctx context.Context, current session.Session) error
	Clear(ctx context.Context) error
}

// RequestIDProvider issues correlation identifiers for incoming requests.
type RequestIDProvider interface {
	NewID() (string, error)
}

// Dependencies wires the web frontend. An empty AllowedOrigins admits
// same-origin callers only. An empty SessionSecret is replaced by a random
// per-process key, so browser credentials do not survive a restart.
type Dependencies struct {
	Moments        MomentAPI
	Accounts       AccountAPI
	Sessions       SessionStore
	Lists          *listsync.Controller
	RequestIDs     RequestIDProvider
	AllowedOrigins []string
	SessionSecret  []byte
	SecureCookies  bool
	DismissAfter   time.Duration
	Clock          func() time.Time
	Logger         *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Moments == nil {
		return nil, errMissingMomentAPI
	}
	if deps.Accounts == nil {
		return nil, errMissingAccountAPI
	}
	if deps.Sessions == nil {
		return nil, errMissingSessions
	}
	if deps.Lists == nil {
		return nil, errMissingListControl
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	requestIDs := deps.RequestIDs
	if requestIDs == nil {
		requestIDs = NewUUIDProvider()
	}
	dismissAfter := deps.DismissAfter
	if dismissAfter <= 0 {
		dismissAfter = defaultDismissAfter
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	credentials, err := newClientCredentials(deps.SessionSecret, deps.SecureCookies, clock)
	if err != nil {
		return nil, err
	}

	handler := &httpHandler{
		moments:      deps.Moments,
		accounts:     deps.Accounts,
		sessions:     deps.Sessions,
		lists:        deps.Lists,
		requestIDs:   requestIDs,
		credentials:  credentials,
		dismissAfter: dismissAfter,
		clock:        clock,
		logger:       logger,
	}

	router := gin.New()
	router.MaxMultipartMemory = maxUploadBytes
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))
	router.Use(handler.assignRequestID)

	router.POST("/auth/login", handler.handleLogin)
	router.POST("/auth/register", handler.handleRegister)

	protected := router.Group("/")
	protected.Use(handler.requireSession)
	protected.POST("/auth/logout", handler.handleLogout)
	protected.GET("/profile", handler.handleShowProfile)
	protected.POST("/profile", handler.handleUpdateProfile)
	protected.GET("/dashboard", handler.handleDashboard)
	protected.GET("/dashboard/events", handler.handleDashboardEvents)
	protected.GET("/moments/:id", handler.handleShowMoment)
	protected.POST("/moments", handler.handleCreateMoment)
	protected.POST("/moments/:id", handler.handleUpdateMoment)

	return router, nil
}

// corsMiddleware admits the listed origins. Any other Origin is answered with
// 403 before routing, so simple form posts from foreign pages never reach a
// handler.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		config.AllowOriginFunc = func(string) bool { return false }
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

type httpHandler struct {
	moments      MomentAPI
	accounts     AccountAPI
	sessions     SessionStore
	lists        *listsync.Controller
	requestIDs   RequestIDProvider
	credentials  *clientCredentials
	dismissAfter time.Duration
	clock        func() time.Time
	logger       *zap.Logger
}

// requestContext carries the request id to outbound API calls.
func requestContext(c *gin.Context) context.Context {
	return apiclient.WithRequestID(c.Request.Context(), c.GetString(requestIDContextKey))
}

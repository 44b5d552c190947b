package app

import (
	"bitwise74/meet-api/app/agent"
	"bitwise74/meet-api/app/meeting"
	"bitwise74/meet-api/app/page"
	"bitwise74/meet-api/app/root"
	"bitwise74/meet-api/app/user"
	"bitwise74/meet-api/aws"
	"bitwise74/meet-api/db"
	"bitwise74/meet-api/internal"
	"bitwise74/meet-api/internal/auth"
	"bitwise74/meet-api/internal/mail"
	"bitwise74/meet-api/internal/service"
	"bitwise74/meet-api/internal/store"
	"bitwise74/meet-api/pkg/middleware"
	"bitwise74/meet-api/pkg/security"
	"context"
	"fmt"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultMaxBodySize = 1 << 20

var cacheStore = persist.NewMemoryStore(time.Minute)

// NewRouter sets up the logger and every dependency described by the
// config, then returns the router serving them. The caller closes the
// returned Deps on shutdown.
func NewRouter() (*gin.Engine, *internal.Deps, error) {
	if err := makeLogger(); err != nil {
		return nil, nil, fmt.Errorf("failed to create logger, %w", err)
	}

	database, err := db.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	d := &internal.Deps{
		DB:       database,
		Agents:   store.NewAgentStore(database),
		Meetings: store.NewMeetingStore(database),
	}

	d.Auth, err = auth.New(database, security.NewPasswordHasher(), authOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize session service, %w", err)
	}

	if addr := viper.GetString("redis.addr"); addr != "" {
		d.Redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})

		if err := d.Redis.Ping(context.Background()).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis, %w", err)
		}
	}

	if viper.GetBool("s3.enabled") {
		d.S3, err = aws.NewS3(context.Background())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}
	}

	d.Cleanup, err = service.StartCleanup(database, viper.GetString("cleanup.schedule"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to schedule cleanup, %w", err)
	}

	return Routes(d), d, nil
}

func authOptions() auth.Options {
	opts := auth.Options{
		Secret:                   []byte(viper.GetString("security.session_secret")),
		TTL:                      viper.GetDuration("security.session_ttl"),
		UpdateAge:                viper.GetDuration("security.session_update_age"),
		SecureCookie:             viper.GetBool("host.ssl.enabled"),
		RequireEmailVerification: viper.GetBool("security.require_email_verification"),
		BaseURL:                  viper.GetString("app.base_url"),
		Providers:                make(map[auth.Provider]auth.ProviderConfig),
	}

	for _, p := range auth.Providers {
		id := viper.GetString("oauth." + p.String() + ".client_id")
		if id == "" {
			continue
		}

		opts.Providers[p] = auth.ProviderConfig{
			ClientID:     id,
			ClientSecret: viper.GetString("oauth." + p.String() + ".client_secret"),
		}
	}

	if m := mail.FromConfig(); m != nil {
		opts.Mailer = m
	}

	return opts
}

// Routes registers every page and API route on a new engine
func Routes(d *internal.Deps) *gin.Engine {
	router := gin.New()
	router.SetHTMLTemplate(page.Templates())

	origins := viper.GetStringSlice("host.cors")
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.TurnstileHeader},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		ginzap.RecoveryWithZap(zap.L(), true),
		middleware.NewRequestIDMiddleware(),
		middleware.Metrics(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	maxBodySize := viper.GetInt64("host.max_body_size")
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}

	rateLimit := viper.GetInt("security.rate_limit")

	requireSession := middleware.RequireSession(d.Auth)
	gate := middleware.AuthGate(d.Auth)
	guest := middleware.GuestOnly(d.Auth)
	turnstile := middleware.NewTurnstileMiddleware()
	bodyLimit := middleware.BodySizeLimiter(maxBodySize)
	rateLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
		CleanupInterval:   time.Minute,
		Redis:             d.Redis,
	})

	// GET /metrics			-> Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Pages
	{
		router.GET("/", gate, page.Home)
		router.GET("/agents", gate, func(c *gin.Context) { page.Agents(c, d) })
		router.GET("/agents/:id", gate, func(c *gin.Context) { page.Agent(c, d) })
		router.GET("/meetings", gate, func(c *gin.Context) { page.Meetings(c, d) })
		router.GET("/meetings/:id", gate, func(c *gin.Context) { page.Meeting(c, d) })

		router.GET("/sign-in", guest, func(c *gin.Context) { page.SignIn(c, d) })
		router.POST("/sign-in", guest, rateLimiter, bodyLimit, turnstile, func(c *gin.Context) { page.SignInSubmit(c, d) })
		router.POST("/sign-in/social", guest, rateLimiter, bodyLimit, func(c *gin.Context) { page.SocialSubmit(c, d) })
		router.GET("/sign-up", guest, func(c *gin.Context) { page.SignUp(c, d) })
		router.POST("/sign-up", guest, rateLimiter, bodyLimit, turnstile, func(c *gin.Context) { page.SignUpSubmit(c, d) })
		router.POST("/sign-out", func(c *gin.Context) { page.SignOut(c, d) })
	}

	m := router.Group("/api", rateLimiter, bodyLimit)
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", func(c *gin.Context) { root.Heartbeat(c, d) })
		m.GET("/heartbeat", func(c *gin.Context) { root.Heartbeat(c, d) })
	}

	a := m.Group("/auth")
	{
		// POST /api/auth/sign-up/email		-> Registers a new user and starts a session
		a.POST("/sign-up/email", turnstile, func(c *gin.Context) { user.UserSignUp(c, d) })

		// POST /api/auth/sign-in/email		-> Exchanges an email and password for a session
		a.POST("/sign-in/email", turnstile, func(c *gin.Context) { user.UserSignIn(c, d) })

		// POST /api/auth/sign-in/social	-> Returns the provider URL to sign in with
		a.POST("/sign-in/social", func(c *gin.Context) { user.UserSocialStart(c, d) })

		// GET /api/auth/callback/:provider	-> Finishes a social sign in
		a.GET("/callback/:provider", func(c *gin.Context) { user.UserSocialCallback(c, d) })

		// POST /api/auth/sign-out		-> Deletes the current session
		a.POST("/sign-out", func(c *gin.Context) { user.UserSignOut(c, d) })

		// GET /api/auth/session		-> Returns the current session or null
		a.GET("/session", middleware.OptionalSession(d.Auth), user.UserSession)

		// GET /api/auth/verify-email		-> Consumes an email verification token
		a.GET("/verify-email", func(c *gin.Context) { user.UserVerifyEmail(c, d) })

		// POST /api/auth/send-verification-email	-> Mails a new verification link
		a.POST("/send-verification-email", turnstile, func(c *gin.Context) { user.UserSendVerification(c, d) })

		// GET /api/auth/providers		-> Lists the enabled social providers
		a.GET("/providers", cacheFor(60), func(c *gin.Context) { user.UserProviders(c, d) })
	}

	ag := m.Group("/agents", requireSession)
	{
		// GET /api/agents		-> Lists the user's agents
		ag.GET("", func(c *gin.Context) { agent.AgentList(c, d) })

		// POST /api/agents		-> Creates an agent
		ag.POST("", func(c *gin.Context) { agent.AgentCreate(c, d) })

		// GET /api/agents/:id		-> Returns an agent if the user owns it
		ag.GET("/:id", func(c *gin.Context) { agent.AgentFetch(c, d) })

		// PATCH /api/agents/:id	-> Updates an agent
		ag.PATCH("/:id", func(c *gin.Context) { agent.AgentUpdate(c, d) })

		// DELETE /api/agents/:id	-> Deletes an agent and its meetings
		ag.DELETE("/:id", func(c *gin.Context) { agent.AgentDelete(c, d) })
	}

	mt := m.Group("/meetings", requireSession)
	{
		// GET /api/meetings		-> Lists the user's meetings
		mt.GET("", func(c *gin.Context) { meeting.MeetingList(c, d) })

		// POST /api/meetings		-> Creates a meeting for one of the user's agents
		mt.POST("", func(c *gin.Context) { meeting.MeetingCreate(c, d) })

		// GET /api/meetings/:id	-> Returns a meeting if the user owns it
		mt.GET("/:id", func(c *gin.Context) { meeting.MeetingFetch(c, d) })

		// PATCH /api/meetings/:id	-> Updates a meeting
		mt.PATCH("/:id", func(c *gin.Context) { meeting.MeetingUpdate(c, d) })

		// DELETE /api/meetings/:id	-> Deletes a meeting
		mt.DELETE("/:id", func(c *gin.Context) { meeting.MeetingDelete(c, d) })
	}

	return router
}

// cacheFor caches a public response. User scoped routes must never use it.
func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(cacheStore, time.Second*time.Duration(sec))
}

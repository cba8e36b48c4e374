package app

import (
	"net/http"

	"ironrails-backend/internal/auth"
	"ironrails-backend/internal/config"
	"ironrails-backend/internal/games"
	"ironrails-backend/internal/health"
	"ironrails-backend/internal/infrastructure/database"
	"ironrails-backend/internal/middleware"
	"ironrails-backend/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app with all global middleware and route
// registration. Returns DB and Redis so callers can close or inspect them.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	// CORS (before session)
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Session (Redis); need the client for the health marker too
	sessionHandler, rdb, err := middleware.Session(middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	})
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	// Session user in Locals for handlers
	app.Use(func(c *fiber.Ctx) error {
		user := c.Locals("user")
		if user == nil {
			c.Locals("user", nil)
		}
		return c.Next()
	})

	// --- Routes (no auth) ---
	hh := &health.Handlers{
		Rdb:            rdb,
		DB:             nil,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		hh.DB = &gormDBPinger{db: db}
	}

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}

	// Auth (no auth middleware): POST login, GET me, DELETE logout
	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	ah := &auth.Handlers{
		UserFinder: userFinder,
		Rdb:        rdb,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	// --- Protected modules (auth required) ---
	if db != nil && rdb != nil {
		us := &user.Service{DB: db, Rdb: rdb}
		uh := &user.Handlers{Service: us, Config: sessionCfg}
		// create-user is public (registration)
		app.Post("/api/v1/users/create-user", uh.CreateUser)
		ug := app.Group("/api/v1/users", middleware.RequireAuth())
		ug.Put("/update-user", uh.UpdateUser)
		ug.Get("/view-user", uh.ViewUser)

		gs := games.NewService(db, cfg.MaxGamesPerUser)
		gs.DefaultVariant = cfg.DefaultVariant
		gh := &games.Handlers{Service: gs}
		gg := app.Group("/api/v1/games", middleware.RequireAuth())
		gg.Post("/create-game", gh.CreateGame)
		gg.Get("/get-games", gh.GetGames)
		gg.Get("/variants", gh.Variants)
		gg.Get("/view-game/:id", gh.ViewGame)
		gg.Get("/legal-actions/:id", gh.LegalActions)
		gg.Post("/submit-action/:id", gh.SubmitAction)
		gg.Post("/undo/:id", gh.UndoAction)
		gg.Post("/load-game/:id", gh.LoadGame)
		gg.Get("/get-actions/:id", gh.GetActions)
	}

	return app, db, rdb, nil
}

// Handler returns the Fiber app as a net/http handler for serverless hosts.
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}

package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-stocknote/internal/handler"
	"go-stocknote/internal/middleware"
	"go-stocknote/internal/model"
	"go-stocknote/internal/repository"
	"go-stocknote/internal/service"
	"go-stocknote/internal/ws"
	"go-stocknote/pkg/config"
	"go-stocknote/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on system env")
	}
	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	// Schema kept in AutoMigrate; a dedicated migration tool can take over
	// once the schema stops moving.
	if err := db.AutoMigrate(&model.Product{}, &model.Note{}, &model.NoteProduct{}, &model.User{}); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	wsHub := ws.NewHub()
	go wsHub.Run()

	productRepo := repository.NewProductRepo(db)
	noteRepo := repository.NewNoteRepo(db)
	userRepo := repository.NewUserRepo(db)

	seedAdmin(userRepo)

	noteService := service.NewNoteService(productRepo, noteRepo, db, wsHub)
	exportService := service.NewExportService(noteRepo)
	productService := service.NewProductService(productRepo)
	authService := service.NewAuthService(userRepo, time.Duration(cfg.TokenTTLHours)*time.Hour)

	noteHandler := handler.NewNoteHandler(noteService, exportService)
	productHandler := handler.NewProductHandler(productService)
	authHandler := handler.NewAuthHandler(authService)

	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)

	protected := api.Group("", middleware.RequireAuth(userRepo))

	protected.Get("/products", productHandler.GetProducts)
	protected.Post("/products", middleware.RequireRole(model.RoleAdmin), productHandler.CreateProduct)
	protected.Put("/products/:id", middleware.RequireRole(model.RoleAdmin), productHandler.UpdateProduct)

	// Static note routes first; Fiber matches in registration order.
	protected.Get("/notes", noteHandler.List)
	protected.Post("/notes", noteHandler.Create)
	protected.Get("/notes/badges/new-count", noteHandler.NewNoteCount)
	protected.Get("/notes/badges/has-decided", noteHandler.HasDecided)
	protected.Get("/notes/export", noteHandler.ExportRange)
	protected.Get("/notes/:id", noteHandler.Get)
	protected.Put("/notes/:id", noteHandler.Update)
	protected.Delete("/notes/:id", middleware.RequireRole(model.RoleAdmin), noteHandler.Delete)
	protected.Patch("/notes/:id/status", middleware.RequireRole(model.RoleAdmin), noteHandler.SetStatus)
	protected.Get("/notes/:id/export", noteHandler.ExportNote)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	if err := app.Shutdown(); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// seedAdmin creates the default admin account on first boot so the API is
// usable before any user management happens.
func seedAdmin(userRepo repository.UserRepository) {
	email := "admin@example.com"

	_, err := userRepo.FindByEmail(email)
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn().Err(err).Msg("admin lookup failed, skipping seed")
		return
	}

	admin := &model.User{
		Email:    email,
		FullName: "Warehouse Administrator",
		RoleCode: model.RoleAdmin,
		IsActive: true,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"

	if err := admin.SetPassword("admin123"); err != nil {
		log.Warn().Err(err).Msg("failed to hash admin password")
		return
	}
	if err := userRepo.Create(admin); err != nil {
		log.Warn().Err(err).Msg("failed to create admin user")
		return
	}
	log.Info().Str("email", email).Msg("admin user created")
}

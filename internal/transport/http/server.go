package http

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"asset-catalog/internal/bootstrap"
	"asset-catalog/internal/transport/http/handler"
	"asset-catalog/internal/transport/http/middleware"
)

const multipartMemory = 8 << 20

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.AccessLog(app.Log))
	router.MaxMultipartMemory = multipartMemory

	healthHandler := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, healthChecks(app))
	router.GET("/healthz", healthHandler.Check)
	if app.UploadDir != "" {
		router.Static(app.Config.Storage.PublicPath, app.UploadDir)
	}

	svc := app.Services
	auth := middleware.NewAuthenticator(svc.Auth)
	authHandler := handler.NewAuthHandler(svc.Auth)
	assetHandler := handler.NewAssetHandler(svc.Assets, app.Config.MaxUploadBytes())
	categoryHandler := handler.NewCategoryHandler(svc.Categories)
	tagHandler := handler.NewTagHandler(svc.Tags)
	userHandler := handler.NewUserHandler(svc.Users)

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", auth.Wrap(authHandler.Me))

	assetGroup := api.Group("/assets")
	assetGroup.POST("", auth.Wrap(assetHandler.Create))
	assetGroup.GET("", auth.Wrap(assetHandler.List))
	assetGroup.GET("/user", auth.Wrap(assetHandler.ListMine))
	assetGroup.GET("/:id", auth.Wrap(assetHandler.Get))
	assetGroup.GET("/:id/download", auth.Wrap(assetHandler.Download))
	assetGroup.PUT("/:id", auth.Wrap(assetHandler.Update))
	assetGroup.DELETE("/:id", auth.Wrap(assetHandler.Delete))

	categoryGroup := api.Group("/categories")
	categoryGroup.GET("", auth.Wrap(categoryHandler.List))
	categoryGroup.POST("", auth.Wrap(categoryHandler.Create))
	categoryGroup.GET("/:id", auth.Wrap(categoryHandler.Get))
	categoryGroup.PUT("/:id", auth.Wrap(categoryHandler.Update))
	categoryGroup.DELETE("/:id", auth.Wrap(categoryHandler.Delete))

	tagGroup := api.Group("/tags")
	tagGroup.GET("", auth.Wrap(tagHandler.List))
	tagGroup.POST("", auth.Wrap(tagHandler.Create))
	tagGroup.GET("/:id", auth.Wrap(tagHandler.Get))
	tagGroup.PUT("/:id", auth.Wrap(tagHandler.Update))
	tagGroup.DELETE("/:id", auth.Wrap(tagHandler.Delete))

	userGroup := api.Group("/users")
	userGroup.GET("/profile", auth.Wrap(userHandler.GetProfile))
	userGroup.PUT("/profile", auth.Wrap(userHandler.UpdateProfile))
	userGroup.POST("/change-password", auth.Wrap(userHandler.ChangePassword))

	return router
}

// healthChecks probes only the dependencies the app was built with.
func healthChecks(app *bootstrap.App) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{}
	if app.MySQL != nil {
		checks["mysql"] = func(ctx context.Context) error {
			sqlDB, err := app.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}
	}
	if app.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}

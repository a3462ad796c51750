package routes

import (
	"log"

	"usuarios/backend/config"
	"usuarios/backend/controllers"
	"usuarios/backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(app *fiber.App, accounts *services.AccountService, cfg *config.Config, logger *log.Logger) {
	authController := controllers.NewAuthController(accounts, cfg, logger)
	userController := controllers.NewUserController(accounts, cfg, logger)

	usuarios := app.Group("/api/usuarios")

	// Auth routes
	usuarios.Post("/login", authController.Login)
	usuarios.Post("/registro", authController.Register)

	// Static paths first so they are not captured by /:id
	usuarios.Get("/", userController.ListUsers)
	usuarios.Post("/username", userController.GetUserByUsername)

	usuarios.Get("/:id", userController.GetUser)
	usuarios.Post("/:id/insignias", userController.AssignBadge)
	usuarios.Post("/:id/progreso", userController.UpdateProgress)
	usuarios.Patch("/:id", userController.PatchUser)
	usuarios.Delete("/:id", userController.DeleteUser)
}

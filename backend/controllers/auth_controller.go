package controllers

import (
	"errors"
	"log"

	"usuarios/backend/config"
	"usuarios/backend/services"
	"usuarios/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	Accounts *services.AccountService
	Cfg      *config.Config
	Logger   *log.Logger
}

func NewAuthController(accounts *services.AccountService, cfg *config.Config, logger *log.Logger) *AuthController {
	return &AuthController{Accounts: accounts, Cfg: cfg, Logger: logger}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	// Not required: an unknown email must still answer 404.
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return a session token with the profile snapshot
// @Tags usuarios
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.MessageResponse
// @Failure 404 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Router /usuarios/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input LoginRequest
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	ctx, cancel := requestContext(c, ac.Cfg)
	defer cancel()

	session, err := ac.Accounts.Login(ctx, input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			return utils.NotFound(c, msgUserNotFound)
		case errors.Is(err, services.ErrInvalidCredentials):
			return utils.BadRequest(c, "Contraseña incorrecta")
		}
		ac.Logger.Printf("Error al iniciar sesión: %v", err)
		return utils.InternalServerError(c, "Error al iniciar sesión")
	}

	user := session.User
	return utils.OK(c, fiber.Map{
		"token":     session.Token,
		"username":  user.Username,
		"email":     user.Email,
		"rol":       user.Role,
		"progreso":  user.Progress,
		"insignias": user.Badges,
		"_id":       user.ID,
	})
}

// Register godoc
// @Summary Register a new user
// @Description Creates a student account and returns a session token
// @Tags usuarios
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "User registration data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Router /usuarios/registro [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input RegisterRequest
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	ctx, cancel := requestContext(c, ac.Cfg)
	defer cancel()

	session, err := ac.Accounts.Register(ctx, input.Username, input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return utils.BadRequest(c, msgEmailTaken)
		case errors.Is(err, services.ErrPasswordTooLong):
			return utils.BadRequest(c, "La contraseña no puede superar los 72 bytes")
		}
		ac.Logger.Printf("Error al crear el usuario: %v", err)
		return utils.InternalServerError(c, "Error al crear el usuario")
	}

	// Unlike login, registration does not echo the profile.
	return utils.OK(c, fiber.Map{
		"message": "Usuario creado con éxito",
		"token":   session.Token,
	})
}

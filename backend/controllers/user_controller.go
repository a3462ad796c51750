package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"usuarios/backend/config"
	"usuarios/backend/services"
	"usuarios/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	msgUserNotFound = "Usuario no encontrado"
	msgEmailTaken   = "Correo electrónico ya registrado"
)

type UserController struct {
	Accounts *services.AccountService
	Cfg      *config.Config
	Logger   *log.Logger
}

func NewUserController(accounts *services.AccountService, cfg *config.Config, logger *log.Logger) *UserController {
	return &UserController{Accounts: accounts, Cfg: cfg, Logger: logger}
}

type UsernameRequest struct {
	Username string `json:"username" validate:"required"`
}

type AssignBadgeRequest struct {
	BadgeID string `json:"insigniaID" validate:"required"`
	// RFC 3339 or YYYY-MM-DD; empty means now.
	DateObtained string `json:"fechaObtenido"`
}

type UpdateProgressRequest struct {
	// Bounded so a single update cannot overflow the running count.
	CompletedActivities int `json:"actividadesCompletadas" validate:"min=-1000000,max=1000000"`
}

// ListUsers godoc
// @Summary List users
// @Description Returns every user, unpaginated
// @Tags usuarios
// @Produce json
// @Success 200 {array} models.User
// @Failure 500 {object} utils.MessageResponse
// @Router /usuarios [get]
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, uc.Cfg)
	defer cancel()

	users, err := uc.Accounts.ListUsers(ctx)
	if err != nil {
		uc.Logger.Printf("Error al obtener los usuarios: %v", err)
		return utils.InternalServerError(c, "Error al obtener los usuarios")
	}
	return utils.OK(c, users)
}

// GetUser godoc
// @Summary Get user by id
// @Tags usuarios
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Router /usuarios/{id} [get]
func (uc *UserController) GetUser(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, uc.Cfg)
	defer cancel()

	user, err := uc.Accounts.GetUserByID(ctx, c.Params("id"))
	if err != nil {
		return uc.fail(c, err, "Error al obtener el usuario")
	}
	return utils.OK(c, user)
}

// GetUserByUsername godoc
// @Summary Get user by username
// @Tags usuarios
// @Accept json
// @Produce json
// @Param request body UsernameRequest true "Username"
// @Success 200 {object} models.User
// @Failure 400 {object} utils.MessageResponse
// @Failure 404 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Router /usuarios/username [post]
func (uc *UserController) GetUserByUsername(c *fiber.Ctx) error {
	var input UsernameRequest
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	ctx, cancel := requestContext(c, uc.Cfg)
	defer cancel()

	user, err := uc.Accounts.GetUserByUsername(ctx, input.Username)
	if err != nil {
		return uc.fail(c, err, "Error al obtener el usuario")
	}
	return utils.OK(c, user)
}

// AssignBadge godoc
// @Summary Assign a badge
// @Description Appends a badge to the user's list
// @Tags usuarios
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body AssignBadgeRequest true "Badge"
// @Success 200 {object} utils.MessageResponse
// @Failure 400 {object} utils.MessageResponse
// @Failure 404 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Router /usuarios/{id}/insignias [post]
func (uc *UserController) AssignBadge(c *fiber.Ctx) error {
	var input AssignBadgeRequest
	if err := utils.ParseAndValidate(c, &input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	obtained, err := parseBadgeDate(input.DateObtained)
	if err != nil {
		return utils.BadRequest(c, "Fecha de obtención inválida")
	}

	ctx, cancel := requestContext(c, uc.Cfg)
	defer cancel()

	if err := uc.Accounts.AssignBadge(ctx, c.Params("id"), input.BadgeID, obtained); err != nil {
		return uc.fail(c, err, "Error al asignar la insignia")
	}
	return utils.Message(c, fiber.StatusOK, "Insignia asignada con éxito")
}

// UpdateProgress godoc
// @Summary Update progress
// @Description Adds completed activities and recomputes the completion percentage
// @Tags usuarios
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body UpdateProgressRequest true "Completed activities to add"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.MessageResponse
// @Failure 404 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Router /usuarios/{id}/progreso [post]
func (uc *UserController) UpdateProgress(c *fiber.Ctx) error {
	var input UpdateProgressRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return utils.BadRequest(c, "Cuerpo de la solicitud inválido")
		}
	}
	if err := utils.Validate(&input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	ctx, cancel := requestContext(c, uc.Cfg)
	defer cancel()

	progress, err := uc.Accounts.UpdateProgress(ctx, c.Params("id"), input.CompletedActivities)
	if err != nil {
		return uc.fail(c, err, "Error al actualizar el progreso")
	}
	return utils.OK(c, fiber.Map{
		"message":  "Progreso actualizado con éxito",
		"progreso": progress,
	})
}

// PatchUser godoc
// @Summary Update some user fields
// @Description Merges username and/or email into the user; other fields are rejected
// @Tags usuarios
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body map[string]string true "Fields to update"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.MessageResponse
// @Failure 404 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Router /usuarios/{id} [patch]
func (uc *UserController) PatchUser(c *fiber.Ctx) error {
	fields := map[string]interface{}{}
	if err := c.BodyParser(&fields); err != nil {
		return utils.BadRequest(c, "Cuerpo de la solicitud inválido")
	}

	ctx, cancel := requestContext(c, uc.Cfg)
	defer cancel()

	user, err := uc.Accounts.PatchUser(ctx, c.Params("id"), fields)
	if err != nil {
		return uc.fail(c, err, "Error al actualizar el usuario")
	}
	return utils.OK(c, fiber.Map{
		"message": "Usuario actualizado con éxito",
		"usuario": user,
	})
}

// DeleteUser godoc
// @Summary Delete user
// @Tags usuarios
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} utils.MessageResponse
// @Failure 404 {object} utils.MessageResponse
// @Failure 500 {object} utils.MessageResponse
// @Router /usuarios/{id} [delete]
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c, uc.Cfg)
	defer cancel()

	if err := uc.Accounts.DeleteUser(ctx, c.Params("id")); err != nil {
		return uc.fail(c, err, "Error al eliminar el usuario")
	}
	return utils.Message(c, fiber.StatusOK, "Usuario eliminado con éxito")
}

// fail maps service errors to responses. Anything unexpected is logged and
// answered with the generic message.
func (uc *UserController) fail(c *fiber.Ctx, err error, generic string) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return utils.NotFound(c, msgUserNotFound)
	case errors.Is(err, services.ErrEmailTaken):
		return utils.BadRequest(c, msgEmailTaken)
	case errors.Is(err, services.ErrFieldNotAllowed), errors.Is(err, services.ErrInvalidField):
		return utils.BadRequest(c, err.Error())
	}
	uc.Logger.Printf("%s (%s %s): %v", generic, c.Method(), c.Path(), err)
	return utils.InternalServerError(c, generic)
}

func requestContext(c *fiber.Ctx, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg == nil || cfg.RequestTimeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), cfg.RequestTimeout)
}

func parseBadgeDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"patient-sim-be/internal/dto"
	"patient-sim-be/internal/pkg/serverutils"
	"patient-sim-be/internal/service"
)

type IProfessorController interface {
	RegisterRoutes(r fiber.Router)
	Grade(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type professorController struct {
	professorService service.IProfessorService
}

func NewProfessorController(professorService service.IProfessorService) IProfessorController {
	return &professorController{
		professorService: professorService,
	}
}

func (c *professorController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/professor")
	h.Post("grade", c.Grade)
	h.Get("stats", c.Stats)
}

func (c *professorController) Grade(ctx *fiber.Ctx) error {
	var req dto.GradeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.professorService.Grade(ctx.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Session not found.")
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session graded", res))
}

func (c *professorController) Stats(ctx *fiber.Ctx) error {
	res, err := c.professorService.Stats(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Usage stats", res))
}

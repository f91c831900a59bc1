package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"patient-sim-be/internal/dto"
	"patient-sim-be/internal/pkg/serverutils"
	"patient-sim-be/internal/service"
)

type IPatientController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Ask(ctx *fiber.Ctx) error
}

type patientController struct {
	patientService service.IPatientService
}

func NewPatientController(patientService service.IPatientService) IPatientController {
	return &patientController{
		patientService: patientService,
	}
}

func (c *patientController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/patient")
	h.Post("start", c.Start)
	h.Post("ask", c.Ask)
}

func (c *patientController) Start(ctx *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.patientService.StartSession(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session started", res))
}

func (c *patientController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.patientService.Ask(ctx.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Session not found. Call /v1/patient/start first.")
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Question answered", res))
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"clinic/internal/models"
	"clinic/internal/services"
	"clinic/internal/validation"
)

// AppointmentHandler handles HTTP requests for appointments.
type AppointmentHandler struct {
	service  *services.AppointmentService
	validate *validation.Validator
	log      *zap.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service *services.AppointmentService, validate *validation.Validator, log *zap.Logger) *AppointmentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AppointmentHandler{
		service:  service,
		validate: validate,
		log:      log,
	}
}

// RegisterRoutes registers the appointment routes. Any middleware given runs
// before every appointment route.
func (h *AppointmentHandler) RegisterRoutes(router fiber.Router, middleware ...fiber.Handler) {
	appointmentRoutes := router.Group("/appointments", middleware...)
	appointmentRoutes.Get("/", h.HandleGetAppointments)
	appointmentRoutes.Get("/:id", h.HandleGetAppointmentByID)
	appointmentRoutes.Post("/", h.HandleCreateAppointment)
	appointmentRoutes.Put("/:id", h.HandleUpdateAppointment)
	appointmentRoutes.Delete("/:id", h.HandleDeleteAppointment)
}

// HandleGetAppointments lists every appointment, or answers 204 when there are none.
func (h *AppointmentHandler) HandleGetAppointments(c *fiber.Ctx) error {
	appointments, err := h.service.ListAppointments(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	if len(appointments) == 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return respond(c, fiber.StatusOK, appointments, "Found")
}

// HandleGetAppointmentByID retrieves a single appointment by its ID.
func (h *AppointmentHandler) HandleGetAppointmentByID(c *fiber.Ctx) error {
	id, ok := appointmentID(c)
	if !ok {
		return invalidID(c)
	}

	appointment, err := h.service.GetAppointment(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if appointment == nil {
		return respond(c, fiber.StatusNotFound, nil, "Not found")
	}
	return respond(c, fiber.StatusOK, appointment, "Found")
}

// HandleCreateAppointment creates a new appointment.
func (h *AppointmentHandler) HandleCreateAppointment(c *fiber.Ctx) error {
	var input models.CreateAppointmentInput
	if err := c.BodyParser(&input); err != nil {
		h.log.Debug("invalid appointment body", zap.Error(err))
		return invalidBody(c)
	}
	if fields := h.validate.Struct(input); fields != nil {
		return validationFailed(c, fields)
	}

	appointment, err := input.ToAppointment()
	if err != nil {
		return validationFailed(c, map[string]string{"appointment_date": "must be a valid date"})
	}
	if err := h.service.CreateAppointment(c.UserContext(), appointment); err != nil {
		return writeError(c, h.log, err)
	}
	return respond(c, fiber.StatusCreated, appointment, "Created")
}

// HandleUpdateAppointment applies the fields present in the body to an appointment.
func (h *AppointmentHandler) HandleUpdateAppointment(c *fiber.Ctx) error {
	id, ok := appointmentID(c)
	if !ok {
		return invalidID(c)
	}

	var input models.UpdateAppointmentInput
	if err := c.BodyParser(&input); err != nil {
		h.log.Debug("invalid appointment body", zap.Error(err))
		return invalidBody(c)
	}
	if fields := h.validate.Struct(input); fields != nil {
		return validationFailed(c, fields)
	}

	patch, err := input.ToPatch()
	if err != nil {
		return validationFailed(c, map[string]string{"appointment_date": "must be a valid date"})
	}
	appointment, err := h.service.UpdateAppointment(c.UserContext(), id, patch)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if appointment == nil {
		return respond(c, fiber.StatusNotFound, nil, "Not found")
	}
	return respond(c, fiber.StatusOK, appointment, "Updated")
}

// HandleDeleteAppointment removes an appointment.
func (h *AppointmentHandler) HandleDeleteAppointment(c *fiber.Ctx) error {
	id, ok := appointmentID(c)
	if !ok {
		return invalidID(c)
	}

	deleted, err := h.service.DeleteAppointment(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !deleted {
		return respond(c, fiber.StatusNotFound, nil, "Not found")
	}
	return respond(c, fiber.StatusOK, nil, "Deleted")
}

// appointmentID reads the :id parameter, which must be a positive integer.
func appointmentID(c *fiber.Ctx) (uint, bool) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, false
	}
	return uint(id), true
}

func invalidID(c *fiber.Ctx) error {
	return validationFailed(c, map[string]string{"id": "must be a positive integer"})
}

func invalidBody(c *fiber.Ctx) error {
	return validationFailed(c, map[string]string{"body": "must be a valid JSON object"})
}

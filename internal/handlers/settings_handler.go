package handlers

import (
	"errors"

	"github.com/oficialjosecandido/pickeat-restaurant/internal/middleware"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/models"
	"github.com/oficialjosecandido/pickeat-restaurant/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SettingsHandler handles the owner's restaurant settings.
type SettingsHandler struct {
	timeSlots *services.TimeSlotService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(timeSlots *services.TimeSlotService) *SettingsHandler {
	return &SettingsHandler{timeSlots: timeSlots}
}

// RegisterRoutes registers the settings routes, all behind auth.
func (h *SettingsHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Post("/owner/settings/generate-time-slot", auth, h.HandleGenerateTimeSlot)
}

// HandleGenerateTimeSlot stores the pickup slots published for one date.
func (h *SettingsHandler) HandleGenerateTimeSlot(c *fiber.Ctx) error {
	var req models.TimeSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	record, err := h.timeSlots.Generate(middleware.UserID(c), req)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, services.ErrInvalidSlots) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{
			"message": "Could not generate time slots",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.TimeSlotResponse{
		Message:   "Time slots generated successfully",
		TimeSlots: record,
	})
}

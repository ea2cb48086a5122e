package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/api/response"
	apperrors "github.com/exposingwithjay/cybersentinel-backend/internal/errors"
	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
	"github.com/exposingwithjay/cybersentinel-backend/internal/services"
	"github.com/labstack/echo/v4"
)

// Contact form replies
const (
	MessageMethodNotAllowed = "Method not allowed"
	MessageInvalidBody      = "Invalid request body"
	MessageBodyTooLarge     = "Message is too large"
	MessageInternalError    = "An unexpected error occurred. Please try again later."
)

// ContactHandler handles the public contact form endpoint
type ContactHandler struct {
	intake services.IntakeService
	logger *slog.Logger
	now    func() time.Time
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(intake services.IntakeService, logger *slog.Logger) *ContactHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContactHandler{
		intake: intake,
		logger: logger,
		now:    time.Now,
	}
}

// Submit handles POST /api/contact and its legacy alias.
// It is registered for every method so that anything but POST gets the
// form's own 405 envelope.
func (h *ContactHandler) Submit(c echo.Context) error {
	switch c.Request().Method {
	case http.MethodPost:
	case http.MethodOptions:
		return c.NoContent(http.StatusNoContent)
	default:
		c.Response().Header().Set(echo.HeaderAllow, "POST, OPTIONS")
		return response.ContactFailure(c, http.StatusMethodNotAllowed, MessageMethodNotAllowed)
	}

	var sub models.Submission
	if err := c.Echo().JSONSerializer.Deserialize(c, &sub); err != nil {
		// Bodies without a Content-Length only hit the limit while decoding.
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return response.ContactFailure(c, http.StatusRequestEntityTooLarge, MessageBodyTooLarge)
		}
		return response.ContactFailure(c, http.StatusBadRequest, MessageInvalidBody)
	}

	outcome, err := h.intake.Submit(c.Request().Context(), &sub, clientID(c), h.now())
	if err != nil {
		return h.failure(c, err)
	}

	return response.ContactAccepted(c, outcome.ID, outcome.Message, outcome.AutoReplySent)
}

func (h *ContactHandler) failure(c echo.Context, err error) error {
	if v := apperrors.GetValidationError(err); v != nil {
		return response.ContactFailure(c, http.StatusBadRequest, v.Error())
	}
	if rl := apperrors.GetRateLimitError(err); rl != nil {
		return response.ContactRateLimited(c, rl.RetryAfterSeconds(), rl.Error())
	}
	if d := apperrors.GetDeliveryError(err); d != nil {
		return response.ContactDeliveryFailed(c, services.MessageDeliveryFailed, d.Hint)
	}
	if errors.Is(err, apperrors.ErrInvalidRequest) {
		return response.ContactFailure(c, http.StatusBadRequest, MessageInvalidBody)
	}

	h.logger.Error("contact submission failed",
		slog.String("ip", c.RealIP()),
		slog.Any("error", err))
	return response.ContactFailure(c, http.StatusInternalServerError, MessageInternalError)
}

// clientID keys the cooldown. It is the address resolved by the router's
// IP extractor, bounded to the store's column width.
func clientID(c echo.Context) string {
	ip := c.RealIP()
	if len(ip) > services.MaxClientIDLength {
		ip = ip[:services.MaxClientIDLength]
	}
	return ip
}

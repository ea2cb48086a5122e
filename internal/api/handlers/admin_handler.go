package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/exposingwithjay/cybersentinel-backend/internal/api/response"
	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
	"github.com/exposingwithjay/cybersentinel-backend/internal/repository"
	"github.com/exposingwithjay/cybersentinel-backend/internal/validator"
	ws "github.com/exposingwithjay/cybersentinel-backend/internal/websocket"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// AdminHandler serves the read-only dashboard API over the contact logs
type AdminHandler struct {
	logs     repository.ContactLogRepository
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler. A nil hub disables the live feed.
func NewAdminHandler(logs repository.ContactLogRepository, hub *ws.Hub, upgrader websocket.Upgrader, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		logs:     logs,
		hub:      hub,
		upgrader: upgrader,
		logger:   logger,
	}
}

// ListMessages handles GET /api/admin/messages
func (h *AdminHandler) ListMessages(c echo.Context) error {
	var filter models.ContactFilter

	switch c.QueryParam("status") {
	case "", "all":
	case "unread":
		filter.UnreadOnly = true
	default:
		return response.BadRequest(c, "status must be \"all\" or \"unread\"")
	}

	if u := c.QueryParam("urgent"); u != "" {
		urgent, err := strconv.ParseBool(u)
		if err != nil {
			return response.BadRequest(c, "invalid urgent filter")
		}
		filter.UrgentOnly = urgent
	}

	limit, offset := pagination(c)

	messages, total, err := h.logs.ListMessages(c.Request().Context(), filter, limit, offset)
	if err != nil {
		h.logger.Error("failed to list messages", slog.Any("error", err))
		return response.InternalError(c, "failed to list messages")
	}

	return response.Paginated(c, messages, total, limit, offset)
}

// GetMessage handles GET /api/admin/messages/:id
func (h *AdminHandler) GetMessage(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return response.BadRequest(c, "invalid message ID")
	}

	message, err := h.logs.GetMessage(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "message not found")
		}
		h.logger.Error("failed to get message", slog.String("id", id), slog.Any("error", err))
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

// ListLog handles GET /api/admin/log
func (h *AdminHandler) ListLog(c echo.Context) error {
	limit, offset := pagination(c)

	entries, total, err := h.logs.ListLog(c.Request().Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list contact log", slog.Any("error", err))
		return response.InternalError(c, "failed to list contact log")
	}

	return response.Paginated(c, entries, total, limit, offset)
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.logs.Stats(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to load stats", slog.Any("error", err))
		return response.InternalError(c, "failed to load stats")
	}

	return response.Success(c, stats)
}

// Feed handles GET /api/admin/ws. The optional topic query parameter
// subscribes the connection before it starts reading.
func (h *AdminHandler) Feed(c echo.Context) error {
	if h.hub == nil {
		return response.NotFound(c, "live feed disabled")
	}

	topic := c.QueryParam("topic")
	if topic == "" {
		topic = ws.TopicAll
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the error response.
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return nil
	}

	ws.NewClient(h.hub, conn, h.logger).Serve(topic)
	return nil
}

func pagination(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return validator.ValidatePagination(limit, offset)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/exposingwithjay/cybersentinel-backend/internal/api/response"
	"github.com/exposingwithjay/cybersentinel-backend/internal/mocks"
	"github.com/exposingwithjay/cybersentinel-backend/internal/models"
	"github.com/exposingwithjay/cybersentinel-backend/internal/repository"
	ws "github.com/exposingwithjay/cybersentinel-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// AdminHandlerTestSuite is the test suite for AdminHandler
type AdminHandlerTestSuite struct {
	suite.Suite
	echo     *echo.Echo
	handler  *AdminHandler
	mockLogs *mocks.MockContactLogRepository
}

func (s *AdminHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.mockLogs = new(mocks.MockContactLogRepository)
	s.handler = NewAdminHandler(s.mockLogs, nil, ws.DefaultUpgrader(), nil)
}

func (s *AdminHandlerTestSuite) TearDownTest() {
	s.mockLogs.AssertExpectations(s.T())
}

func TestAdminHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerTestSuite))
}

func (s *AdminHandlerTestSuite) createContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return s.echo.NewContext(req, rec), rec
}

func (s *AdminHandlerTestSuite) testMessage(id string) models.ContactMessage {
	return models.ContactMessage{
		ID:        id,
		Name:      "Jane",
		Email:     "jane@example.com",
		Subject:   "Tip",
		Message:   "Hello",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:    models.StatusReceived,
	}
}

func (s *AdminHandlerTestSuite) TestListMessages_Defaults() {
	messages := []models.ContactMessage{s.testMessage("msg_2"), s.testMessage("msg_1")}
	s.mockLogs.On("ListMessages", mock.Anything, models.ContactFilter{}, 20, 0).
		Return(messages, int64(2), nil)

	c, rec := s.createContext("/api/admin/messages")
	s.Require().NoError(s.handler.ListMessages(c))

	s.Equal(http.StatusOK, rec.Code)
	var resp response.PaginatedResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Success)
	s.Equal(int64(2), resp.Meta.Total)
	s.Equal(20, resp.Meta.Limit)
}

func (s *AdminHandlerTestSuite) TestListMessages_Filters() {
	filter := models.ContactFilter{UnreadOnly: true, UrgentOnly: true}
	s.mockLogs.On("ListMessages", mock.Anything, filter, 5, 10).
		Return([]models.ContactMessage{}, int64(0), nil)

	c, rec := s.createContext("/api/admin/messages?status=unread&urgent=true&limit=5&offset=10")
	s.Require().NoError(s.handler.ListMessages(c))

	s.Equal(http.StatusOK, rec.Code)
}

func (s *AdminHandlerTestSuite) TestListMessages_ClampsLimit() {
	s.mockLogs.On("ListMessages", mock.Anything, models.ContactFilter{}, 100, 0).
		Return([]models.ContactMessage{}, int64(0), nil)

	c, rec := s.createContext("/api/admin/messages?limit=5000&offset=-3")
	s.Require().NoError(s.handler.ListMessages(c))

	s.Equal(http.StatusOK, rec.Code)
}

func (s *AdminHandlerTestSuite) TestListMessages_InvalidStatus() {
	c, rec := s.createContext("/api/admin/messages?status=archived")
	s.Require().NoError(s.handler.ListMessages(c))

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *AdminHandlerTestSuite) TestListMessages_InvalidUrgent() {
	c, rec := s.createContext("/api/admin/messages?urgent=very")
	s.Require().NoError(s.handler.ListMessages(c))

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *AdminHandlerTestSuite) TestListMessages_RepositoryError() {
	s.mockLogs.On("ListMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, int64(0), errors.New("connection reset"))

	c, rec := s.createContext("/api/admin/messages")
	s.Require().NoError(s.handler.ListMessages(c))

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.NotContains(rec.Body.String(), "connection reset")
}

func (s *AdminHandlerTestSuite) TestGetMessage_Found() {
	msg := s.testMessage("msg_1")
	s.mockLogs.On("GetMessage", mock.Anything, "msg_1").Return(&msg, nil)

	c, rec := s.createContext("/api/admin/messages/msg_1")
	c.SetParamNames("id")
	c.SetParamValues("msg_1")
	s.Require().NoError(s.handler.GetMessage(c))

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"id":"msg_1"`)
}

func (s *AdminHandlerTestSuite) TestGetMessage_NotFound() {
	s.mockLogs.On("GetMessage", mock.Anything, "msg_missing").Return(nil, repository.ErrNotFound)

	c, rec := s.createContext("/api/admin/messages/msg_missing")
	c.SetParamNames("id")
	c.SetParamValues("msg_missing")
	s.Require().NoError(s.handler.GetMessage(c))

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *AdminHandlerTestSuite) TestGetMessage_RepositoryError() {
	s.mockLogs.On("GetMessage", mock.Anything, "msg_1").Return(nil, errors.New("pq: password authentication failed"))

	c, rec := s.createContext("/api/admin/messages/msg_1")
	c.SetParamNames("id")
	c.SetParamValues("msg_1")
	s.Require().NoError(s.handler.GetMessage(c))

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.NotContains(rec.Body.String(), "password")
}

func (s *AdminHandlerTestSuite) TestListLog() {
	entries := []models.ContactLogEntry{{ID: "msg_1", Status: models.StatusSent}}
	s.mockLogs.On("ListLog", mock.Anything, 20, 0).Return(entries, int64(1), nil)

	c, rec := s.createContext("/api/admin/log")
	s.Require().NoError(s.handler.ListLog(c))

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"status":"sent"`)
}

func (s *AdminHandlerTestSuite) TestStats() {
	s.mockLogs.On("Stats", mock.Anything).Return(&models.ContactStats{Total: 3, Unread: 2, Urgent: 1}, nil)

	c, rec := s.createContext("/api/admin/stats")
	s.Require().NoError(s.handler.Stats(c))

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"total":3`)
	s.Contains(rec.Body.String(), `"unread":2`)
}

func (s *AdminHandlerTestSuite) TestStats_Error() {
	s.mockLogs.On("Stats", mock.Anything).Return(nil, errors.New("boom"))

	c, rec := s.createContext("/api/admin/stats")
	s.Require().NoError(s.handler.Stats(c))

	s.Equal(http.StatusInternalServerError, rec.Code)
}

func (s *AdminHandlerTestSuite) TestFeed_DisabledWithoutHub() {
	c, rec := s.createContext("/api/admin/ws")
	s.Require().NoError(s.handler.Feed(c))

	s.Equal(http.StatusNotFound, rec.Code)
}

package triage

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/triage/triage/internal/platform/auth"
	"github.com/triage/triage/pkg/pagination"
)

type Handler struct {
	svc      *Service
	upgrader *gorillawebsocket.Upgrader
}

func NewHandler(svc *Service, upgrader *gorillawebsocket.Upgrader) *Handler {
	if upgrader == nil {
		upgrader = &gorillawebsocket.Upgrader{}
	}
	return &Handler{svc: svc, upgrader: upgrader}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Conversation endpoints – patient, clinician
	conv := api.Group("", auth.RequireRole(auth.RolePatient, auth.RoleClinician))
	conv.POST("/sessions", h.StartSession)
	conv.GET("/sessions/:id", h.GetSession)
	conv.POST("/sessions/:id/turns", h.Turn)
	conv.POST("/sessions/:id/reset", h.ResetSession)
	conv.DELETE("/sessions/:id", h.EndSession)
	conv.GET("/sessions/:id/ws", h.Chat)
	conv.POST("/triage/step", h.Step)

	// Audit endpoints – clinician
	audit := api.Group("", auth.RequireRole(auth.RoleClinician))
	audit.GET("/sessions", h.ListSessions)
	audit.GET("/sessions/:id/turn-log", h.ListTurnLog)
	audit.GET("/escalations", h.ListEscalations)
}

type startSessionResponse struct {
	*Session
	Greeting string `json:"greeting"`
}

// TurnRequest is the body of POST /sessions/:id/turns and a chat socket frame.
type TurnRequest struct {
	Text string `json:"text"`
}

// TurnResponse is returned for every session turn.
type TurnResponse struct {
	SessionID    uuid.UUID      `json:"session_id"`
	ResponseText string         `json:"response_text"`
	NextPhase    Phase          `json:"next_phase"`
	Symptom      *string        `json:"symptom,omitempty"`
	TriageTier   Tier           `json:"triage_tier"`
	PeakTier     Tier           `json:"peak_tier"`
	Turns        int            `json:"turns"`
	Context      PatientContext `json:"context"`
}

func newTurnResponse(res *TurnResult) TurnResponse {
	return TurnResponse{
		SessionID:    res.Session.ID,
		ResponseText: res.Output.ResponseText,
		NextPhase:    res.Output.NextPhase,
		Symptom:      res.Output.Symptom,
		TriageTier:   res.Output.UpdatedContext.TriageTier,
		PeakTier:     res.Session.PeakTier,
		Turns:        res.Session.Turns,
		Context:      res.Output.UpdatedContext,
	}
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	case errors.Is(err, ErrEmptyUtterance):
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	case errors.Is(err, ErrUtteranceTooLong):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Sessions --

func (h *Handler) StartSession(c echo.Context) error {
	sess, err := h.svc.StartSession(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, startSessionResponse{Session: sess, Greeting: GreetingMessage})
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sess, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) ListSessions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSessions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ResetSession(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sess, err := h.svc.ResetSession(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) EndSession(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.EndSession(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Turns --

func (h *Handler) Turn(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req TurnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Turn(c.Request().Context(), id, req.Text)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, newTurnResponse(res))
}

func (h *Handler) Step(c echo.Context) error {
	var in TurnInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.CurrentPhase == "" {
		in.CurrentPhase = PhaseGreeting
	}
	out, err := h.svc.Step(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}

// Chat serves one session over a WebSocket. Each inbound {"text": ...} frame
// is processed as a turn and answered with a TurnResponse, or with
// {"error": ...} when the turn is rejected.
func (h *Handler) Chat(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.svc.GetSession(ctx, id); err != nil {
		return httpError(err)
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(int64(h.svc.maxChars)*4 + 256)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			return nil
		}
		var req TurnRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			if ws.WriteJSON(chatError{Error: "invalid message"}) != nil {
				return nil
			}
			continue
		}
		res, err := h.svc.Turn(ctx, id, req.Text)
		if err != nil {
			if ws.WriteJSON(chatError{Error: fmt.Sprint(httpError(err).Message)}) != nil {
				return nil
			}
			if errors.Is(err, ErrSessionNotFound) {
				return nil
			}
			continue
		}
		if err := ws.WriteJSON(newTurnResponse(res)); err != nil {
			return nil
		}
	}
}

type chatError struct {
	Error string `json:"error"`
}

// -- Audit --

func (h *Handler) ListTurnLog(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListTurnLog(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListEscalations(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListEscalations(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

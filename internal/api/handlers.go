// Package api provides HTTP handlers for MicroTutor endpoints.
package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BTreeMap/MicroTutor/internal/export"
	"github.com/BTreeMap/MicroTutor/internal/flow"
	"github.com/BTreeMap/MicroTutor/internal/models"
	"github.com/BTreeMap/MicroTutor/internal/render"
	"github.com/BTreeMap/MicroTutor/internal/simulator"
	"github.com/BTreeMap/MicroTutor/internal/store"
)

// SessionResponse is a session snapshot with its rendered cards.
type SessionResponse struct {
	Session models.SessionState `json:"session"`
	Cards   []render.Card       `json:"cards"`
}

// TurnResponse is a new tutor turn with its card.
type TurnResponse struct {
	Turn models.Turn `json:"turn"`
	Card render.Card `json:"card"`
}

// QuizResponse is the outcome of a quiz selection.
type QuizResponse struct {
	State models.CardState `json:"state"`
	Card  render.Card      `json:"card"`
}

// RedirectResponse is the session after following a redirect, with the screen to show.
type RedirectResponse struct {
	Session   models.SessionState `json:"session"`
	Simulator flow.SimulatorView  `json:"simulator"`
}

// ScreenResponse is a single resolved simulator screen.
type ScreenResponse struct {
	Screen    simulator.Screen `json:"screen"`
	Malformed bool             `json:"malformed,omitempty"`
}

// ScreensResponse lists the whole simulator fixture.
type ScreensResponse struct {
	Navigation []simulator.NavItem `json:"navigation"`
	Screens    []simulator.Screen  `json:"screens"`
}

func sessionResponse(st models.SessionState) SessionResponse {
	return SessionResponse{Session: st, Cards: render.RenderHistory(st)}
}

func turnResponse(e *flow.Engine, turn models.Turn) TurnResponse {
	return TurnResponse{Turn: turn, Card: render.RenderTurn(turn, e.State().CardState(turn.ID))}
}

// session looks up the engine named by the {id} path value.
func (s *Server) session(w http.ResponseWriter, r *http.Request, where string) (*flow.Engine, bool) {
	id := r.PathValue("id")
	e, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, where, fmt.Errorf("%w: %s", err, id))
		return nil, false
	}
	return e, true
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]any{"sessions": s.sessions.Len()}))
}

func (s *Server) modulesHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.modulesHandler: listing modules")
	writeJSONResponse(w, http.StatusOK, models.Success(s.curriculum.List()))
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	e := s.newEngine()
	s.sessions.Add(e)
	slog.Info("Server.createSessionHandler: session created", "sessionID", e.ID(), "sessions", s.sessions.Len())
	writeJSONResponse(w, http.StatusCreated, models.Success(sessionResponse(e.State())))
}

func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.session(w, r, "Server.sessionHandler")
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sessionResponse(e.State())))
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.session(w, r, "Server.messageHandler")
	if !ok {
		return
	}
	var req models.MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		slog.Warn("Server.messageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "Server.messageHandler", err)
		return
	}
	turn, err := e.Submit(r.Context(), req.Text)
	if err != nil {
		writeError(w, "Server.messageHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(turnResponse(e, turn)))
}

func (s *Server) selectModuleHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.session(w, r, "Server.selectModuleHandler")
	if !ok {
		return
	}
	turn, err := e.SelectModule(r.Context(), r.PathValue("moduleID"))
	if err != nil {
		writeError(w, "Server.selectModuleHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(turnResponse(e, turn)))
}

func (s *Server) viewHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.session(w, r, "Server.viewHandler")
	if !ok {
		return
	}
	var req models.ViewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "Server.viewHandler", fmt.Errorf("%w: %q", err, req.View))
		return
	}
	st, err := e.SelectView(req.View)
	if err != nil {
		writeError(w, "Server.viewHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(st))
}

func (s *Server) taskOptionHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.session(w, r, "Server.taskOptionHandler")
	if !ok {
		return
	}
	var req models.TaskOptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "Server.taskOptionHandler", err)
		return
	}
	turn, err := e.UseTaskOption(r.Context(), r.PathValue("turnID"), req.Option)
	if err != nil {
		writeError(w, "Server.taskOptionHandler", err)
		return
	}
	if turn == nil {
		writeJSONResponse(w, http.StatusOK, models.Ignored("Task options on this card were already used"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(turnResponse(e, *turn)))
}

func (s *Server) quizHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.session(w, r, "Server.quizHandler")
	if !ok {
		return
	}
	var req models.QuizAnswerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "Server.quizHandler", err)
		return
	}
	turnID := r.PathValue("turnID")
	cs, err := e.AnswerQuiz(turnID, *req.Index)
	if err != nil {
		writeError(w, "Server.quizHandler", err)
		return
	}
	turn, _ := e.State().FindTurn(turnID)
	writeJSONResponse(w, http.StatusOK, models.Success(QuizResponse{State: cs, Card: render.RenderTurn(turn, cs)}))
}

func (s *Server) redirectHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.session(w, r, "Server.redirectHandler")
	if !ok {
		return
	}
	st, err := e.FollowRedirect(r.PathValue("turnID"))
	if err != nil {
		writeError(w, "Server.redirectHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(RedirectResponse{Session: st, Simulator: flow.SimulatorFor(st, s.screens)}))
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.session(w, r, "Server.resetHandler")
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sessionResponse(e.Reset())))
}

func (s *Server) cardsHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.session(w, r, "Server.cardsHandler")
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(render.RenderHistory(e.State())))
}

func (s *Server) simulatorHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.session(w, r, "Server.simulatorHandler")
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(flow.SimulatorFor(e.State(), s.screens)))
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.session(w, r, "Server.dashboardHandler")
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(flow.Dashboard(e.State(), s.curriculum.List())))
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	e, ok := s.session(w, r, "Server.exportHandler")
	if !ok {
		return
	}
	exporter, err := export.NewExporter(r.URL.Query().Get("format"))
	if err != nil {
		slog.Warn("Server.exportHandler: unsupported format", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	st := e.State()
	var buf bytes.Buffer
	if err := exporter.Export(export.FromSession(st, s.now()), &buf); err != nil {
		writeError(w, "Server.exportHandler", err)
		return
	}
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "session-"+st.ID+"."+exporter.Extension()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Server.exportHandler: failed to write export", "sessionID", st.ID, "error", err)
	}
}

func (s *Server) screensHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if page := q.Get("page"); page != "" {
		screen, err := s.screens.Resolve(page, q.Get("subPage"))
		writeJSONResponse(w, http.StatusOK, models.Success(ScreenResponse{Screen: screen, Malformed: err != nil}))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(ScreensResponse{
		Navigation: s.screens.Navigation(),
		Screens:    s.screens.Screens(),
	}))
}

func (s *Server) interviewRolesHandler(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("role"); id != "" {
		role, ok := simulator.FindRole(id)
		if !ok {
			writeJSONResponse(w, http.StatusNotFound, models.Error("unknown interview role: "+id))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(role))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(simulator.InterviewRoles()))
}

func (s *Server) receiptsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ReceiptFilter{
		SessionID: q.Get("session"),
		Status:    models.GenerationStatus(q.Get("status")),
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}
	receipts, err := s.receipts.GetGenerationReceipts(r.Context(), filter)
	if err != nil {
		writeError(w, "Server.receiptsHandler", err)
		return
	}
	slog.Debug("Server.receiptsHandler: receipts fetched", "count", len(receipts))
	writeJSONResponse(w, http.StatusOK, models.Success(receipts))
}

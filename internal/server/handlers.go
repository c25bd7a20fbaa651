package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rileyhilliard/nekowatch/internal/bridge"
	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/monitor"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
)

// sendJSON sends a JSON response
func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendError maps a structured error to a status code.
func sendError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	var nwErr *errors.Error
	if stderrors.As(err, &nwErr) {
		code = nwErr.Code
		if nwErr.Code == errors.ErrInput {
			status = http.StatusNotFound
		}
	}
	sendJSON(w, status, map[string]errorBody{"error": {Code: code, Message: errors.Brief(err)}})
}

// reply is the {status, data} envelope of write endpoints.
type reply struct {
	Status int    `json:"status"`
	Data   string `json:"data"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listStats(hidden bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.deps.Monitor.Stats(r.Context(), hidden)
		if err != nil {
			sendError(w, err)
			return
		}
		sendJSON(w, http.StatusOK, stats)
	}
}

// hostStatBody is {sid, name, stat}; name and stat are absent when the host
// has no snapshot.
type hostStatBody struct {
	SID  string          `json:"sid"`
	Name string          `json:"name,omitempty"`
	Stat json.RawMessage `json:"stat,omitempty"`
}

func (s *Server) hostStat(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	body := hostStatBody{SID: sid}

	if snap, ok := s.deps.Monitor.Stat(sid); ok {
		raw, err := json.Marshal(snap)
		if err != nil {
			sendError(w, err)
			return
		}
		var parts struct {
			Name string          `json:"name"`
			Stat json.RawMessage `json:"stat"`
		}
		_ = json.Unmarshal(raw, &parts)
		body.Name = parts.Name
		body.Stat = parts.Stat
	}
	sendJSON(w, http.StatusOK, body)
}

func (s *Server) hostHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := s.deps.Monitor.History(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, hist)
}

type ingestBody struct {
	SID  string           `json:"sid"`
	Data monitor.Snapshot `json:"data"`
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	var body ingestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SID == "" {
		sendJSON(w, http.StatusBadRequest, reply{Status: 0, Data: "invalid body"})
		return
	}
	s.deps.Monitor.Ingest(body.SID, body.Data)
	sendJSON(w, http.StatusOK, reply{Status: 1, Data: "update success"})
}

func (s *Server) provision(update bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := s.deps.Registry.Get(r.Context(), chi.URLParam(r, "sid"))
		if err != nil {
			sendError(w, err)
			return
		}

		run := s.deps.Provision.Install
		if update {
			run = s.deps.Provision.Update
		}
		out := run(r.Context(), h, s.deps.AgentURL)

		status := 0
		if out.OK {
			status = 1
		}
		sendJSON(w, http.StatusOK, reply{Status: status, Data: out.Message})
	}
}

// shell upgrades to a WebSocket and bridges it to the host's shell. The
// query may carry rows, cols and sh (an initial command).
func (s *Server) shell(w http.ResponseWriter, r *http.Request) {
	h, err := s.deps.Registry.Get(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		sendError(w, err)
		return
	}

	q := r.URL.Query()
	rows, _ := strconv.Atoi(q.Get("rows"))
	cols, _ := strconv.Atoi(q.Get("cols"))
	opts := bridge.Options{
		Size:    sshutil.WindowSize{Rows: rows, Cols: cols},
		Command: q.Get("sh"),
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade for %s failed: %v", h.Name, err)
		return
	}

	// The request context ends with the handler; the bridge is bounded by
	// the socket instead.
	ctx := context.WithoutCancel(r.Context())
	if err := s.deps.Bridge.Run(ctx, h.SSH, bridge.NewWSChannel(conn), opts); err != nil {
		s.log.Debug("shell bridge for %s ended: %s", h.Name, errors.Brief(err))
	}
}

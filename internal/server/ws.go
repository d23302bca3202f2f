package server

import (
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/pthm/openwire"
)

// serveWS runs bridge requests over a websocket. Each text message is one
// request object and gets one response envelope back, in order. The
// connection shares the visitor's session with the HTTP endpoints.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Session(w, r)
	if err != nil {
		s.logger.Error("session unavailable", "error", err)
		http.Error(w, "Session unavailable", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()
	if s.cfg.Security.BodyLimit > 0 {
		conn.SetReadLimit(s.cfg.Security.BodyLimit)
	}

	ctx := r.Context()
	for {
		var msg map[string]any
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, ctx.Err()) {
				s.logger.Debug("websocket read", "error", err)
			}
			return
		}

		var resp *openwire.Response
		req, err := openwire.NewRequest(msg)
		if err != nil {
			resp = openwire.Failure([]openwire.ResponseError{{Code: openwire.ErrCodeComponent, Message: err.Error()}}, nil)
		} else {
			resp = s.runner.Run(ctx, req, sess)
		}

		if err := wsjson.Write(ctx, conn, resp); err != nil {
			s.logger.Debug("websocket write", "error", err)
			return
		}
	}
}

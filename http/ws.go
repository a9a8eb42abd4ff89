package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 16 << 10
)

// LiveMessage is sent back for every input the client submits.
type LiveMessage struct {
	Type       string           `json:"type"`
	Timestamp  time.Time        `json:"timestamp"`
	Prediction *PredictResponse `json:"prediction,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// LiveSocket re-runs the prediction each time the client sends the current
// form state, so a page can update the result as the user edits fields.
type LiveSocket struct {
	predictor *Predictor
	log       *zap.Logger
	upgrader  websocket.Upgrader
	clients   atomic.Int64
}

func NewLiveSocket(predictor *Predictor, log *zap.Logger) *LiveSocket {
	return &LiveSocket{
		predictor: predictor,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Clients returns the number of open connections.
func (s *LiveSocket) Clients() int64 {
	return s.clients.Load()
}

func (s *LiveSocket) track(delta int64) {
	s.clients.Add(delta)
	s.predictor.cfg.Metrics.SetWebSocketClients(s.Clients())
}

func (s *LiveSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		return
	}
	s.track(1)
	defer func() {
		s.track(-1)
		conn.Close()
	}()

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	replies := make(chan LiveMessage, 8)
	done := make(chan struct{})
	go s.writePump(conn, replies, done)
	defer close(replies)

	schema := s.predictor.Schema()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		msg := LiveMessage{Type: "prediction", Timestamp: time.Now()}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			msg.Type, msg.Error = "error", "invalid JSON payload"
		} else if in, err := ParseJSON(schema, payload); err != nil {
			msg.Type, msg.Error = "error", err.Error()
		} else if prediction, err := s.predictor.PredictFrom(r.Context(), SourceWebSocket, in); err != nil {
			msg.Type = "error"
			msg.Error = err.Error()
			if errors.Is(err, ErrModelNotLoaded) {
				msg.Error = msgModelNotLoaded
			}
		} else {
			resp := newPredictResponse(schema, prediction)
			msg.Prediction = &resp
		}

		select {
		case replies <- msg:
		case <-done:
			return
		}
	}
}

func (s *LiveSocket) writePump(conn *websocket.Conn, replies <-chan LiveMessage, done chan<- struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(done)
	}()

	for {
		select {
		case msg, ok := <-replies:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				s.log.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

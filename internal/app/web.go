package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/stroke_coach/internal/config"
)

const (
	liveSendBuffer = 64
	wsWriteTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Snapshot is the latest message of each kind, served by /api/metrics.
type Snapshot struct {
	Metrics     *Metrics           `json:"metrics,omitempty"`
	Stroke      *StrokeMessage     `json:"stroke,omitempty"`
	Velocity    *VelocityMessage   `json:"velocity,omitempty"`
	Calibration *CalibrationStatus `json:"calibration,omitempty"`
}

// LiveEvent is pushed to /ws/live clients.
type LiveEvent struct {
	Type string `json:"type"` // metrics, stroke, velocity, calibration
	Data any    `json:"data"`
}

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans coach output out to websocket clients and keeps the snapshot.
type hub struct {
	mu      sync.RWMutex
	state   Snapshot
	clients map[*liveClient]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*liveClient]struct{})}
}

// update applies a change to the snapshot and broadcasts the event. Slow
// clients miss events rather than stall the broker callback.
func (h *hub) update(kind string, data any, apply func(*Snapshot)) {
	payload, err := json.Marshal(LiveEvent{Type: kind, Data: data})
	if err != nil {
		log.Printf("web: marshal %s: %v", kind, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	apply(&h.state)
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

func (h *hub) snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

func (h *hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) serveLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	c := &liveClient{conn: conn, send: make(chan []byte, liveSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		// Drain reads so close frames are noticed.
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: live client read error: %v", err)
				}
				return
			}
		}
	}()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("web: live client write error: %v", err)
				return
			}
		}
	}
}

type controlReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func knownCommand(name string) bool {
	switch name {
	case CmdReset, CmdCalibrateStart, CmdCalibrateComplete, CmdCalibrateClear, CmdSetThresholds:
		return true
	}
	return false
}

// serveControl forwards commands from the browser to the control topic.
func serveControl(pub Publisher, topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		for {
			var cmd Command
			if err := conn.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: control read error: %v", err)
				}
				return
			}

			reply := controlReply{OK: true}
			if !knownCommand(cmd.Command) {
				reply = controlReply{Error: fmt.Sprintf("%v: %q", ErrUnknownCommand, cmd.Command)}
			} else if err := pub.Publish(topic, cmd); err != nil {
				reply = controlReply{Error: err.Error()}
			} else {
				log.Printf("web: forwarded %s", cmd.Command)
			}
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		}
	}
}

func newWebMux(h *hub, control Publisher, controlTopic, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		snap := h.snapshot()
		if snap == (Snapshot{}) {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			log.Printf("json encode error: %v", err)
		}
	})
	mux.HandleFunc("/ws/live", h.serveLive)
	mux.HandleFunc("/ws/control", serveControl(control, controlTopic))
	mux.HandleFunc("/ws/calibration", serveCalibration(h, control, controlTopic))

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

// RunWeb serves the live dashboard: coach output from MQTT is pushed to
// browsers over /ws/live, and browser commands go back over /ws/control.
func RunWeb() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	h := newHub()
	if err := subscribeJSON(client, cfg.TopicMetrics, func(m Metrics) {
		h.update("metrics", m, func(s *Snapshot) { s.Metrics = &m })
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicStroke, func(m StrokeMessage) {
		h.update("stroke", m, func(s *Snapshot) { s.Stroke = &m })
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicVelocity, func(m VelocityMessage) {
		h.update("velocity", m, func(s *Snapshot) { s.Velocity = &m })
	}); err != nil {
		return err
	}
	if err := subscribeJSON(client, cfg.TopicCalibration, func(m CalibrationStatus) {
		h.update("calibration", m, func(s *Snapshot) { s.Calibration = &m })
	}); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, newWebMux(h, mqttPublisher{client: client}, cfg.TopicControl, "web"))
}

package bridge

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/PixPMusic/gnova/internal/gcode"
	"github.com/PixPMusic/gnova/internal/grid"
	"github.com/PixPMusic/gnova/internal/host"
)

const (
	// ChannelLines streams every classified line
	ChannelLines = "/events/gcode"
	// ChannelStatus streams printer state changes
	ChannelStatus = "/events/status"

	maxBody = 1 << 20
)

// Bridge exposes the plugin hooks over HTTP so a print host can drive
// gnova from another process.
type Bridge struct {
	http.Handler
	hooks    host.Hooks
	instance string
	sse      *sse.Server
	upgrader websocket.Upgrader
}

var _ host.Observer = &Bridge{}

// New creates a bridge forwarding requests to hooks. instance is
// reported in every event so clients can tell several gnova processes apart.
func New(hooks host.Hooks, instance string) *Bridge {
	r := mux.NewRouter()
	b := &Bridge{
		Handler:  r,
		hooks:    hooks,
		instance: instance,
		sse: sse.NewServer(&sse.Options{
			Logger: slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug),
		}),
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/gcode", b.postGCode).Methods(http.MethodPost)
	api.HandleFunc("/event", b.postEvent).Methods(http.MethodPost)
	api.HandleFunc("/classify", b.classify).Methods(http.MethodGet)
	api.HandleFunc("/status", b.status).Methods(http.MethodGet)

	r.HandleFunc("/ws", b.stream)
	r.PathPrefix("/events/").Handler(b.sse)

	return b
}

// Close disconnects all event stream clients
func (b *Bridge) Close() {
	b.sse.Shutdown()
}

// LineRequest is the JSON form of POST /api/gcode
type LineRequest struct {
	Line  string   `json:"line,omitempty"`
	Lines []string `json:"lines,omitempty"`
	// GCode is the command token the host extracted, if any
	GCode string `json:"gcode,omitempty"`
}

// LineResult is returned for each line posted
type LineResult struct {
	Line   string       `json:"line"`
	Result gcode.Result `json:"result"`
}

// Event is an OctoPrint style event notification
type Event struct {
	Event   string `json:"event"`
	Payload struct {
		StateString string `json:"state_string"`
	} `json:"payload"`
}

func isJSON(req *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	return ct == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

// sender is implemented by hooks that report what they drew
type sender interface {
	Send(line string) gcode.Result
}

func (b *Bridge) send(line string) gcode.Result {
	if s, ok := b.hooks.(sender); ok {
		return s.Send(line)
	}
	b.hooks.OnGCodeSent(line)
	return gcode.Classify(line)
}

func (b *Bridge) postGCode(w http.ResponseWriter, req *http.Request) {
	body := io.LimitReader(req.Body, maxBody)

	var lines []string
	if isJSON(req) {
		var lr LineRequest
		if err := json.NewDecoder(body).Decode(&lr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if lr.Line != "" {
			lines = append(lines, lr.Line)
		}
		lines = append(lines, lr.Lines...)
		if lr.GCode != "" {
			slog.Debug("gcode sent", "gcode", lr.GCode)
		}
	} else {
		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	res := make([]LineResult, 0, len(lines))
	for _, line := range lines {
		res = append(res, LineResult{Line: line, Result: b.send(line)})
	}
	writeJSON(w, http.StatusOK, res)
}

func (b *Bridge) postEvent(w http.ResponseWriter, req *http.Request) {
	var ev Event
	if err := json.NewDecoder(io.LimitReader(req.Body, maxBody)).Decode(&ev); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch ev.Event {
	case "PrinterStateChanged":
		b.hooks.OnPrinterStateChanged(ev.Payload.StateString)
	default:
		slog.Debug("ignoring host event", "event", ev.Event)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Bridge) classify(w http.ResponseWriter, req *http.Request) {
	line := req.FormValue("line")
	writeJSON(w, http.StatusOK, LineResult{Line: line, Result: gcode.Classify(line)})
}

func (b *Bridge) status(w http.ResponseWriter, req *http.Request) {
	st := struct {
		Instance string `json:"instance"`
		Enabled  bool   `json:"enabled"`
	}{Instance: b.instance}
	if e, ok := b.hooks.(interface{ Enabled() bool }); ok {
		st.Enabled = e.Enabled()
	}
	writeJSON(w, http.StatusOK, st)
}

// stream reads websocket text frames of newline separated G-code and hands
// every line to the plugin until the client goes away
func (b *Bridge) stream(w http.ResponseWriter, req *http.Request) {
	ws, err := b.upgrader.Upgrade(w, req, nil)
	if err != nil {
		slog.Warn("websocket upgrade", "err", err)
		return
	}
	defer ws.Close()
	slog.Debug("gcode stream connected", "remote", req.RemoteAddr)

	for {
		typ, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("gcode stream read", "err", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			b.send(line)
		}
	}
}

type lineEvent struct {
	ID       string `json:"id"`
	Instance string `json:"instance"`
	host.Line
}

type statusEvent struct {
	ID       string `json:"id"`
	Instance string `json:"instance"`
	Status   string `json:"status"`
}

func (b *Bridge) publish(channel, id, event string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal event", "channel", channel, "err", err)
		return
	}
	b.sse.SendMessage(channel, sse.NewMessage(id, string(data), event))
}

// ObserveLine publishes a classified line on ChannelLines
func (b *Bridge) ObserveLine(l host.Line) {
	id := uuid.New().String()
	b.publish(ChannelLines, id, "line", lineEvent{ID: id, Instance: b.instance, Line: l})
}

// ObserveStatus publishes a printer state change on ChannelStatus
func (b *Bridge) ObserveStatus(s grid.Status) {
	id := uuid.New().String()
	b.publish(ChannelStatus, id, "status", statusEvent{ID: id, Instance: b.instance, Status: s.String()})
}

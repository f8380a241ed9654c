package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/auth"
	"quiz-session-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	auth     Authenticator
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, authenticator Authenticator) *WSHandler {
	return &WSHandler{
		service: service,
		auth:    authenticator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Index  int    `json:"index"`
	Answer string `json:"answer"`
}

type navigatePayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type timeUpPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades an authenticated request and drives the user's quiz session over it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	login, err := h.auth.Validate(token)
	if err != nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	userID := auth.UserKey(login.User)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.service.Start(ctx, userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Leave(context.Background(), userID)

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		// A session that was already submitted on connect only gets its state.
		first, wasSubmitted := true, false
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				if first {
					first, wasSubmitted = false, snap.IsSubmitted
				}
				msgs := []outboundMessage[any]{{Type: "state", Payload: snap}}
				if snap.IsSubmitted && !wasSubmitted && snap.Report != nil && snap.Report.TimedOut {
					msgs = append(msgs,
						outboundMessage[any]{Type: "timeUp", Payload: timeUpPayload{Message: "time is up, your answers were submitted"}},
						outboundMessage[any]{Type: "result", Payload: snap.Report},
					)
				}
				wasSubmitted = snap.IsSubmitted
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.handle(ctx, session, inbound); ok {
			send <- msg
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle applies one inbound command. State changes reach the client through
// the subscription; only results and errors are answered directly.
func (h *WSHandler) handle(ctx context.Context, session *app.Session, inbound inboundMessage) (outboundMessage[any], bool) {
	switch inbound.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid select payload"), true
		}
		if err := session.SelectAnswer(payload.Index, payload.Answer); err != nil {
			return errorMessage(err.Error()), true
		}
	case "navigate":
		var payload navigatePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid navigate payload"), true
		}
		if err := session.Navigate(payload.Index); err != nil {
			return errorMessage(err.Error()), true
		}
	case "submit":
		report, err := session.Submit(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrSubmissionFailed) {
				return errorMessage("failed to submit quiz, please try again"), true
			}
			return errorMessage(err.Error()), true
		}
		return outboundMessage[any]{Type: "result", Payload: report}, true
	case "reset":
		if err := session.Reset(ctx); err != nil {
			return errorMessage(err.Error()), true
		}
	default:
		return errorMessage("unsupported message type"), true
	}
	return outboundMessage[any]{}, false
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

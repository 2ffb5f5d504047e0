package http

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type statusPayload struct {
	Position      int  `json:"position"`
	Active        bool `json:"active"`
	TimeRemaining int  `json:"timeRemaining"`
}

// ServeWS upgrades the request and streams lifecycle events of the session
// until the client disconnects or the session ends. Clients may send
// {"type":"status"} to get the current timing without polling REST.
func (h *WSHandler) ServeWS(c *gin.Context) {
	sessionID := c.Param("sessionid")
	updates, cancel, err := h.service.Subscribe(c.Request.Context(), sessionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				// unblock the reader below
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case evt, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: evt.Type, Payload: evt}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
				if evt.Type == domain.EventEnded {
					// let the reader loop exit once the client sees the final event
					_ = conn.SetReadDeadline(time.Now().Add(time.Second))
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg outboundMessage) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var msg outboundMessage
		switch inbound.Type {
		case "status":
			status, err := h.service.Status(c.Request.Context(), sessionID)
			if err != nil {
				msg = outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
				break
			}
			msg = outboundMessage{Type: "status", Payload: statusPayload{
				Position:      status.Position,
				Active:        status.Active,
				TimeRemaining: status.TimeRemaining,
			}}
		default:
			msg = outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
		if !reply(msg) {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

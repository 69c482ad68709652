package ws

import (
	"encoding/json"
	"errors"
	"homematch-server/services"
	"homematch-server/utils"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	userID    uint
	sessionID string
}

// envelope is the client-to-server frame format on the live channel.
type envelope struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversationID"`
	To             uint   `json:"to"`
	Content        string `json:"content"`
	TempID         string `json:"tempId"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(8192)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { _ = c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("live session %s read error: %v", c.sessionID, err)
			break
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendError("", "invalid_json", "payload is not valid JSON")
			continue
		}
		switch env.Type {
		case "message":
			message, err := services.SendMessage(env.ConversationID, c.userID, env.To, env.Content)
			if err != nil {
				c.sendServiceError(env.TempID, err)
				continue
			}
			// the service already pushed the message event to both parties;
			// the ack only resolves the sender's optimistic temp id
			c.enqueue(map[string]interface{}{
				"type":    "message_ack",
				"tempId":  env.TempID,
				"message": message,
			})
		case "typing_start":
			if err := services.TypingStart(env.ConversationID, c.userID); err != nil {
				c.sendServiceError(env.TempID, err)
			}
		case "typing_stop":
			if err := services.TypingStop(env.ConversationID, c.userID); err != nil {
				c.sendServiceError(env.TempID, err)
			}
		case "mark_read":
			updated, err := services.MarkConversationRead(env.ConversationID, c.userID)
			if err != nil {
				c.sendServiceError(env.TempID, err)
				continue
			}
			c.enqueue(map[string]interface{}{
				"type":           "read_ack",
				"conversationID": env.ConversationID,
				"updatedCount":   updated,
			})
		default:
			c.sendError(env.TempID, "unsupported_type", "unknown envelope type "+env.Type)
		}
	}
}

func (c *Client) sendServiceError(tempID string, err error) {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		c.sendError(tempID, appErr.Kind, appErr.Message)
		return
	}
	c.sendError(tempID, "internal_error", "something went wrong")
}

func (c *Client) sendError(tempID, kind, message string) {
	payload := map[string]interface{}{
		"type":    "error",
		"error":   kind,
		"message": message,
	}
	if tempID != "" {
		payload["tempId"] = tempID
	}
	c.enqueue(payload)
}

// enqueue hands a frame to the write pump without ever blocking the read
// pump: when the buffer is full the frame is dropped like any other live
// push.
func (c *Client) enqueue(payload map[string]interface{}) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
		log.Printf("live session %s send buffer full, frame dropped", c.sessionID)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker((pongWait * 9) / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

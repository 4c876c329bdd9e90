// Pitchside Gateway - Real-Time Event Gateway for the Prediction Platform
// Copyright 2026 Bandi86
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Bandi86/pitchside-gateway

package gateway

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Bandi86/pitchside-gateway/internal/config"
	"github.com/Bandi86/pitchside-gateway/internal/logging"
)

// wsConn is the subset of *websocket.Conn the client uses. Tests substitute
// an in-memory implementation.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Command is the inbound wire frame. Payload stays raw until the matching
// handler decodes it.
type Command struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one websocket connection attached to the hub. Outbound
// envelopes flow through the buffered send channel owned by writePump;
// inbound frames are decoded by readPump and handed to the dispatcher.
type Client struct {
	id          string
	principalID string
	hub         *Hub
	conn        wsConn
	send        chan Envelope
	cfg         config.GatewayConfig
}

func newClient(hub *Hub, conn wsConn, principalID string, cfg config.GatewayConfig) *Client {
	return &Client{
		id:          uuid.New().String(),
		principalID: principalID,
		hub:         hub,
		conn:        conn,
		send:        make(chan Envelope, cfg.SendBuffer),
		cfg:         cfg,
	}
}

// ID returns the per-connection identifier assigned at accept time.
func (c *Client) ID() string { return c.id }

// PrincipalID returns the authenticated principal this connection belongs to.
func (c *Client) PrincipalID() string { return c.principalID }

// Start launches the read and write pumps. Each connection gets exactly one
// of each; the read pump owns teardown.
func (c *Client) Start(ctx context.Context) {
	go c.writePump()
	go c.readPump(ctx)
}

// readPump reads command frames until the connection drops, dispatching
// each to the command handler. It runs the hub teardown on exit so registry
// and subscription state never outlive the connection.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Disconnect(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug().
					Err(err).
					Str("socket_id", c.id).
					Msg("websocket read error")
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil || cmd.Command == "" {
			// Malformed frames get an error reply, never a crash or a
			// dropped connection.
			c.hub.relay.PublishToConnection(c.id, EventError, ErrorData{
				Code:    CodeConnectionError,
				Message: "malformed command frame",
			})
			continue
		}

		c.hub.dispatcher.Dispatch(ctx, c.id, cmd.Command, cmd.Payload)
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with periodic pings. A closed send channel means the hub detached
// this client; the pump sends a close frame and exits.
func (c *Client) writePump() {
	pingPeriod := c.cfg.PongWait * 9 / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				return
			}
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := MarshalEnvelope(env)
			if err != nil {
				logging.Error().
					Err(err).
					Str("socket_id", c.id).
					Str("type", env.Type).
					Msg("failed to marshal envelope")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

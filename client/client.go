// Package client speaks the chat wire protocol from the peer side.
// It is used by the tester binaries and the end-to-end suite.
package client

import (
	"chat-hub/domain"
	"chat-hub/protocol"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ServerError is an error frame, or a failed register/login answer.
type ServerError struct {
	Message string
}

func (e ServerError) Error() string { return "server: " + e.Message }

// Envelope is one decoded frame with its type already extracted.
type Envelope struct {
	Type protocol.ResponseType
	Raw  []byte
}

func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Raw, v)
}

type Client struct {
	conn    net.Conn
	decoder *protocol.Decoder
	timeout time.Duration
	writeMu sync.Mutex

	// Skipped receives the frames Await passes over. Nil drops them.
	Skipped func(Envelope)
}

// Dial connects to a chat server. timeout bounds each read and write; zero disables it.
func Dial(ctx context.Context, address string, timeout time.Duration) (*Client, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("cannot reach %s: %w", address, err)
	}
	return &Client{
		conn:    conn,
		decoder: protocol.NewDecoder(conn, protocol.DefaultMaxFrameSize),
		timeout: timeout,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Send writes one request frame. Safe for concurrent use.
func (c *Client) Send(req protocol.Request) error {
	frame, err := protocol.Encode(req)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	_, err = c.conn.Write(frame)
	return err
}

// Next blocks for the next frame. Only one goroutine may read.
func (c *Client) Next() (Envelope, error) {
	if c.timeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	frame, err := c.decoder.Next()
	if err != nil {
		return Envelope{}, err
	}
	var head struct {
		Type protocol.ResponseType `json:"type"`
	}
	if err = json.Unmarshal(frame, &head); err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: head.Type, Raw: frame}, nil
}

// Await returns the first frame of type want.
// An error frame met on the way is returned as a ServerError.
func (c *Client) Await(want protocol.ResponseType) (Envelope, error) {
	for {
		env, err := c.Next()
		if err != nil {
			return Envelope{}, err
		}
		switch env.Type {
		case want:
			return env, nil
		case protocol.TypeError:
			var e protocol.ErrorResponse
			if err = env.Decode(&e); err != nil {
				return Envelope{}, err
			}
			return Envelope{}, ServerError{Message: e.Message}
		}
		if c.Skipped != nil {
			c.Skipped(env)
		}
	}
}

func (c *Client) Register(username, password string) error {
	if err := c.Send(protocol.Request{Action: protocol.ActionRegister, Username: username, Password: password}); err != nil {
		return err
	}
	var resp protocol.RegisterResponse
	if err := c.call(protocol.TypeRegister, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return ServerError{Message: resp.Message}
	}
	return nil
}

func (c *Client) Login(username, password string) (protocol.User, error) {
	if err := c.Send(protocol.Request{Action: protocol.ActionLogin, Username: username, Password: password}); err != nil {
		return protocol.User{}, err
	}
	var resp protocol.LoginResponse
	if err := c.call(protocol.TypeLogin, &resp); err != nil {
		return protocol.User{}, err
	}
	if !resp.Success || resp.User == nil {
		return protocol.User{}, ServerError{Message: resp.Message}
	}
	return *resp.User, nil
}

// Post sends a text message. Its echo arrives as a regular broadcast.
func (c *Client) Post(roomID domain.RoomID, content string) error {
	id := int64(roomID)
	return c.Send(protocol.Request{Action: protocol.ActionSendMessage, RoomID: &id, Content: content})
}

func (c *Client) Join(roomID domain.RoomID) error {
	id := int64(roomID)
	if err := c.Send(protocol.Request{Action: protocol.ActionJoinRoom, RoomID: &id}); err != nil {
		return err
	}
	var resp protocol.RoomResponse
	return c.call(protocol.TypeJoinedRoom, &resp)
}

func (c *Client) History(roomID domain.RoomID, limit int) ([]protocol.Message, error) {
	id := int64(roomID)
	if err := c.Send(protocol.Request{Action: protocol.ActionGetHistory, RoomID: &id, Limit: &limit}); err != nil {
		return nil, err
	}
	var resp protocol.HistoryResponse
	err := c.call(protocol.TypeHistory, &resp)
	return resp.Messages, err
}

func (c *Client) Rooms() ([]protocol.Room, error) {
	if err := c.Send(protocol.Request{Action: protocol.ActionGetRooms}); err != nil {
		return nil, err
	}
	var resp protocol.RoomsResponse
	err := c.call(protocol.TypeRooms, &resp)
	return resp.Rooms, err
}

func (c *Client) call(want protocol.ResponseType, v any) error {
	env, err := c.Await(want)
	if err != nil {
		return err
	}
	return env.Decode(v)
}

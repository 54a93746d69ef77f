package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/google/uuid"
)

// notificationBuffer is the capacity of the notification channel
const notificationBuffer = 64

// Channel name prefixes, the client id is appended
const (
	ReqPrefix   = "req"
	RespPrefix  = "resp"
	NotifPrefix = "notif"
)

// NewRPCClient creates a new, unconnected client
// The function takes a config, a transport and a codec as parameters.
// An empty config.ClientID is replaced by a short random id.
func NewRPCClient(
	config common.ClientConfig,
	transport transport.IClientTransport,
	codec serializer.ICodec,
) IClient {
	if config.ClientID == "" {
		config.ClientID = NewClientID()
	}
	return &rpcClient{
		config:        config,
		transport:     transport,
		codec:         codec,
		subscriptions: make(map[string]struct{}),
		notifications: make(chan db.Change, notificationBuffer),
	}
}

// NewClientID returns a random id short enough for fixed width channel paths
func NewClientID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

type rpcClient struct {
	config    common.ClientConfig
	transport transport.IClientTransport
	codec     serializer.ICodec

	// mu serializes requests and guards the fields below
	mu            sync.Mutex
	connected     bool
	names         []string // created channels, in creation order
	req           io.WriteCloser
	resp          io.ReadCloser
	notif         io.ReadCloser
	subscriptions map[string]struct{}

	started       bool // a client connects only once

	notifications chan db.Change
}

// --------------------------------------------------------------------------
// Interface Methods (docu see client.IClient)
// --------------------------------------------------------------------------

func (c *rpcClient) ID() string {
	return c.config.ClientID
}

func (c *rpcClient) Connect(ctx context.Context) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return store.NewError(store.RetCInvalidOperation, "client is already connected")
	}
	if c.started {
		return store.NewError(store.RetCInvalidOperation, "client can not be reused after a session ended")
	}

	defer func() {
		if err != nil {
			c.teardown()
		}
	}()

	// Create the three client channels
	paths := make([]string, 3)
	for i, prefix := range []string{ReqPrefix, RespPrefix, NotifPrefix} {
		path := filepath.Join(c.config.ChannelDir, prefix+c.config.ClientID)
		if c.config.MaxPathLength > 0 && len(path) > c.config.MaxPathLength {
			return store.NewError(store.RetCCapacityExceeded,
				fmt.Sprintf("channel path %s exceeds %d bytes", path, c.config.MaxPathLength))
		}
		name, err := c.transport.Create(path)
		if err != nil {
			return fmt.Errorf("%w: %v", store.ErrChannelFailure, err)
		}
		c.names = append(c.names, name)
		paths[i] = name
	}
	reqName, respName, notifName := paths[0], paths[1], paths[2]

	// Register at the server
	register, err := c.transport.Dial(c.config.Endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrChannelFailure, err)
	}
	err = c.codec.WriteRequest(register, common.NewConnectRequest(reqName, respName, notifName))
	_ = register.Close()
	if err != nil {
		return fmt.Errorf("%w: send connect request: %v", store.ErrChannelFailure, err)
	}
	Logger.Debugf("Client %s: connect request sent to %s", c.config.ClientID, c.config.Endpoint)

	// Wait for the ack, then open the remaining channels in the order of the server
	if c.resp, err = c.transport.OpenReader(ctx, respName); err != nil {
		return fmt.Errorf("%w: open response channel: %v", store.ErrChannelFailure, err)
	}
	ack, err := c.readAck(ctx)
	if err != nil {
		return err
	}
	if ack.Status != common.StatusOK {
		return store.NewError(store.RetCInternalError, fmt.Sprintf("server returned %d for connect", ack.Status))
	}
	if c.req, err = c.transport.OpenWriter(ctx, reqName); err != nil {
		return fmt.Errorf("%w: open request channel: %v", store.ErrChannelFailure, err)
	}
	if c.notif, err = c.transport.OpenReader(ctx, notifName); err != nil {
		return fmt.Errorf("%w: open notification channel: %v", store.ErrChannelFailure, err)
	}

	c.connected = true
	c.started = true
	go c.readNotifications(c.notif)

	Logger.Infof("Client %s: connected to %s", c.config.ClientID, c.config.Endpoint)
	return nil
}

func (c *rpcClient) Subscribe(key string) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return common.StatusSubscribeError, store.ErrNotInitialized
	}
	_, subscribed := c.subscriptions[key]
	if !subscribed && c.config.MaxSubscriptions > 0 && len(c.subscriptions) >= c.config.MaxSubscriptions {
		return common.StatusSubscribeCapacity, store.ErrCapacityExceeded
	}

	resp, err := invokeRPCRequest(common.NewSubscribeRequest(key), c.req, c.resp, c.codec)
	if err != nil {
		return common.StatusSubscribeError, err
	}
	if resp.Status == common.StatusSubscribeExisted || resp.Status == common.StatusSubscribeMissing {
		c.subscriptions[key] = struct{}{}
	}
	return resp.Status, nil
}

func (c *rpcClient) Unsubscribe(key string) (byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return common.StatusUnsubscribeMissing, store.ErrNotInitialized
	}

	resp, err := invokeRPCRequest(common.NewUnsubscribeRequest(key), c.req, c.resp, c.codec)
	if err != nil {
		return common.StatusUnsubscribeMissing, err
	}
	delete(c.subscriptions, key)
	return resp.Status, nil
}

func (c *rpcClient) Notifications() <-chan db.Change {
	return c.notifications
}

func (c *rpcClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return store.ErrNotInitialized
	}

	_, err := invokeRPCRequest(common.NewDisconnectRequest(), c.req, c.resp, c.codec)
	c.teardown()
	if err != nil {
		return err
	}
	Logger.Infof("Client %s: disconnected", c.config.ClientID)
	return nil
}

func (c *rpcClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardown()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readAck reads the Connect ack. The read is abandoned when ctx is done.
func (c *rpcClient) readAck(ctx context.Context) (*common.Message, error) {
	type result struct {
		msg *common.Message
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := readResponse(common.MsgTConnect, c.resp, c.codec)
		done <- result{msg, err}
	}()

	select {
	case r := <-done:
		return r.msg, r.err
	case <-ctx.Done():
		// Closing the channel unblocks the pending read
		_ = c.resp.Close()
		<-done
		return nil, ctx.Err()
	}
}

// readNotifications forwards notifications until the notification channel ends
func (c *rpcClient) readNotifications(r io.Reader) {
	defer close(c.notifications)

	for {
		var msg common.Message
		if err := c.codec.ReadNotification(r, &msg); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				Logger.Debugf("Client %s: notification channel ended: %v", c.config.ClientID, err)
			}
			return
		}
		change, err := msg.ToChange()
		if err != nil {
			Logger.Warningf("Client %s: %v", c.config.ClientID, err)
			continue
		}
		if change.Deleted {
			// The server ends all subscriptions on a deleted key
			c.mu.Lock()
			delete(c.subscriptions, change.Key)
			c.mu.Unlock()
		}
		c.notifications <- change
	}
}

// teardown closes and removes all channels. Must be called with mu held.
func (c *rpcClient) teardown() {
	for _, ch := range []io.Closer{c.req, c.resp, c.notif} {
		if ch != nil {
			_ = ch.Close()
		}
	}
	for _, name := range c.names {
		if err := c.transport.Remove(name); err != nil {
			Logger.Warningf("Client %s: failed to remove channel %s: %v", c.config.ClientID, name, err)
		}
	}
	c.req, c.resp, c.notif, c.names = nil, nil, nil, nil
	c.connected = false
	c.subscriptions = make(map[string]struct{})
}

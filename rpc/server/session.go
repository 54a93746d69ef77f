package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/sKV/lib/db"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
)

// --------------------------------------------------------------------------
// Session State
// --------------------------------------------------------------------------

// SessionState is the life cycle state of a session
type SessionState int32

// A session is created by the worker that dequeued its Connect request, so StateIdle
// only spans the moment between creation and open. Requests waiting in the admission
// buffer have no session yet.
const (
	StateIdle       SessionState = iota // created by a worker, channels not opened yet
	StateConnecting                     // opening the client channels
	StateActive                         // serving requests
	StateClosed                         // torn down, terminal
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// errOutboxFull is returned by Push if the client does not keep up with its notifications
var errOutboxFull = errors.New("notification outbox is full")

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// session serves one connected client. It owns the server ends of the client's
// channels and is the notification sink of the client's subscriptions.
//
// Thread-safety: Push and close are safe for concurrent use, run must be called by a
// single worker. The subscriber handle belongs to that worker.
type session struct {
	num     uint64
	connect *common.Message
	srv     *Server

	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc

	subID db.SubscriberID // zero until registered

	mu    sync.Mutex // guards the channels
	resp  io.WriteCloser
	req   io.ReadCloser
	notif io.WriteCloser

	outbox    chan db.Change
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(ctx context.Context, srv *Server, num uint64, connect *common.Message) *session {
	ctx, cancel := context.WithCancel(ctx)
	return &session{
		num:     num,
		connect: connect,
		srv:     srv,
		ctx:     ctx,
		cancel:  cancel,
		outbox:  make(chan db.Change, max(srv.config.NotificationBuffer, 1)),
		done:    make(chan struct{}),
	}
}

// State returns the current state of the session
func (s *session) State() SessionState {
	return SessionState(s.state.Load())
}

// Push implements notify.ISink. It never blocks.
func (s *session) Push(change db.Change) error {
	select {
	case <-s.done:
		return fmt.Errorf("session %d is closed", s.num)
	default:
	}
	select {
	case s.outbox <- change:
		return nil
	default:
		return errOutboxFull
	}
}

// run drives the session from Connecting to Closed
func (s *session) run() {
	defer s.release()

	if err := s.open(); err != nil {
		if s.State() != StateClosed {
			Logger.Warningf("Session %d: connecting to %s failed: %v", s.num, s.connect.RespPath, err)
		}
		return
	}

	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateActive)) {
		return
	}
	Logger.Infof("Session %d: active (subscriber %d)", s.num, s.subID)

	go s.deliver()
	s.serve()
}

// open moves the session to Connecting, acks the Connect request and opens the
// client channels in the order the client expects them.
func (s *session) open() error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateConnecting)) {
		return errors.New("session is closed")
	}

	id, err := s.srv.store.RegisterSubscriber(s)
	if err != nil {
		return err
	}
	s.subID = id

	resp, err := s.srv.transport.OpenWriter(s.ctx, s.connect.RespPath)
	if err != nil {
		return channelFailure("open response channel", err)
	}
	if !s.attach(func() { s.resp = resp }, resp) {
		return errors.New("session is closed")
	}
	ack := common.NewResponse(common.MsgTConnect, common.StatusOK)
	if err := s.srv.codec.WriteResponse(resp, ack); err != nil {
		return channelFailure("send connect ack", err)
	}

	req, err := s.srv.transport.OpenReader(s.ctx, s.connect.ReqPath)
	if err != nil {
		return channelFailure("open request channel", err)
	}
	if !s.attach(func() { s.req = req }, req) {
		return errors.New("session is closed")
	}

	notif, err := s.srv.transport.OpenWriter(s.ctx, s.connect.NotifPath)
	if err != nil {
		return channelFailure("open notification channel", err)
	}
	if !s.attach(func() { s.notif = notif }, notif) {
		return errors.New("session is closed")
	}
	return nil
}

// attach stores an opened channel, or closes it if the session was closed meanwhile
func (s *session) attach(set func(), c io.Closer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() == StateClosed {
		_ = c.Close()
		return false
	}
	set()
	return true
}

// serve reads and answers requests until the client disconnects or the session is closed
func (s *session) serve() {
	for {
		var req common.Message
		err := s.srv.codec.ReadRequest(s.req, &req)
		if err != nil {
			switch {
			case s.State() == StateClosed:
			case errors.Is(err, io.EOF):
				Logger.Infof("Session %d: client closed its request channel", s.num)
			case errors.Is(err, store.ErrProtocolViolation):
				Logger.Warningf("Session %d: %v", s.num, err)
			default:
				Logger.Warningf("Session %d: %v", s.num, channelFailure("read request", err))
			}
			return
		}

		switch req.MsgType {
		case common.MsgTDisconnect:
			if err := s.respond(common.NewResponse(req.MsgType, common.StatusOK)); err != nil {
				Logger.Warningf("Session %d: %v", s.num, err)
			}
			Logger.Infof("Session %d: disconnected", s.num)
			return
		case common.MsgTConnect:
			Logger.Warningf("Session %d: %v", s.num,
				store.NewError(store.RetCProtocolViolation, "connect request on an active session"))
			return
		default:
			resp := s.srv.adapter.Handle(&req, s.subID, s.srv.store)
			if err := s.respond(resp); err != nil {
				Logger.Warningf("Session %d: %v", s.num, err)
				return
			}
		}
	}
}

func (s *session) respond(resp *common.Message) error {
	if err := s.srv.codec.WriteResponse(s.resp, resp); err != nil {
		return channelFailure("write response", err)
	}
	return nil
}

// deliver writes queued notifications to the notification channel, in queue order
func (s *session) deliver() {
	for {
		select {
		case <-s.done:
			return
		case change := <-s.outbox:
			if err := s.srv.codec.WriteNotification(s.notif, common.NewNotification(change)); err != nil {
				if s.State() != StateClosed {
					Logger.Warningf("Session %d: %v", s.num, channelFailure("write notification", err))
				}
				s.close()
				return
			}
		}
	}
}

// close moves the session to Closed and closes its channels. It is idempotent and may
// be called from any goroutine; closing the channels unblocks a worker waiting for a
// request. The subscriptions stay until the worker releases the session.
func (s *session) close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state.Store(int32(StateClosed))
		for _, c := range []io.Closer{s.req, s.resp, s.notif} {
			if c != nil {
				_ = c.Close()
			}
		}
		s.mu.Unlock()

		s.cancel()
		close(s.done)
	})
}

// release closes the session and drops its subscriptions. It runs on the worker once
// the last request was handled, so no request of the session can add a subscription
// after the sweep.
func (s *session) release() {
	s.close()
	if s.subID == 0 {
		return
	}
	if err := s.srv.store.DropSubscriber(s.subID); err != nil {
		Logger.Warningf("Session %d: failed to drop subscriptions: %v", s.num, err)
	}
}

func channelFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", store.ErrChannelFailure, op, err)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("rpc")

var (
	sessionsActive = metrics.GetOrCreateCounter("skv_sessions_active")
	sessionsTotal  = metrics.GetOrCreateCounter("skv_sessions_total")
)

// Server accepts clients on the register channel and serves each admitted client
// in its own session. At most config.Sessions sessions exist at the same time,
// further Connect requests wait in the admission pipeline.
type Server struct {
	config    common.ServerConfig
	store     store.IStore
	transport transport.IServerTransport
	codec     serializer.ICodec
	adapter   IRPCServerAdapter

	admission *admission
	sessions  *xsync.MapOf[uint64, *session] // registry of all live sessions
	nextNum   atomic.Uint64
	serving   atomic.Bool
}

// NewRPCServer creates a new RPC server
// It takes a config, the store to serve, a transport and a codec as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		store,
//		fifo.NewFifoServerTransport(),
//		serializer.NewFixedCodec(config.MaxStringLength, config.MaxPathLength),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	store store.IStore,
	transport transport.IServerTransport,
	codec serializer.ICodec,
) *Server {
	sessions := max(config.Sessions, 1)
	config.Sessions = sessions

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return &Server{
		config:    config,
		store:     store,
		transport: transport,
		codec:     codec,
		adapter:   NewIStoreServerAdapter(),
		admission: newAdmission(sessions),
		sessions:  xsync.NewMapOf[uint64, *session](),
	}
}

// Serve creates the register channel and serves clients until ctx is done.
// On return all sessions are closed and the register channel is removed.
// Serve must be called only once.
func (s *Server) Serve(ctx context.Context) error {
	if !s.serving.CompareAndSwap(false, true) {
		return errors.New("server is already serving")
	}

	register, err := s.transport.Listen(s.config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Endpoint, err)
	}

	Logger.Infof("Serving %s clients on %s with %d sessions (codec %s)",
		s.transport.GetName(), s.config.Endpoint, s.config.Sessions, s.codec.GetName())

	g, gctx := errgroup.WithContext(ctx)

	// Producer: reads Connect requests from the register channel
	g.Go(func() error {
		return s.acceptLoop(gctx, register)
	})

	// Consumers: one worker per session slot
	for i := 0; i < s.config.Sessions; i++ {
		g.Go(func() error {
			s.workerLoop(gctx)
			return nil
		})
	}

	// Shutdown: unblocks the producer and all sessions
	g.Go(func() error {
		<-gctx.Done()
		_ = register.Close()
		s.DisconnectAll()
		return nil
	})

	err = g.Wait()
	Logger.Infof("Server stopped")
	return err
}

// DisconnectAll forces every live session into the Closed state.
// Clients observe the end of their channels. Admitted clients waiting for a
// session are served afterward.
//
// Thread-safety: This method is thread-safe and can be called at any time.
func (s *Server) DisconnectAll() int {
	n := 0
	s.sessions.Range(func(_ uint64, sess *session) bool {
		sess.close()
		n++
		return true
	})
	if n > 0 {
		Logger.Infof("Disconnected %d sessions", n)
	}
	return n
}

// ActiveSessions returns the number of sessions currently registered
func (s *Server) ActiveSessions() int {
	return s.sessions.Size()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// acceptLoop reads Connect requests from the register channel and admits them.
// A malformed record is logged and skipped. The codec has consumed only the bytes it
// could decode, so with the fixed codec the loop resumes at the byte after an unknown
// opcode: every following byte that is not a valid opcode is rejected on its own, and
// payload bytes of a garbage record may be decoded as a further record. Connect records
// with missing channel locations are rejected, anything else fails later when the
// session opens the channels. The framed codecs always consume a whole frame.
func (s *Server) acceptLoop(ctx context.Context, register io.Reader) error {
	for {
		var req common.Message
		err := s.codec.ReadRequest(register, &req)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, store.ErrProtocolViolation) {
				Logger.Warningf("Rejected connection attempt: %v", err)
				continue
			}
			return fmt.Errorf("%w: register channel: %v", store.ErrChannelFailure, err)
		}

		if req.MsgType != common.MsgTConnect {
			Logger.Warningf("Rejected connection attempt: %v", store.NewError(store.RetCProtocolViolation,
				fmt.Sprintf("expected connect request, got %s", req.MsgType)))
			continue
		}
		if req.ReqPath == "" || req.RespPath == "" || req.NotifPath == "" {
			Logger.Warningf("Rejected connection attempt: %v", store.NewError(store.RetCProtocolViolation,
				"connect request without channel locations"))
			continue
		}

		Logger.Debugf("Connect request for %s", req.RespPath)
		if err := s.admission.Admit(ctx, &req); err != nil {
			return nil
		}
	}
}

func (s *Server) workerLoop(ctx context.Context) {
	for {
		req, err := s.admission.Next(ctx)
		if err != nil {
			return
		}
		s.runSession(ctx, req)
		s.admission.Release()
	}
}

func (s *Server) runSession(ctx context.Context, req *common.Message) {
	num := s.nextNum.Add(1)
	sess := newSession(ctx, s, num, req)

	s.sessions.Store(num, sess)
	sessionsActive.Inc()
	sessionsTotal.Inc()
	defer func() {
		s.sessions.Delete(num)
		sessionsActive.Dec()
	}()

	// A shutdown may have swept the registry before this session was stored
	if ctx.Err() != nil {
		sess.close()
		return
	}
	sess.run()
}

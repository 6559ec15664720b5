// Package transport implements the TCP accept loop and per-connection
// read/write loops that sit between the wire and the dispatcher
// (spec.md §5, §6). Adapted from the teacher's transport.Server: the same
// accept-loop/per-connection-goroutine shape, generalized from a WebSocket
// upgrade + broadcast hub to a RESP command session with its own read,
// execute, and write concerns split across goroutines so a client parked
// in a blocking command (BLPOP, XREAD BLOCK) is still detected the instant
// its socket closes.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vivekkdagar/redix/internal/config"
	"github.com/vivekkdagar/redix/internal/dispatcher"
	"github.com/vivekkdagar/redix/internal/keyspace"
	"github.com/vivekkdagar/redix/internal/metrics"
	"github.com/vivekkdagar/redix/internal/pubsub"
	"github.com/vivekkdagar/redix/internal/replication"
	"github.com/vivekkdagar/redix/internal/resp"
	"github.com/vivekkdagar/redix/internal/session"
)

// Server listens for RESP client connections and drives each through the
// dispatcher.
type Server struct {
	cfg        config.Config
	logger     *zap.Logger
	hub        *session.Hub
	dispatcher *dispatcher.Dispatcher
	keyspace   *keyspace.Keyspace
	pubsub     *pubsub.Hub
	replicas   *replication.Registry
	metrics    *metrics.Registry

	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer builds a Server wired to the long-lived singletons it drives
// commands through.
func NewServer(cfg config.Config, logger *zap.Logger, hub *session.Hub, d *dispatcher.Dispatcher, ks *keyspace.Keyspace, ps *pubsub.Hub, repl *replication.Registry, m *metrics.Registry) *Server {
	return &Server{cfg: cfg, logger: logger, hub: hub, dispatcher: d, keyspace: ks, pubsub: ps, replicas: repl, metrics: m}
}

// Start binds the listener and begins accepting connections in the
// background.
func (s *Server) Start(ctx context.Context) error {
	if s.listener != nil {
		return errors.New("transport already started")
	}

	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.logger.Info("transport listening", zap.String("addr", addr))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ctx)
	}()

	return nil
}

// Stop closes the listener and waits for every connection goroutine to
// finish.
func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			s.logger.Error("accept error", zap.Error(err))
			return
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConnection(c)
		}(conn)
	}
}

// handleConnection drives one client connection for its entire lifetime.
// Three goroutines cooperate: this one executes commands (and may block
// synchronously inside a handler such as BLPOP), a frame reader pulls the
// next command off the wire independently so a disconnect is observed even
// while a command is parked, and a writer drains the session's outbox —
// the only path anything (command replies, pub/sub deliveries, propagated
// writes) reaches the socket through (spec.md §5).
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	sess := s.hub.Register()
	defer s.cleanupSession(sess)

	var closeOnce sync.Once
	closeDone := func() { closeOnce.Do(func() { close(sess.Done) }) }
	defer closeDone()

	reader := resp.NewReader(conn)
	writer := resp.NewWriter(conn)

	cmdCh := make(chan []string)
	readErrCh := make(chan error, 1)
	go s.readLoop(conn, reader, sess, cmdCh, readErrCh)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(conn, writer, sess)
	}()

	for {
		select {
		case args, ok := <-cmdCh:
			if !ok {
				closeDone()
				<-writerDone
				return
			}
			if len(args) == 0 {
				continue
			}
			reply := s.dispatcher.Dispatch(sess, args)
			if !reply.IsZero() {
				select {
				case sess.Outbox <- reply:
				case <-sess.Done:
				}
			}
			if strings.EqualFold(args[0], "QUIT") {
				closeDone()
				<-writerDone
				return
			}
		case err := <-readErrCh:
			if err != nil {
				s.logger.Debug("connection read ended", zap.Error(err))
			}
			closeDone()
			<-writerDone
			return
		}
	}
}

// readLoop runs in its own goroutine for the connection's lifetime,
// continuously parsing the next inbound command independent of whatever
// the executor goroutine is doing — including blocking inside a handler.
// This is what lets a client disconnect mid-BLPOP be observed immediately:
// the blocking read itself fails the instant the socket closes.
func (s *Server) readLoop(conn net.Conn, reader *resp.Reader, sess *session.Session, cmdCh chan<- []string, errCh chan<- error) {
	for {
		args, err := reader.ReadCommand()
		if err != nil {
			errCh <- err
			return
		}
		select {
		case cmdCh <- args:
		case <-sess.Done:
			return
		}
	}
}

// writeLoop drains sess.Outbox to the socket until the connection closes.
// It always fully drains any already-queued frames before honoring
// sess.Done, so a reply enqueued just before shutdown (e.g. QUIT's +OK) is
// never dropped by a select racing against the close.
func (s *Server) writeLoop(conn net.Conn, writer *resp.Writer, sess *session.Session) {
	for {
		select {
		case v := <-sess.Outbox:
			if err := writer.WriteValue(v); err != nil {
				return
			}
			s.drainAndFlush(writer, sess.Outbox)
			continue
		default:
		}

		select {
		case v := <-sess.Outbox:
			if err := writer.WriteValue(v); err != nil {
				return
			}
			s.drainAndFlush(writer, sess.Outbox)
		case <-sess.Done:
			// One last non-blocking drain: a reply may have been enqueued
			// in the same instant Done closed.
			s.drainAndFlush(writer, sess.Outbox)
			return
		}
	}
}

func (s *Server) drainAndFlush(writer *resp.Writer, outbox <-chan resp.Value) {
	for {
		select {
		case v := <-outbox:
			if err := writer.WriteValue(v); err != nil {
				return
			}
		default:
			_ = writer.Flush()
			return
		}
	}
}

// cleanupSession releases everything a connection's session held: its
// pub/sub subscriptions, its replica registration if it completed PSYNC,
// and its slot in the session hub. PubSub and replication state are only
// ever touched under the keyspace lock (spec.md §5), so cleanup acquires
// it exactly as a command handler would.
func (s *Server) cleanupSession(sess *session.Session) {
	s.keyspace.Lock()
	s.pubsub.UnsubscribeAll(sess)
	if sess.Replica != nil {
		s.replicas.Unregister(sess.Replica.ReplicaID)
		if s.metrics != nil {
			s.metrics.ReplicaCount.Dec()
		}
	}
	s.keyspace.Unlock()
	s.hub.Unregister(sess)
}

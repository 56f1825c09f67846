// Package server implements spec.md §4.5's dispatch server: a single
// acceptor thread polling for ready sockets, a bounded FIFO connection
// queue, and a lazily-grown worker pool that decodes and dispatches both
// the line-oriented GQTP protocol and the binary MBREQ protocol against a
// shared database.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ryogrid/ftsengine/internal/cache"
	fctx "github.com/ryogrid/ftsengine/internal/context"
	"github.com/ryogrid/ftsengine/internal/database"
)

// Resource limits from spec.md §4.5/§5.
const (
	MaxConnections    = 0x10000
	QCapacity         = 256
	MaxIdleWorkers    = 4
	EnqueueAttempts   = 100
	EnqueueBackoff    = time.Millisecond
	AcceptPollTimeout = 3000 * time.Millisecond
)

// QueryExecutor is the out-of-scope QL collaborator's contract (spec.md
// §1: "the embedded query language interpreter... only their contracts
// matter"). The server forwards a GQTP body and flags to it and writes
// whatever it returns back to the client as one TAIL-flagged GQTP frame.
type QueryExecutor interface {
	Execute(ctx context.Context, fc *fctx.Context, body []byte, flags byte) ([]byte, error)
}

// Server owns the listening socket, the connection queue, and the worker
// pool dispatching against db.
type Server struct {
	listener net.Listener
	db       *database.Database
	ql       QueryExecutor

	q *queue

	quit  int32 // atomic: 1 once Stop has been called
	conns int32 // atomic: count of live connections, capped at MaxConnections

	cacheMu    sync.Mutex
	cacheTable *cache.Table
}

// New creates a Server serving connections accepted from listener,
// dispatching GQTP bodies to ql
// and MBREQ frames against db's shared cache table.
func New(listener net.Listener, db *database.Database, ql QueryExecutor) *Server {
	return &Server{
		listener: listener,
		db:       db,
		ql:       ql,
		q:        newQueue(QCapacity),
	}
}

// Run starts the acceptor loop and blocks until ctx is cancelled or Stop
// is called, then drains and closes all remaining connections.
func (s *Server) Run(ctx context.Context) error {
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.acceptLoop(gctx)
	})
	group.Go(func() error {
		<-gctx.Done()
		return s.Stop()
	})
	return group.Wait()
}

// Stop signals the global QUIT status: the acceptor's poll terminates at
// its next timeout, idle workers exit at their next wake, and the
// listener is closed (spec.md §5's "soft cancellation").
func (s *Server) Stop() error {
	atomic.StoreInt32(&s.quit, 1)
	s.q.broadcastQuit()
	return s.listener.Close()
}

func (s *Server) quitting() bool {
	return atomic.LoadInt32(&s.quit) != 0
}

// acceptLoop polls the listener with a bounded timeout so it notices a
// QUIT between accepts even when no client ever connects (spec.md §4.5:
// "Acceptor thread polls with a 3000 ms timeout, stopping when global
// status becomes QUIT").
func (s *Server) acceptLoop(ctx context.Context) error {
	type deadliner interface {
		SetDeadline(time.Time) error
	}
	dl, hasDeadline := s.listener.(deadliner)

	for {
		if s.quitting() {
			return nil
		}
		if hasDeadline {
			_ = dl.SetDeadline(time.Now().Add(AcceptPollTimeout))
		}
		conn, err := s.listener.Accept()
		if err != nil {
			if s.quitting() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("server: accept: %w", err)
		}
		s.handleAccepted(ctx, conn)
	}
}

func (s *Server) handleAccepted(ctx context.Context, conn net.Conn) {
	if atomic.AddInt32(&s.conns, 1) > MaxConnections {
		atomic.AddInt32(&s.conns, -1)
		conn.Close()
		return
	}
	c := newConnection(conn)
	if !s.q.tryEnqueue(ctx, c) {
		writeOverloadFrame(conn)
		conn.Close()
		atomic.AddInt32(&s.conns, -1)
		return
	}
	s.q.ensureWorker(s)
}

// dispatch runs one connection's read-decode-dispatch-respond cycle and,
// unless the connection asked to stay open for another message, closes
// it and releases its context. A connection that stays open is queued
// again once its next message starts to arrive.
func (s *Server) dispatch(c *connection) {
	again, err := c.serveOne(s)
	if err != nil || !again {
		c.close()
		atomic.AddInt32(&s.conns, -1)
		return
	}
	// More data may already be buffered (pipelined requests); keep
	// serving this connection inline rather than re-enqueueing it, since
	// spec.md's ordering guarantee requires per-connection serialization
	// and this worker already owns it.
	for {
		hasMore, err := c.hasBufferedFrame()
		if err != nil || !hasMore {
			break
		}
		again, err := c.serveOne(s)
		if err != nil || !again {
			c.close()
			atomic.AddInt32(&s.conns, -1)
			return
		}
	}
	// Wait for the next message off the worker, then queue the connection
	// again so that one dispatch at a time serves it.
	go func() {
		if _, err := c.fill(); err != nil || !s.q.tryEnqueue(context.Background(), c) {
			c.close()
			atomic.AddInt32(&s.conns, -1)
			return
		}
		s.q.ensureWorker(s)
	}()
}

// sharedCache returns the process-wide cache table named cache.Name,
// creating it lazily under cacheMu on first use (spec.md §4.6: "Shared
// process-wide, created lazily under a mutex").
func (s *Server) sharedCache() (*cache.Table, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheTable != nil {
		return s.cacheTable, nil
	}

	id, err := s.db.Lookup(cache.Name)
	if err == nil {
		tbl, err := s.db.Cache(id)
		if err != nil {
			return nil, err
		}
		s.cacheTable = tbl
		return tbl, nil
	}

	_, tbl, err := s.db.CreateCache(cache.Name)
	if err != nil {
		return nil, err
	}
	s.cacheTable = tbl
	return tbl, nil
}

func writeOverloadFrame(conn net.Conn) {
	// Best-effort GQTP error frame; spec.md §4.5 says to emit one before
	// dropping the message when enqueue back-off is exhausted.
	header := make([]byte, gqtpHeaderSize)
	putU32(header[0:4], gqtpProto)
	header[5] = gqtpFlagTail
	putU16(header[6:8], gqtpStatusOverload)
	putU32(header[8:12], 0)
	_, _ = conn.Write(header)
}

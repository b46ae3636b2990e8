// Package server accepts TCP connections and dispatches RESP commands
// against a storage.Store.
package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"bader/internal/config"
	"bader/internal/logging"
	"bader/internal/resp"
	"bader/internal/storage"
)

// Server accepts connections on a single TCP listener and dispatches
// RESP commands read off each one against a shared Store.
type Server struct {
	config   *config.Config
	store    *storage.Store
	listener net.Listener

	mu          sync.RWMutex
	connections map[net.Conn]struct{}
	clientCount atomic.Int32

	shutdown   chan struct{}
	shutdownWg sync.WaitGroup
}

// New builds a Server bound to store. It does not start listening.
func New(cfg *config.Config, store *storage.Store) *Server {
	return &Server{
		config:      cfg,
		store:       store,
		connections: make(map[net.Conn]struct{}),
		shutdown:    make(chan struct{}),
	}
}

// Start binds the listen address and blocks accepting connections until
// Shutdown is called.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = listener
	logging.Infof("server: listening on %s", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
				logging.Warnf("server: accept error: %v", err)
				continue
			}
		}

		if s.clientCount.Load() >= int32(s.config.MaxClients) {
			conn.Close()
			continue
		}

		s.mu.Lock()
		s.connections[conn] = struct{}{}
		s.mu.Unlock()
		s.clientCount.Inc()

		s.shutdownWg.Add(1)
		go s.handleConnection(conn)
	}
}

// Shutdown closes the listener and every open connection, then waits for
// their handler goroutines to exit.
func (s *Server) Shutdown() error {
	close(s.shutdown)

	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.connections {
		conn.Close()
	}
	s.mu.Unlock()

	s.shutdownWg.Wait()
	return nil
}

// Addr returns the actual listening address, useful when the
// configuration binds an ephemeral port for tests.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.ListenAddr
}

func (s *Server) handleConnection(conn net.Conn) {
	connID := uuid.New().String()

	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("server: conn=%s handler panic: %v", connID, r)
		}

		s.mu.Lock()
		delete(s.connections, conn)
		s.mu.Unlock()

		s.clientCount.Dec()
		conn.Close()
		s.shutdownWg.Done()
	}()

	reader := resp.NewReader(conn)
	writer := resp.NewWriter(conn)

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		// No read deadline is set here: the server imposes no idle
		// timeout on connections. A client that never sends anything
		// stays open until it disconnects, is dropped by the OS, or
		// the server shuts down.
		cmd, err := reader.ReadCommand()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			// A protocol error ends the frame the client sent, not the
			// connection: reply and keep reading the next command.
			if errors.Is(err, resp.ErrProtocol) || errors.Is(err, resp.ErrNotBulkString) || errors.Is(err, resp.ErrNegativeLength) {
				writer.WriteError(fmt.Sprintf("ERR %s", err.Error()))
				continue
			}
			// Any other error is an IO error: close the connection silently.
			return
		}

		start := time.Now()
		s.dispatch(cmd, writer)

		if d := time.Since(start); d > s.config.SlowlogThreshold() {
			logging.Warnf("server: conn=%s slow command %s took %v", connID, cmd.Name, d)
		}
	}
}

// dispatch routes cmd to its handler. Unknown commands and wrong-arity
// calls reply with a RESP error and leave the connection open.
func (s *Server) dispatch(cmd resp.Command, w *resp.Writer) {
	switch cmd.Name {
	case "PING":
		s.handlePing(cmd, w)
	case "SET":
		s.handleSet(cmd, w)
	case "GET":
		s.handleGet(cmd, w)
	case "DEL":
		s.handleDel(cmd, w)
	case "EXISTS":
		s.handleExists(cmd, w)
	default:
		w.WriteError(fmt.Sprintf("ERR unknown command %q", cmd.Name))
	}
}

package server

import (
	"fmt"
	"strconv"
	"strings"

	"bader/internal/resp"
)

// handlePing replies PONG, ignoring any arguments.
func (s *Server) handlePing(cmd resp.Command, w *resp.Writer) {
	w.WriteSimpleString("PONG")
}

// handleGet implements GET key.
func (s *Server) handleGet(cmd resp.Command, w *resp.Writer) {
	if len(cmd.Args) != 1 {
		w.WriteError("ERR wrong number of arguments for 'GET'")
		return
	}

	value, ok := s.store.Get(string(cmd.Args[0]))
	if !ok {
		w.WriteNullBulk()
		return
	}
	w.WriteBulkString(value)
}

// handleSet implements SET key value, SET key value EX seconds and
// SET key value PX milliseconds. TTL values must be positive integers.
func (s *Server) handleSet(cmd resp.Command, w *resp.Writer) {
	if len(cmd.Args) != 2 && len(cmd.Args) != 4 {
		w.WriteError("ERR wrong number of arguments for 'SET'")
		return
	}

	key := string(cmd.Args[0])
	value := cmd.Args[1]

	var ttlMs int64
	if len(cmd.Args) == 4 {
		opt := strings.ToUpper(string(cmd.Args[2]))
		n, err := strconv.ParseInt(string(cmd.Args[3]), 10, 64)
		if err != nil || n <= 0 {
			w.WriteError(fmt.Sprintf("ERR invalid expire time in 'SET' for %s", opt))
			return
		}

		switch opt {
		case "EX":
			ttlMs = n * 1000
		case "PX":
			ttlMs = n
		default:
			w.WriteError(fmt.Sprintf("ERR unsupported option %q", opt))
			return
		}
	}

	if len(key) > s.config.MaxKeyBytes {
		w.WriteError("ERR key too large")
		return
	}
	if len(value) > s.config.MaxValueBytes {
		w.WriteError("ERR value too large")
		return
	}

	s.store.Set(key, value, ttlMs)
	w.WriteSimpleString("OK")
}

// handleDel implements DEL key.
func (s *Server) handleDel(cmd resp.Command, w *resp.Writer) {
	if len(cmd.Args) != 1 {
		w.WriteError("ERR wrong number of arguments for 'DEL'")
		return
	}

	if s.store.Del(string(cmd.Args[0])) {
		w.WriteInteger(1)
		return
	}
	w.WriteInteger(0)
}

// handleExists implements EXISTS key, replying with the bulk strings
// "true"/"false" rather than the integer form some Redis-alikes use.
func (s *Server) handleExists(cmd resp.Command, w *resp.Writer) {
	if len(cmd.Args) != 1 {
		w.WriteError("ERR wrong number of arguments for 'EXISTS'")
		return
	}

	if s.store.Exists(string(cmd.Args[0])) {
		w.WriteBulkString([]byte("true"))
		return
	}
	w.WriteBulkString([]byte("false"))
}

// Package control implements the loopback control channel used by
// `hub shutdown` to stop a running hub.
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultAddress is the loopback endpoint the hub listens on.
const DefaultAddress = "127.0.0.1:4000"

// ShutdownWord asks the hub to exit.
const ShutdownWord = "shutdown"

const (
	readTimeout = 5 * time.Second
	maxLineLen  = 64
)

// Server accepts control connections and invokes onShutdown when told to stop.
type Server struct {
	ln         net.Listener
	onShutdown func()
}

// Listen binds addr. onShutdown is called at most once per shutdown request.
func Listen(addr string, onShutdown func()) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("control listen on %s: %w", addr, err)
	}
	return &Server{ln: ln, onShutdown: onShutdown}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	log.Info().Str("address", s.ln.Addr().String()).Msg("Control channel listening")

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn().Err(err).Msg("Control accept failed")
			continue
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	r := bufio.NewReaderSize(conn, maxLineLen)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		log.Debug().Err(err).Msg("Control connection closed without a command")
		return
	}

	word := strings.ToLower(strings.TrimSpace(line))
	switch word {
	case ShutdownWord:
		log.Info().Str("from", conn.RemoteAddr().String()).Msg("Shutdown requested over control channel")
		_, _ = conn.Write([]byte("ok\n"))
		s.onShutdown()
	default:
		log.Warn().Str("command", word).Msg("Unknown control command")
		_, _ = conn.Write([]byte("unknown command\n"))
	}
}

// SendShutdown connects to a running hub at addr and asks it to stop.
func SendShutdown(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("no hub listening on %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := conn.Write([]byte(ShutdownWord + "\n")); err != nil {
		return fmt.Errorf("send shutdown: %w", err)
	}

	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && reply == "" {
		return fmt.Errorf("read reply: %w", err)
	}
	if strings.TrimSpace(reply) != "ok" {
		return fmt.Errorf("hub refused shutdown: %q", strings.TrimSpace(reply))
	}
	return nil
}

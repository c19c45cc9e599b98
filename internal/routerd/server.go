package routerd

import (
	"context"
	"io"
	"log"
	"net"

	"golang.org/x/sync/errgroup"
)

// DigestServer implements the router-side half of the digest transport:
// one TCP connection per request, client sends a single byte (0 = peek,
// 1 = peek-and-reset), server streams the serialized accumulator bytes
// and closes.
type DigestServer struct {
	router   *Router
	listener net.Listener
}

// NewDigestServer listens on addr (e.g. ":7878") and serves router's
// accumulator over it.
func NewDigestServer(router *Router, addr string) (*DigestServer, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &DigestServer{router: router, listener: l}, nil
}

// Addr returns the listener's bound address, useful when addr was ":0".
func (s *DigestServer) Addr() net.Addr { return s.listener.Addr() }

// Run accepts connections until ctx is canceled or Accept fails.
func (s *DigestServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return err
			}
		}
		go s.handle(conn)
	}
}

func (s *DigestServer) handle(conn net.Conn) {
	defer conn.Close()
	var modeByte [1]byte
	if _, err := io.ReadFull(conn, modeByte[:]); err != nil {
		log.Printf("[routerd] failed to read request byte: %v", err)
		return
	}
	mode := peek
	if modeByte[0] == 1 {
		mode = peekAndReset
	}
	data := s.router.requestDigest(mode)
	if _, err := conn.Write(data); err != nil {
		log.Printf("[routerd] failed to write digest: %v", err)
	}
}

// Serve runs the router's ingest loop and digest server together under
// a supervised group, returning when either stops or ctx is canceled.
func Serve(ctx context.Context, router *Router, server *DigestServer) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return router.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })
	return g.Wait()
}

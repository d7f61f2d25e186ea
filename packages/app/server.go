package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ShutdownTimeout bounds the graceful shutdown triggered by a cancelled
// listen context.
const ShutdownTimeout = 5 * time.Second

// Handle is a started server
type Handle interface {
	Addr() net.Addr
	Close(ctx context.Context) error
}

// Container is implemented by values that wrap the started server instead of
// being it. WithApp unwraps containers until it reaches a Handle that is not
// one.
type Container interface {
	Server() Handle
}

// Runnable is an application that can start listening on addr
type Runnable interface {
	Listen(ctx context.Context, addr string) (Handle, error)
}

// RunnableFunc adapts a function to Runnable
type RunnableFunc func(ctx context.Context, addr string) (Handle, error)

func (f RunnableFunc) Listen(ctx context.Context, addr string) (Handle, error) {
	return f(ctx, addr)
}

// Server is an http.Server bound to its own listener
type Server struct {
	srv *http.Server
	ln  net.Listener

	once sync.Once
	done chan struct{}
	err  error
}

// Serve starts handler on addr and returns once the listener is bound. The
// server shuts down when ctx is cancelled or Close is called.
func Serve(ctx context.Context, addr string, handler http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		srv:  &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		ln:   ln,
		done: make(chan struct{}),
	}
	go func() {
		_ = s.srv.Serve(ln)
	}()

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
			case <-s.done:
				return
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
			defer cancel()
			_ = s.Close(shutdownCtx)
		}()
	}

	return s, nil
}

func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Close shuts the server down gracefully. Only the first call has an effect;
// later calls return the first result.
func (s *Server) Close(ctx context.Context) error {
	s.once.Do(func() {
		close(s.done)
		err := s.srv.Shutdown(ctx)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.err = err
		}
	})
	return s.err
}

type handlerApp struct {
	handler http.Handler
}

// FromHandler adapts an http.Handler to Runnable
func FromHandler(h http.Handler) Runnable {
	return handlerApp{handler: h}
}

func (a handlerApp) Listen(ctx context.Context, addr string) (Handle, error) {
	return Serve(ctx, addr, a.handler)
}

type ginApp struct {
	engine *gin.Engine
}

// GinStartup is what a gin application yields from Listen: a container for
// the running server plus the engine serving it.
type GinStartup struct {
	Engine *gin.Engine
	server *Server
}

// Server returns the running server
func (g *GinStartup) Server() Handle {
	return g.server
}

func (g *GinStartup) Addr() net.Addr {
	return g.server.Addr()
}

func (g *GinStartup) Close(ctx context.Context) error {
	return g.server.Close(ctx)
}

// FromGin adapts a gin engine to Runnable
func FromGin(engine *gin.Engine) Runnable {
	return ginApp{engine: engine}
}

func (a ginApp) Listen(ctx context.Context, addr string) (Handle, error) {
	s, err := Serve(ctx, addr, a.engine)
	if err != nil {
		return nil, err
	}
	return &GinStartup{Engine: a.engine, server: s}, nil
}

// Unwrap follows Container values down to the innermost Handle
func Unwrap(h Handle) Handle {
	for h != nil {
		c, ok := h.(Container)
		if !ok {
			return h
		}
		inner := c.Server()
		if inner == nil || inner == h {
			return h
		}
		h = inner
	}
	return h
}

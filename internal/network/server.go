package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leengari/flatsql/internal/auth"
	dberrors "github.com/leengari/flatsql/internal/domain/errors"
	"github.com/leengari/flatsql/internal/engine"
)

// Server speaks JSON lines over TCP. Each connection gets its own engine
// session once it has logged in or presented a valid token.
type Server struct {
	eng    *engine.Engine
	auth   *auth.Authenticator
	tokens *auth.Tokens

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewServer(eng *engine.Engine, a *auth.Authenticator, tokens *auth.Tokens) *Server {
	return &Server{
		eng:    eng,
		auth:   a,
		tokens: tokens,
		conns:  make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds addr and serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	slog.Info("server listening", slog.String("addr", listener.Addr().String()))
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled. Open
// connections are closed on shutdown and Serve waits for their handlers.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		_ = listener.Close()
		s.closeAll()
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				slog.Error("failed to accept connection", slog.Any("error", err))
				return err
			}
			s.track(conn)
			g.Go(func() error {
				defer s.untrack(conn)
				s.handleConnection(ctx, conn)
				return nil
			})
		}
	})

	err := g.Wait()
	slog.Info("server stopped")
	return err
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
	conn.Close()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

// connState is the per-connection authentication state
type connState struct {
	session *engine.Session
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	slog.Debug("connection opened", slog.String("remote", remote))
	defer slog.Debug("connection closed", slog.String("remote", remote))

	// Use Decoder instead of Scanner for network streams
	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)
	state := &connState{}

	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("decode error", slog.String("remote", remote), slog.Any("error", err))
			_ = encoder.Encode(Response{Error: fmt.Sprintf("invalid request format: %v", err)})
			return
		}

		resp, closeConn := s.handle(ctx, state, &req)
		if err := encoder.Encode(resp); err != nil {
			slog.Warn("encode error", slog.String("remote", remote), slog.Any("error", err))
			return
		}
		if closeConn {
			return
		}
	}
}

// handle answers one request. closeConn asks the caller to hang up.
func (s *Server) handle(ctx context.Context, state *connState, req *Request) (resp Response, closeConn bool) {
	typ := strings.ToLower(req.Type)
	if typ == "" && req.Query != "" {
		typ = TypeQuery
	}

	switch typ {
	case TypeCaptcha:
		return Response{Type: typ, Success: true, Captcha: s.auth.Captcha().Challenge()}, false

	case TypeLogin:
		u, ok := s.auth.Login(req.UserID, req.Password, req.Captcha)
		if !ok {
			return Response{Type: typ, Error: "invalid credentials or captcha"}, false
		}
		token, exp, err := s.tokens.Issue(u)
		if err != nil {
			return Response{Type: typ, Error: err.Error()}, false
		}
		state.session = s.eng.NewSession(u.Username)
		return Response{Type: typ, Success: true, Token: token, ExpiresAt: &exp, User: u.Username}, false

	case TypeLogout:
		state.session = nil
		return Response{Type: typ, Success: true}, true

	case TypeQuery:
		if req.Token != "" {
			claims, err := s.tokens.Validate(req.Token)
			if err != nil {
				return Response{Type: typ, Error: err.Error()}, false
			}
			u, err := s.auth.Resolve(claims)
			if err != nil {
				state.session = nil
				return Response{Type: typ, Error: err.Error()}, false
			}
			if state.session == nil || state.session.User != u.Username {
				state.session = s.eng.NewSession(u.Username)
			}
		}
		if state.session == nil {
			return Response{Type: typ, Error: "not authenticated: log in or send a token"}, false
		}

		q := strings.TrimSpace(req.Query)
		if q == "exit" || q == `\q` {
			return Response{Type: typ, Success: true}, true
		}

		res, err := state.session.Execute(ctx, q)
		resp := Response{Type: typ, Success: err == nil, Result: res, User: state.session.User}
		if err != nil {
			resp.Error = err.Error()
			resp.Kind = string(dberrors.KindOf(err))
		}
		return resp, false
	}

	return Response{Type: req.Type, Error: fmt.Sprintf("unknown request type %q", req.Type)}, false
}

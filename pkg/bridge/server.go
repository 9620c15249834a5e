package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/etpu-project/etpu-go/pkg/bus"
	"github.com/etpu-project/etpu-go/pkg/clock"
	"github.com/etpu-project/etpu-go/pkg/log"
	"github.com/etpu-project/etpu-go/pkg/soc"
	"github.com/etpu-project/etpu-go/pkg/transport"
	"github.com/etpu-project/etpu-go/pkg/wire"
)

// DefaultRequestTimeout bounds one request, including any reset wait.
const DefaultRequestTimeout = 5 * time.Second

// ServerConfig configures a bridge Server.
type ServerConfig struct {
	// Address to listen on.
	Address string

	// Target is the bus master requests are driven through.
	Target Target

	// Info answers OpInfo. Nil answers with StatusInvalid.
	Info *wire.InfoPayload

	// RequestTimeout bounds one request.
	RequestTimeout time.Duration

	// Logger traces frames, messages and connections (optional).
	Logger log.Logger

	// OnError is called on transport and encoding errors.
	OnError func(err error)
}

// Server serves bridge requests.
type Server struct {
	config    ServerConfig
	transport *transport.Server
	logger    log.Logger
	ctx       context.Context
}

// NewServer returns a bridge server; call Start to listen.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Target == nil {
		return nil, errors.New("bridge: target is required")
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	s := &Server{
		config: config,
		logger: log.OrNoop(config.Logger),
		ctx:    context.Background(),
	}
	s.transport = transport.NewServer(transport.ServerConfig{
		Address:   config.Address,
		Logger:    config.Logger,
		OnMessage: s.onMessage,
		OnError: func(_ *transport.ServerConn, err error) {
			s.reportError(err)
		},
	})
	return s, nil
}

// Start listens for hosts. Requests in flight are abandoned when ctx ends.
func (s *Server) Start(ctx context.Context) error {
	s.ctx = ctx
	return s.transport.Start(ctx)
}

// Stop closes every connection.
func (s *Server) Stop() error {
	return s.transport.Stop()
}

// Addr returns the listen address, nil before Start.
func (s *Server) Addr() net.Addr {
	return s.transport.Addr()
}

func (s *Server) onMessage(conn *transport.ServerConn, data []byte) {
	start := time.Now()
	source := conn.RemoteAddr().String()

	req, err := wire.DecodeRequest(data)
	var resp *wire.Response
	switch {
	case req == nil:
		// Undecodable: there is no message ID to answer.
		s.reportError(fmt.Errorf("%s: %w", source, err))
		return
	case err != nil:
		s.logRequest(conn.ConnID(), source, req)
		resp = &wire.Response{MessageID: req.MessageID, Status: wire.StatusInvalid, Message: err.Error()}
	default:
		s.logRequest(conn.ConnID(), source, req)
		ctx, cancel := context.WithTimeout(s.ctx, s.config.RequestTimeout)
		resp = s.Handle(ctx, req, source)
		cancel()
	}

	out, err := wire.EncodeResponse(resp)
	if err != nil {
		s.reportError(fmt.Errorf("encode response: %w", err))
		return
	}
	if err := conn.Send(out); err != nil {
		s.reportError(fmt.Errorf("send response: %w", err))
		return
	}
	s.logResponse(conn.ConnID(), source, resp, time.Since(start))
}

// Handle executes one validated request against the target.
func (s *Server) Handle(ctx context.Context, req *wire.Request, source string) *wire.Response {
	resp := &wire.Response{MessageID: req.MessageID}

	var err error
	switch req.Op {
	case wire.OpRead:
		var r bus.Response
		r, err = s.config.Target.Transact(ctx, bus.Read(uint64(req.Address)), source)
		if err == nil {
			resp.Data = r.ReadData
		}
	case wire.OpWrite:
		_, err = s.config.Target.Transact(ctx, bus.Write(uint64(req.Address), req.Data, req.Lanes()), source)
	case wire.OpReset:
		if req.Data > soc.MaxResetCycles {
			err = fmt.Errorf("%w: %d cycles, max %d", soc.ErrResetCycles, req.Data, soc.MaxResetCycles)
			break
		}
		err = s.config.Target.Reset(ctx, int(req.Data))
	case wire.OpInfo:
		if s.config.Info == nil {
			resp.Status = wire.StatusInvalid
			resp.Message = "info not available"
			return resp
		}
		resp.Payload = s.config.Info
	default:
		resp.Status = wire.StatusInvalid
		resp.Message = fmt.Sprintf("unsupported operation %s", req.Op)
		return resp
	}

	if err != nil {
		resp.Status = statusFor(err)
		resp.Message = err.Error()
	}
	return resp
}

func statusFor(err error) wire.Status {
	switch {
	case errors.Is(err, soc.ErrBusError):
		return wire.StatusBusError
	case errors.Is(err, soc.ErrStalled):
		return wire.StatusStalled
	case errors.Is(err, clock.ErrNoLock):
		return wire.StatusBusy
	case errors.Is(err, soc.ErrResetCycles):
		return wire.StatusInvalid
	default:
		// Context expiry while waiting on the bus.
		return wire.StatusStalled
	}
}

func (s *Server) reportError(err error) {
	if s.config.OnError != nil {
		s.config.OnError(err)
	}
}

func (s *Server) logRequest(connID, source string, req *wire.Request) {
	op := req.Op
	msg := &log.MessageEvent{
		Type:      log.MessageTypeRequest,
		MessageID: req.MessageID,
		Op:        &op,
	}
	if op.HasAddress() {
		addr := req.Address
		msg.Address = &addr
	}
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: connID,
		Direction: log.DirectionIn,
		Layer:     log.LayerBridge,
		Category:  log.CategoryMessage,
		Source:    source,
		Message:   msg,
	})
}

func (s *Server) logResponse(connID, source string, resp *wire.Response, elapsed time.Duration) {
	status := resp.Status
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: connID,
		Direction: log.DirectionOut,
		Layer:     log.LayerBridge,
		Category:  log.CategoryMessage,
		Source:    source,
		Message: &log.MessageEvent{
			Type:           log.MessageTypeResponse,
			MessageID:      resp.MessageID,
			Status:         &status,
			ProcessingTime: &elapsed,
		},
	})
}

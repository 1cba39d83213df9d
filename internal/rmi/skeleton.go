package rmi

import (
	"encoding/gob"
	"net"
	"reflect"
	"sync"

	"github.com/meridianfs/namefs/internal/fserrors"
	"github.com/meridianfs/namefs/internal/log_service"
)

// Skeleton binds a concrete implementation to a declared remote interface
// and serves it over TCP: one acceptor goroutine accepts connections, and
// one worker goroutine per connection decodes a single call, dispatches it
// by reflection, and encodes the single reply.
type Skeleton struct {
	ifaceType reflect.Type
	impl      reflect.Value
	ls        log_service.LogService

	mu       sync.Mutex
	ln       net.Listener
	bindAddr string // requested address, passed to net.Listen by Start
	addr     string // actual bound address, empty until Start succeeds
	started  bool
	stopped  bool
	wg       sync.WaitGroup
}

// NewSkeleton validates that iface is a Go interface type every one of
// whose methods declares a trailing error return (this transport's
// substitute for the original's declared remote-exception clause), and that
// impl implements it, before returning a Skeleton bound to addr. addr may
// have an empty or "0.0.0.0" host to bind all interfaces; Start resolves the
// actual bound address.
func NewSkeleton(iface reflect.Type, impl any, addr string, ls log_service.LogService) (*Skeleton, error) {
	if iface == nil || iface.Kind() != reflect.Interface {
		return nil, fserrors.New(fserrors.NotRemoteInterface, "%v is not an interface type", iface)
	}
	implType := reflect.TypeOf(impl)
	if implType == nil || !implType.Implements(iface) {
		return nil, fserrors.New(fserrors.NotRemoteInterface, "%v does not implement %v", implType, iface)
	}
	for i := 0; i < iface.NumMethod(); i++ {
		m := iface.Method(i)
		if m.Type.NumOut() == 0 || !m.Type.Out(m.Type.NumOut()-1).Implements(errorType) {
			return nil, fserrors.New(fserrors.NotRemoteInterface, "method %s does not declare a trailing error return", m.Name)
		}
	}
	return &Skeleton{
		ifaceType: iface,
		impl:      reflect.ValueOf(impl),
		bindAddr:  addr,
		ls:        ls,
	}, nil
}

// Start binds the listening socket and begins accepting connections. It is
// an IllegalState error to start an already-started skeleton.
func (s *Skeleton) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fserrors.New(fserrors.IllegalState, "skeleton already started")
	}
	ln, err := net.Listen("tcp", s.bindAddr)
	if err != nil {
		s.mu.Unlock()
		return fserrors.New(fserrors.RemoteError, "listen on %s: %v", s.bindAddr, err)
	}
	s.ln = ln
	s.addr = ln.Addr().String()
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Address returns the bound address, empty until Start succeeds.
func (s *Skeleton) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop closes the listening socket and waits for in-flight connections to
// finish their single exchange. Stopping an unstarted or already-stopped
// skeleton is a no-op.
func (s *Skeleton) Stop() error {
	s.mu.Lock()
	if s.stopped || !s.started {
		s.stopped = true
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	ln := s.ln
	s.mu.Unlock()

	err := ln.Close()
	s.wg.Wait()
	return err
}

func (s *Skeleton) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return
			}
			if s.ls != nil {
				s.ls.Error(log_service.LogEvent{Message: "rmi: accept error: " + err.Error()})
			}
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveOne(conn)
		}()
	}
}

// serveOne decodes exactly one callFrame from conn, dispatches it, and
// writes back exactly one resultFrame, then closes the connection. The
// transport is request/response per-connection, not a persistent session.
func (s *Skeleton) serveOne(conn net.Conn) {
	defer conn.Close()

	var frame callFrame
	if err := gob.NewDecoder(conn).Decode(&frame); err != nil {
		return
	}

	rf := resultFrame{}
	value, callErr := s.dispatch(frame)
	if callErr != nil {
		kind, msg := classify(callErr)
		rf.ErrKind, rf.ErrMsg = string(kind), msg
		if s.ls != nil {
			s.ls.Warn(log_service.LogEvent{
				Message:  "rmi: call failed",
				Metadata: map[string]any{"method": frame.Method, "kind": string(rf.ErrKind), "error": rf.ErrMsg},
			})
		}
	} else {
		rf.Value = value
	}

	if err := gob.NewEncoder(conn).Encode(&rf); err != nil && s.ls != nil {
		s.ls.Error(log_service.LogEvent{Message: "rmi: encode result: " + err.Error()})
	}
}

func (s *Skeleton) dispatch(frame callFrame) (any, error) {
	m, ok := s.ifaceType.MethodByName(frame.Method)
	if !ok {
		return nil, fserrors.New(fserrors.RemoteError, "unknown method %s on %s", frame.Method, s.ifaceType)
	}
	if m.Type.NumIn() != len(frame.Args) {
		return nil, fserrors.New(fserrors.RemoteError, "%s: expected %d args, got %d", frame.Method, m.Type.NumIn(), len(frame.Args))
	}

	in := make([]reflect.Value, len(frame.Args))
	for i, a := range frame.Args {
		want := m.Type.In(i)
		av := reflect.ValueOf(a)
		if a == nil {
			in[i] = reflect.Zero(want)
			continue
		}
		if !av.Type().AssignableTo(want) {
			return nil, fserrors.New(fserrors.RemoteError, "%s: argument %d: got %s, want %s", frame.Method, i, av.Type(), want)
		}
		in[i] = av
	}

	implMethod := s.impl.MethodByName(frame.Method)
	if !implMethod.IsValid() {
		return nil, fserrors.New(fserrors.RemoteError, "%s: not implemented", frame.Method)
	}

	out := implMethod.Call(in)
	errOut := out[len(out)-1]
	if !errOut.IsNil() {
		return nil, errOut.Interface().(error)
	}
	if len(out) == 1 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

// Package remote drives an external DEM engine process over socket.io.
//
// Every operation is a request/response event pair: the harness emits
// `dem:<op>` with a sequence number and waits for `dem:<op>:done` carrying the
// same number. Loads set between steps are buffered and sent with the next
// dem:step; the state returned by the step is cached so the read accessors
// never block.
package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/specialistvlad/shakegrid/internal/ctxlog"
	"github.com/specialistvlad/shakegrid/internal/engine"
	"github.com/specialistvlad/shakegrid/internal/simerr"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Name is the registry name of this engine.
const Name = "remote"

const (
	defaultTimeout = 10 * time.Second
	connectTimeout = 15 * time.Second
)

var operations = []string{"load", "step", "close"}

// Module implements the engine.Module interface for this package.
type Module struct{}

// Register registers the remote engine factory.
func (m *Module) Register(r *engine.Registry) {
	r.Register(Name, func(opts engine.Options) (engine.Engine, error) {
		return New(opts)
	})
}

// Engine is a client of a remote engine server. It is not safe for
// concurrent use.
type Engine struct {
	url     *url.URL
	timeout time.Duration

	client *socket.Socket

	mu      sync.Mutex
	seq     int64
	pending map[int64]chan map[string]any

	radii          []float64
	st             state
	boundaryForces map[int]engine.Vec3
	particleForces map[int]engine.Vec3
}

var _ engine.Engine = (*Engine)(nil)

// New validates the options. The connection is opened by Load.
func New(opts engine.Options) (*Engine, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("%w: remote engine needs an engine_url", simerr.ErrInvalidConfig)
	}
	parsed, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse engine_url: %w", simerr.ErrInvalidConfig, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: engine_url %q needs a scheme and host", simerr.ErrInvalidConfig, opts.URL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Engine{
		url:            parsed,
		timeout:        timeout,
		pending:        make(map[int64]chan map[string]any),
		boundaryForces: make(map[int]engine.Vec3),
		particleForces: make(map[int]engine.Vec3),
	}, nil
}

func (e *Engine) connect(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("engine", Name, "url", e.url.String())
	logger.Info("Connecting to engine server...")

	opts := socket.DefaultOptions()
	opts.SetPath(e.url.Path)
	if e.url.Query().Get("insecure") == "true" {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", e.url.Scheme, e.url.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to engine server", "sid", io.Id())
		select {
		case connectChan <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if cerr, ok := errs[0].(error); ok {
				err = cerr
			}
		}
		select {
		case connectChan <- err:
		default:
		}
	})
	for _, op := range operations {
		io.On(types.EventName("dem:"+op+":done"), e.deliver)
	}

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return fmt.Errorf("%w: socket.io connection failed: %w", simerr.ErrEngineFailure, err)
		}
		e.client = io
		return nil
	case <-ctx.Done():
		io.Disconnect()
		return fmt.Errorf("%w: context cancelled while waiting for socket.io connection", simerr.ErrEngineFailure)
	case <-time.After(min(connectTimeout, e.timeout)):
		io.Disconnect()
		return fmt.Errorf("%w: timed out after %v waiting for socket.io connection", simerr.ErrEngineFailure, min(connectTimeout, e.timeout))
	}
}

// deliver routes a response to the request waiting for its sequence number.
func (e *Engine) deliver(data ...any) {
	if len(data) == 0 {
		return
	}
	payload, ok := data[0].(map[string]any)
	if !ok {
		return
	}
	seq, err := toFloat(payload["seq"])
	if err != nil {
		return
	}
	e.mu.Lock()
	ch, ok := e.pending[int64(seq)]
	delete(e.pending, int64(seq))
	e.mu.Unlock()
	if ok {
		ch <- payload
	}
}

// request emits dem:<op> and waits for its response.
func (e *Engine) request(ctx context.Context, op string, payload map[string]any) (map[string]any, error) {
	if e.client == nil {
		return nil, fmt.Errorf("%w: not connected", simerr.ErrEngineFailure)
	}

	e.mu.Lock()
	e.seq++
	seq := e.seq
	done := make(chan map[string]any, 1)
	e.pending[seq] = done
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.pending, seq)
		e.mu.Unlock()
	}()

	payload["seq"] = seq
	opCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.client.Emit("dem:"+op, payload)

	select {
	case <-opCtx.Done():
		return nil, fmt.Errorf("%w: timed out after %v waiting for 'dem:%s:done'", simerr.ErrEngineFailure, e.timeout, op)
	case resp := <-done:
		if err := responseError(resp); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", simerr.ErrEngineFailure, op, err)
		}
		return resp, nil
	}
}

// Load implements engine.Engine.
func (e *Engine) Load(ctx context.Context, setup engine.Setup) error {
	if e.client != nil {
		return errors.New("remote: engine already loaded")
	}
	if err := e.connect(ctx); err != nil {
		return err
	}
	if _, err := e.request(ctx, "load", encodeSetup(setup)); err != nil {
		return err
	}

	e.radii = make([]float64, len(setup.Particles))
	e.st = state{
		Positions:  make([]engine.Vec3, len(setup.Particles)),
		Velocities: make([]engine.Vec3, len(setup.Particles)),
		Reactions:  make([]engine.Vec3, len(setup.Boundaries)),
	}
	for i, p := range setup.Particles {
		e.radii[i] = p.Radius
		e.st.Positions[i] = p.Position
	}
	return nil
}

// Step implements engine.Engine.
func (e *Engine) Step(ctx context.Context) error {
	resp, err := e.request(ctx, "step", encodeForces(e.boundaryForces, e.particleForces))
	if err != nil {
		return err
	}
	st, err := decodeState(resp, len(e.radii))
	if err != nil {
		return fmt.Errorf("%w: malformed step response: %w", simerr.ErrEngineFailure, err)
	}
	e.st = st
	e.particleForces = make(map[int]engine.Vec3)
	return nil
}

// Time implements engine.Engine.
func (e *Engine) Time() float64 { return e.st.Time }

// Positions implements engine.Engine.
func (e *Engine) Positions() []engine.Vec3 {
	return append([]engine.Vec3(nil), e.st.Positions...)
}

// Velocities implements engine.Engine.
func (e *Engine) Velocities() []engine.Vec3 {
	return append([]engine.Vec3(nil), e.st.Velocities...)
}

// Radii implements engine.Engine.
func (e *Engine) Radii() []float64 {
	return append([]float64(nil), e.radii...)
}

// BoundaryReaction implements engine.Engine.
func (e *Engine) BoundaryReaction(id int) engine.Vec3 {
	if id < 0 || id >= len(e.st.Reactions) {
		return engine.Vec3{}
	}
	return e.st.Reactions[id]
}

// KineticEnergy implements engine.Engine.
func (e *Engine) KineticEnergy() float64 { return e.st.KineticEnergy }

// SetBoundaryForce implements engine.Engine. The force is sent with every
// following step until replaced.
func (e *Engine) SetBoundaryForce(id int, f engine.Vec3) error {
	if id < 0 || id > engine.WallZMax {
		return fmt.Errorf("remote: unknown boundary %d", id)
	}
	e.boundaryForces[id] = f
	return nil
}

// AddParticleForce implements engine.Engine.
func (e *Engine) AddParticleForce(i int, f engine.Vec3) error {
	if i < 0 || i >= len(e.radii) {
		return fmt.Errorf("remote: unknown particle %d", i)
	}
	e.particleForces[i] = e.particleForces[i].Add(f)
	return nil
}

// Close implements engine.Engine. It asks the server to release the
// simulation and disconnects.
func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	_, err := e.request(ctx, "close", map[string]any{})
	e.client.Disconnect()
	e.client = nil
	return err
}

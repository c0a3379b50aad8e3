package spatialquery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"forestgrid/internal/config"
	"forestgrid/internal/model"
	redis_client "forestgrid/internal/redis"
)

const livenessRedisKey = "spatialquery:liveness"

var (
	// ErrQueryInFlight is returned when a query is started while another is
	// active. Callers check Busy or cancel first; the coordinator never
	// silently replaces a running query.
	ErrQueryInFlight = errors.New("spatial query already in flight")

	// ErrEndpointUnavailable wraps liveness check failures.
	ErrEndpointUnavailable = errors.New("spatial query endpoint unavailable")
)

// Coordinator issues at most one remote spatial query at a time and streams
// progress and the final result back through callbacks. Cancellation is
// cooperative: a generation id is compared at callback time so a late
// response can never reach a caller that cancelled, and the request context
// is cancelled so the transport aborts when it can.
type Coordinator struct {
	baseURL string
	client  *http.Client

	mu         sync.Mutex
	busy       bool
	cancelCtx  context.CancelFunc
	generation uint64 // bumped on every start and every cancel

	statusMu sync.RWMutex
	status   *model.EndpointStatus // cached only after a successful check

	resultMu     sync.RWMutex
	lastOutcome  *model.QueryResult
	lastErr      error
	lastProgress model.QueryProgress
}

// NewCoordinator creates a coordinator for the given endpoint base URL.
func NewCoordinator(baseURL string) *Coordinator {
	return &Coordinator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: config.QueryTimeout},
	}
}

// Handle lets the caller cancel the query it started.
type Handle struct {
	generation uint64
	c          *Coordinator
}

// Cancel aborts the query this handle belongs to. Calling it after the query
// finished, or twice, is a no-op.
func (h *Handle) Cancel() {
	h.c.cancelGeneration(h.generation)
}

// Busy reports whether a query is currently in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Cancel aborts the in-flight query, if any. Safe to call when idle. The
// generation is read and cancelled under one lock so a query that finishes
// and a fresh one that starts in between are never affected.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(c.generation)
}

func (c *Coordinator) cancelGeneration(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(gen)
}

// cancelLocked requires c.mu to be held.
func (c *Coordinator) cancelLocked(gen uint64) {
	if !c.busy || c.generation != gen {
		return
	}

	// Bumping the generation first guarantees no callback for the cancelled
	// request fires even if the response is already being processed.
	atomic.AddUint64(&c.generation, 1)
	if c.cancelCtx != nil {
		c.cancelCtx()
		c.cancelCtx = nil
	}
	c.busy = false
	log.Println("spatial query cancelled")
}

// CheckAvailability probes the remote liveness endpoint. A successful result
// is cached for the life of the process (and mirrored to Redis when one is
// connected); a failure is never cached, so the next call re-checks.
func (c *Coordinator) CheckAvailability(ctx context.Context) (*model.EndpointStatus, error) {
	c.statusMu.RLock()
	cached := c.status
	c.statusMu.RUnlock()
	if cached != nil && cached.Available {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, config.LivenessTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: liveness check returned %d", ErrEndpointUnavailable, resp.StatusCode)
	}

	var body struct {
		IndexedLayers int `json:"indexedLayers"`
		TotalFeatures int `json:"totalFeatures"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed liveness response: %v", ErrEndpointUnavailable, err)
	}

	status := &model.EndpointStatus{
		Available:     true,
		IndexedLayers: body.IndexedLayers,
		TotalFeatures: body.TotalFeatures,
		CheckedAt:     time.Now(),
	}

	c.statusMu.Lock()
	c.status = status
	c.statusMu.Unlock()

	if redis_client.GetClient() != nil {
		if err := redis_client.SetJSON(livenessRedisKey, status, 5*time.Minute); err != nil {
			log.Printf("failed to cache liveness snapshot: %v", err)
		}
	}

	log.Printf("Spatial query endpoint available: %d layers, %d features",
		body.IndexedLayers, body.TotalFeatures)
	return status, nil
}

// invalidateAvailability drops the cached liveness snapshot after a query
// failure so the next attempt re-checks the endpoint.
func (c *Coordinator) invalidateAvailability() {
	c.statusMu.Lock()
	c.status = nil
	c.statusMu.Unlock()

	if redis_client.GetClient() != nil {
		if err := redis_client.Delete(livenessRedisKey); err != nil {
			log.Printf("failed to drop liveness snapshot: %v", err)
		}
	}
}

// Query starts one remote spatial query. It refuses to start while another
// query is in flight. onProgress and onResult are optional; neither is
// invoked after the returned handle (or the coordinator) is cancelled, and
// onResult is invoked exactly once otherwise.
func (c *Coordinator) Query(req model.QueryRequest, onProgress func(model.QueryProgress), onResult func(*model.QueryResult, error)) (*Handle, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, ErrQueryInFlight
	}

	gen := atomic.AddUint64(&c.generation, 1)
	ctx, cancel := context.WithCancel(context.Background())
	c.busy = true
	c.cancelCtx = cancel
	c.mu.Unlock()

	go c.run(ctx, gen, req, onProgress, onResult)

	return &Handle{generation: gen, c: c}, nil
}

func (c *Coordinator) run(ctx context.Context, gen uint64, req model.QueryRequest, onProgress func(model.QueryProgress), onResult func(*model.QueryResult, error)) {
	defer c.finish(gen)

	progress := func(stage, message string) {
		p := model.QueryProgress{Stage: stage, Message: message}
		if atomic.LoadUint64(&c.generation) != gen {
			return
		}
		c.resultMu.Lock()
		c.lastProgress = p
		c.resultMu.Unlock()
		if onProgress != nil {
			onProgress(p)
		}
	}

	deliver := func(result *model.QueryResult, err error) {
		// The generation guard is the single point deciding whether a late
		// arrival may still speak to the caller.
		if atomic.LoadUint64(&c.generation) != gen {
			return
		}
		c.resultMu.Lock()
		c.lastOutcome = result
		c.lastErr = err
		c.resultMu.Unlock()
		if onResult != nil {
			onResult(result, err)
		}
	}

	progress("availability", "checking spatial query endpoint")
	if _, err := c.CheckAvailability(ctx); err != nil {
		deliver(nil, err)
		return
	}

	progress("querying", "running remote spatial query")
	started := time.Now()
	raw, err := c.postQuery(ctx, req)
	if err != nil {
		c.invalidateAvailability()
		deliver(nil, err)
		return
	}

	progress("normalizing", "normalizing query response")
	result := normalizeResponse(req, raw, time.Since(started))
	deliver(result, nil)
}

// finish releases the busy flag unless a cancel already did.
func (c *Coordinator) finish(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy && c.generation == gen {
		c.busy = false
		if c.cancelCtx != nil {
			c.cancelCtx()
			c.cancelCtx = nil
		}
	}
}

func (c *Coordinator) postQuery(ctx context.Context, req model.QueryRequest) (*rawQueryResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("spatial query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("spatial query returned %d: %s", resp.StatusCode, string(body))
	}

	var raw rawQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("malformed spatial query response: %w", err)
	}

	return &raw, nil
}

// DispatchClick implements the gating pipeline's Dispatcher. Results land in
// the coordinator's last-outcome snapshot, which the API exposes; a click
// arriving while a query runs is dropped with a log line, matching the
// refuse-while-busy policy.
func (c *Coordinator) DispatchClick(lng, lat float64) {
	req := model.QueryRequest{
		Longitude:        lng,
		Latitude:         lat,
		MaxDistanceKm:    config.DefaultMaxDistanceKm,
		MaxNearestPoints: config.DefaultMaxNearestPoints,
	}

	_, err := c.Query(req, nil, nil)
	if errors.Is(err, ErrQueryInFlight) {
		log.Printf("click (%.6f, %.6f) ignored: %v", lng, lat, err)
	}
}

// LastOutcome returns the most recent delivered result or error, plus the
// latest progress stage.
func (c *Coordinator) LastOutcome() (*model.QueryResult, model.QueryProgress, error) {
	c.resultMu.RLock()
	defer c.resultMu.RUnlock()
	return c.lastOutcome, c.lastProgress, c.lastErr
}

// Status returns the cached liveness snapshot, or nil when none is cached.
func (c *Coordinator) Status() *model.EndpointStatus {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

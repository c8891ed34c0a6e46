// Package router sends uniform chat requests to AI providers.
//
// The Router resolves (provider, model) through the catalog, picks the
// credential (explicit key first, then the credential store), and hands the
// call to the adapter registered for the provider's adapter kind. It never
// retries: every failure comes back as a typed error and the caller decides.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/agentoven/agentdesk/internal/catalog"
	"github.com/agentoven/agentdesk/pkg/models"
)

var tracer = otel.Tracer("agentdesk/router")

const (
	defaultHTTPTimeout = 120 * time.Second
	testTimeout        = 15 * time.Second

	testPrompt    = "Reply with the single word OK."
	testMaxTokens = 10
)

// CredentialSource supplies stored secrets. *credentials.Store satisfies it.
type CredentialSource interface {
	Secret(providerID string) (secret string, revision uint64, ok bool)
}

// Router dispatches chat requests to provider adapters.
type Router struct {
	catalog     *catalog.Catalog
	credentials CredentialSource
	client      *http.Client

	mu       sync.RWMutex
	adapters map[string]Adapter

	extra []Adapter

	rpm       int
	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
	usage     *ledger
}

// Option configures a Router.
type Option func(*Router)

// WithCredentials makes the router fall back to stored secrets when a request
// carries no explicit key.
func WithCredentials(src CredentialSource) Option {
	return func(r *Router) { r.credentials = src }
}

// WithRequestsPerMinute paces calls per provider. Zero disables pacing.
func WithRequestsPerMinute(n int) Option {
	return func(r *Router) { r.rpm = n }
}

// WithHTTPClient sets the client shared by the built-in adapters.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Router) { r.client = c }
}

// WithAdapter registers an additional adapter, replacing any built-in one of
// the same kind.
func WithAdapter(a Adapter) Option {
	return func(r *Router) { r.extra = append(r.extra, a) }
}

// New creates a router over the given catalog with the built-in adapters.
func New(cat *catalog.Catalog, opts ...Option) *Router {
	r := &Router{
		catalog:  cat,
		adapters: make(map[string]Adapter),
		limiters: make(map[string]*rate.Limiter),
		usage:    newLedger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	for _, a := range DefaultAdapters(r.client) {
		r.adapters[a.Kind()] = a
	}
	for _, a := range r.extra {
		r.adapters[a.Kind()] = a
	}
	r.extra = nil
	return r
}

// RegisterAdapter adds or replaces the adapter for a kind.
func (r *Router) RegisterAdapter(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Kind()] = a
}

// Catalog returns the catalog the router resolves against.
func (r *Router) Catalog() *catalog.Catalog { return r.catalog }

func (r *Router) adapter(kind string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[kind]
	return a, ok
}

func (r *Router) limiter(providerID string) *rate.Limiter {
	if r.rpm <= 0 {
		return nil
	}
	r.limiterMu.Lock()
	defer r.limiterMu.Unlock()
	l, ok := r.limiters[providerID]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.rpm)), 1)
		r.limiters[providerID] = l
	}
	return l
}

// resolve validates the request and produces the adapter target. No network
// traffic happens here.
func (r *Router) resolve(req models.ChatRequest, useStore bool) (Adapter, Target, error) {
	if req.Provider == "" || req.Model == "" {
		return nil, Target{}, fmt.Errorf("%w: provider and model are required", ErrInvalidRequest)
	}
	provider, err := r.catalog.GetProvider(req.Provider)
	if err != nil {
		return nil, Target{}, err
	}
	model, err := r.catalog.GetModel(req.Provider, req.Model)
	if err != nil {
		return nil, Target{}, err
	}

	key := strings.TrimSpace(req.APIKey)
	if key == "" && useStore && r.credentials != nil {
		if secret, _, ok := r.credentials.Secret(provider.ID); ok {
			key = secret
		}
	}
	if provider.RequiresCredential && key == "" {
		return nil, Target{}, &MissingCredentialError{ProviderID: provider.ID}
	}

	a, ok := r.adapter(provider.Adapter)
	if !ok {
		return nil, Target{}, fmt.Errorf("%w: %s", ErrNoAdapter, provider.Adapter)
	}
	return a, Target{Provider: provider, Model: model, APIKey: key}, nil
}

// Chat sends one chat request. Failures are *MissingCredentialError,
// *ProviderError, catalog lookup errors or ErrInvalidRequest.
func (r *Router) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	return r.chat(ctx, req, true)
}

func (r *Router) chat(ctx context.Context, req models.ChatRequest, useStore bool) (*models.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "router.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", req.Provider),
		attribute.String("model", req.Model),
	)

	if len(req.Messages) == 0 {
		err := fmt.Errorf("%w: no messages", ErrInvalidRequest)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	a, target, err := r.resolve(req, useStore)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if l := r.limiter(target.Provider.ID); l != nil {
		if err := l.Wait(ctx); err != nil {
			pe := asProviderError(target.Provider.ID, err)
			span.SetStatus(codes.Error, pe.Error())
			return nil, pe
		}
	}

	start := time.Now()
	resp, err := a.Chat(ctx, target, req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		pe := asProviderError(target.Provider.ID, err)
		span.RecordError(pe)
		span.SetStatus(codes.Error, pe.Error())
		log.Warn().
			Str("provider", target.Provider.ID).
			Str("model", target.Model.ID).
			Str("kind", string(pe.Kind)).
			Int64("latency_ms", latency).
			Msg("Provider call failed")
		return nil, pe
	}

	resp.Provider = target.Provider.ID
	resp.Model = target.Model.ID
	resp.LatencyMs = latency
	if total := resp.InputTokens + resp.OutputTokens; total > 0 {
		resp.TokensUsed = &total
	}
	r.usage.record(target.Model, target.Provider.ID, resp)

	span.SetAttributes(
		attribute.Int64("tokens.input", resp.InputTokens),
		attribute.Int64("tokens.output", resp.OutputTokens),
		attribute.Int64("latency_ms", latency),
	)
	log.Debug().
		Str("provider", target.Provider.ID).
		Str("model", target.Model.ID).
		Int64("latency_ms", latency).
		Int64("tokens", resp.InputTokens+resp.OutputTokens).
		Msg("Chat completed")
	return resp, nil
}

// TestConnection performs a minimal round-trip with the given secret and
// reports latency. It never reads or writes stored credentials.
func (r *Router) TestConnection(ctx context.Context, providerID, modelID, secret string) models.ConnectionResult {
	result := models.ConnectionResult{Provider: providerID, Model: modelID}

	testCtx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()

	start := time.Now()
	_, err := r.chat(testCtx, models.ChatRequest{
		Provider:    providerID,
		Model:       modelID,
		APIKey:      secret,
		Messages:    []models.ChatMessage{{Role: models.RoleUser, Content: testPrompt}},
		Temperature: 0,
		MaxTokens:   testMaxTokens,
	}, false)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = connectionError(err)
		return result
	}
	result.Success = true
	return result
}

func connectionError(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return fmt.Sprintf("%s: %s", pe.Kind, pe.Message)
	}
	return err.Error()
}

// Usage returns the accumulated token and cost ledger.
func (r *Router) Usage() models.UsageSummary {
	return r.usage.summary()
}

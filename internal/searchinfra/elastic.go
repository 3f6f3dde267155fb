package searchinfra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sony/gobreaker"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/search"
)

// ElasticConfig configures the Elasticsearch backend and its circuit breaker.
type ElasticConfig struct {
	Addresses []string
	Username  string
	Password  string
	Transport http.RoundTripper

	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
}

// DefaultElasticConfig points at a local node.
func DefaultElasticConfig() ElasticConfig {
	return ElasticConfig{
		Addresses:       []string{"http://127.0.0.1:9200"},
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// ElasticBackend implements search.Backend against Elasticsearch indices.
type ElasticBackend struct {
	es      *elasticsearch.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewElasticBackend creates the client. No request is sent until first use.
func NewElasticBackend(cfg ElasticConfig, logger *slog.Logger) (*ElasticBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "elastic_backend"))

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    cfg.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "elasticsearch",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				catalog.IsNotFound(err) ||
				catalog.IsInvalidQuery(err) ||
				errors.Is(err, context.Canceled)
		},
	})

	return &ElasticBackend{es: es, breaker: breaker, logger: logger}, nil
}

// Get fetches a document by id. A 404 is reported as catalog.ErrNotFound.
func (b *ElasticBackend) Get(ctx context.Context, index, id string) (search.Document, error) {
	v, err := b.execute("elastic get", func() (any, error) {
		res, err := b.es.Get(index, id, b.es.Get.WithContext(ctx))
		if err != nil {
			return nil, catalog.BackendUnavailable("elastic get", err)
		}
		defer closeBody(res)

		if res.StatusCode == http.StatusNotFound {
			return nil, catalog.NotFound(index, id)
		}
		if res.IsError() {
			return nil, statusError("elastic get", res)
		}

		var body struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		}
		if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
			return nil, catalog.BackendUnavailable("elastic get", fmt.Errorf("decode response: %w", err))
		}
		return search.Document{ID: body.ID, Source: body.Source}, nil
	})
	if err != nil {
		return search.Document{}, err
	}
	return v.(search.Document), nil
}

// Search runs q against index. A missing index yields an empty response.
func (b *ElasticBackend) Search(ctx context.Context, index string, q search.Query) (search.Response, error) {
	payload, err := json.Marshal(q.Body())
	if err != nil {
		return search.Response{}, catalog.InvalidQuery("encode query: %v", err)
	}

	v, err := b.execute("elastic search", func() (any, error) {
		res, err := b.es.Search(
			b.es.Search.WithContext(ctx),
			b.es.Search.WithIndex(index),
			b.es.Search.WithBody(bytes.NewReader(payload)),
			b.es.Search.WithTrackTotalHits(true),
		)
		if err != nil {
			return nil, catalog.BackendUnavailable("elastic search", err)
		}
		defer closeBody(res)

		if res.StatusCode == http.StatusNotFound {
			b.logger.Debug("index not found", slog.String("index", index))
			return search.Response{Hits: []search.Document{}}, nil
		}
		if res.IsError() {
			return nil, statusError("elastic search", res)
		}

		var body struct {
			Hits struct {
				Total struct {
					Value int `json:"value"`
				} `json:"total"`
				Hits []struct {
					ID     string          `json:"_id"`
					Source json.RawMessage `json:"_source"`
				} `json:"hits"`
			} `json:"hits"`
		}
		if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
			return nil, catalog.BackendUnavailable("elastic search", fmt.Errorf("decode response: %w", err))
		}

		out := search.Response{
			Total: body.Hits.Total.Value,
			Hits:  make([]search.Document, 0, len(body.Hits.Hits)),
		}
		for _, h := range body.Hits.Hits {
			out.Hits = append(out.Hits, search.Document{ID: h.ID, Source: h.Source})
		}
		return out, nil
	})
	if err != nil {
		return search.Response{}, err
	}
	return v.(search.Response), nil
}

// Ping checks that the cluster answers.
func (b *ElasticBackend) Ping(ctx context.Context) error {
	res, err := b.es.Ping(b.es.Ping.WithContext(ctx))
	if err != nil {
		return catalog.BackendUnavailable("elastic ping", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return catalog.BackendUnavailable("elastic ping", responseError(res))
	}
	return nil
}

// BreakerState reports the current circuit breaker state.
func (b *ElasticBackend) BreakerState() gobreaker.State {
	return b.breaker.State()
}

func (b *ElasticBackend) execute(op string, fn func() (any, error)) (any, error) {
	v, err := b.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, catalog.BackendUnavailable(op, err)
	}
	return v, err
}

// statusError classifies an error response. Requests the cluster rejects
// (4xx other than 429) are the caller's fault and do not count against the
// breaker; everything else means the backend is unavailable.
func statusError(op string, res *esapi.Response) error {
	cause := responseError(res)
	if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
		return catalog.InvalidQuery("%s: %v", op, cause)
	}
	return catalog.BackendUnavailable(op, cause)
}

func responseError(res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("status %s: %s", res.Status(), bytes.TrimSpace(body))
}

func closeBody(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}
}

package alert

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchConfig locates the cluster that stores alerts.
type ElasticsearchConfig struct {
	Scheme      string
	Host        string
	Port        int
	User        string
	Password    string
	VerifyCerts bool
	MaxRetries  int
	Index       string
}

// ElasticsearchSink indexes every alert as a document so blocks can be
// searched and charted later.
type ElasticsearchSink struct {
	client   *elasticsearch.Client
	index    string
	hostname string
}

func NewElasticsearchSink(cfg ElasticsearchConfig) (*ElasticsearchSink, error) {
	addr := fmt.Sprintf("%s://%s:%d", cfg.Scheme, cfg.Host, cfg.Port)

	esCfg := elasticsearch.Config{
		Addresses:  []string{addr},
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.User != "" {
		esCfg.Username = cfg.User
		esCfg.Password = cfg.Password
	}
	if !cfg.VerifyCerts {
		esCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402 - user explicitly disabled cert verification
			},
		}
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch.NewClient: %w", err)
	}
	hostname, _ := os.Hostname()
	return &ElasticsearchSink{client: client, index: cfg.Index, hostname: hostname}, nil
}

type alertDocument struct {
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"@timestamp"`
	Host      string    `json:"host,omitempty"`
	Source    string    `json:"source"`
}

func (s *ElasticsearchSink) Notify(ctx context.Context, reason string) error {
	body, err := json.Marshal(alertDocument{
		Reason:    reason,
		Timestamp: time.Now().UTC(),
		Host:      s.hostname,
		Source:    "agentkernel",
	})
	if err != nil {
		return fmt.Errorf("marshal alert document: %w: %w", ErrPermanent, err)
	}

	req := esapi.IndexRequest{
		Index: s.index,
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index alert: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
			return fmt.Errorf("index alert: %s: %s: %w", res.Status(), msg, ErrPermanent)
		}
		return fmt.Errorf("index alert: %s: %s", res.Status(), msg)
	}
	return nil
}

// TestConnection pings the cluster; used by the health handler.
func (s *ElasticsearchSink) TestConnection(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping: %s", res.Status())
	}
	return nil
}

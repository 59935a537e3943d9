package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/goto/salt/log"
	"github.com/newrelic/go-agent/v3/integrations/nrelasticsearch-v7"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Config struct {
	Brokers     string `mapstructure:"brokers" yaml:"brokers" default:"http://localhost:9200"`
	IndexPrefix string `mapstructure:"index_prefix" yaml:"index_prefix" default:""`
	// MaxResultWindow mirrors index.max_result_window of the indices.
	MaxResultWindow int `mapstructure:"max_result_window" yaml:"max_result_window" default:"10000"`
}

// extract error reason from an elasticsearch response
// returns the raw message in case it fails
func errorReasonFromResponse(res *esapi.Response) string {
	var (
		response struct {
			Error struct {
				Reason string `json:"reason"`
			} `json:"error"`
		}
		copy bytes.Buffer
	)
	reader := io.TeeReader(res.Body, &copy)
	err := json.NewDecoder(reader).Decode(&response)
	if err != nil || response.Error.Reason == "" {
		return fmt.Sprintf("raw response = %s", copy.String())
	}
	return response.Error.Reason
}

// helper for decorating unsuccesful invocations of the es REST API
// (transport errors)
func elasticSearchError(err error) error {
	return fmt.Errorf("elasticsearch error: %w", err)
}

// drainBody drains and closes the response body so the connection is reused.
func drainBody(res *esapi.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}

type Client struct {
	client      *elasticsearch.Client
	logger      log.Logger
	indexPrefix string
	window      int

	opHistogram metric.Int64Histogram
}

func NewClient(logger log.Logger, config Config, opts ...ClientOption) (*Client, error) {
	opHistogram, err := otel.Meter("github.com/goto/sift/internal/store/elasticsearch").
		Int64Histogram("sift.es.operation.duration", metric.WithUnit("ms"))
	if err != nil {
		otel.Handle(err)
	}

	c := &Client{
		logger:      logger,
		indexPrefix: config.IndexPrefix,
		window:      config.MaxResultWindow,
		opHistogram: opHistogram,
	}
	if c.window <= 0 {
		c.window = defaultMaxResultWindow
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.client != nil {
		return c, nil
	}

	brokers := strings.Split(config.Brokers, ",")
	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: brokers,
		Transport: nrelasticsearch.NewRoundTripper(nil),
	})
	if err != nil {
		return nil, err
	}
	c.client = esClient

	return c, nil
}

// Init returns the cluster name and server version, failing when the cluster
// is unreachable.
func (c *Client) Init() (string, error) {
	res, err := c.client.Info()
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.IsError() {
		return "", errors.New(res.Status())
	}
	var info = struct {
		ClusterName string `json:"cluster_name"`
		Version     struct {
			Number string `json:"number"`
		} `json:"version"`
	}{}

	err = json.NewDecoder(res.Body).Decode(&info)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%q (server version %s)", info.ClusterName, info.Version.Number), nil
}

// Migrate creates the index of an entity, or updates its mapping when it
// already exists.
func (c *Client) Migrate(ctx context.Context, table string, mapping Mapping) error {
	index := c.indexName(table)
	idxExists, err := c.indexExists(ctx, index)
	if err != nil {
		return fmt.Errorf("error checking index existence: %w", err)
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("error encoding mapping of %q: %w", index, err)
	}

	if idxExists {
		c.logger.Info("index already exist, updating it instead", "index", index)
		if err = c.updateIdx(ctx, index, body); err != nil {
			return fmt.Errorf("error updating index: %w", err)
		}
		return nil
	}

	if err = c.createIdx(ctx, index, body); err != nil {
		return fmt.Errorf("error creating index: %w", err)
	}
	return nil
}

func (c *Client) createIdx(ctx context.Context, index string, mapping []byte) error {
	res, err := c.client.Indices.Create(
		index,
		c.client.Indices.Create.WithBody(strings.NewReader(fmt.Sprintf(indexSettingsTemplate, mapping, c.window))),
		c.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return elasticSearchError(err)
	}
	defer drainBody(res)
	if res.IsError() {
		return fmt.Errorf("error creating index %q: %s", index, errorReasonFromResponse(res))
	}
	return nil
}

func (c *Client) updateIdx(ctx context.Context, index string, mapping []byte) error {
	res, err := c.client.Indices.PutMapping(
		bytes.NewReader(mapping),
		c.client.Indices.PutMapping.WithIndex(index),
		c.client.Indices.PutMapping.WithContext(ctx),
	)
	if err != nil {
		return elasticSearchError(err)
	}
	defer drainBody(res)
	if res.IsError() {
		return fmt.Errorf("error updating index %q: %s", index, errorReasonFromResponse(res))
	}
	return nil
}

// checks for the existence of an index
func (c *Client) indexExists(ctx context.Context, name string) (bool, error) {
	res, err := c.client.Indices.Exists(
		[]string{name},
		c.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("indexExists: %w", elasticSearchError(err))
	}
	defer drainBody(res)
	return res.StatusCode == 200, nil
}

func (c *Client) indexName(table string) string {
	return c.indexPrefix + table
}

type instrumentParams struct {
	op    string
	index string
	start time.Time
	err   error
}

func (c *Client) instrumentOp(ctx context.Context, p instrumentParams) {
	if c.opHistogram == nil {
		return
	}
	c.opHistogram.Record(ctx, time.Since(p.start).Milliseconds(), metric.WithAttributes(
		attribute.String("es.operation", p.op),
		attribute.String("es.index", p.index),
		attribute.Bool("operation.success", p.err == nil),
	))
}

package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-des/internal/common"
	"github.com/i474232898/weather-des/internal/resilience"
)

// DefaultJSNDropURL is the public endpoint of the record-store service.
const DefaultJSNDropURL = "https://newsimland.com/~todd/JSON/"

// Option configures a JSNDropClient.
type Option func(*JSNDropClient)

// WithBaseURL overrides the service endpoint.
func WithBaseURL(u string) Option {
	return func(c *JSNDropClient) {
		c.baseURL = u
	}
}

// WithBackoff overrides the retry policy.
func WithBackoff(b resilience.BackoffConfig) Option {
	return func(c *JSNDropClient) {
		c.httpCfg.Backoff = b
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *JSNDropClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// JSNDropClient implements Store against the remote record-store service.
// Every verb is a GET with the whole command JSON-encoded in the tok
// query parameter.
type JSNDropClient struct {
	token   string
	baseURL string
	httpCfg resilience.HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewJSNDropClient creates a client authenticated with token.
func NewJSNDropClient(client *http.Client, token string, opts ...Option) *JSNDropClient {
	c := &JSNDropClient{
		token:   token,
		baseURL: DefaultJSNDropURL,
		httpCfg: resilience.HTTPClientConfig{
			Client:  client,
			Backoff: resilience.DefaultBackoff(),
		},
		circuit: resilience.NewBreaker("jsndrop"),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type command struct {
	Tok string `json:"tok"`
	Cmd any    `json:"cmd"`
}

type createCmd struct {
	Create  string `json:"CREATE"`
	Example Record `json:"EXAMPLE"`
}

type dropCmd struct {
	Drop string `json:"DROP"`
}

type storeCmd struct {
	Store string   `json:"STORE"`
	Value []Record `json:"VALUE"`
}

type selectCmd struct {
	Select string `json:"SELECT"`
	Where  string `json:"WHERE"`
}

type allCmd struct {
	All string `json:"ALL"`
}

type response struct {
	JsnMsg string          `json:"JsnMsg"`
	Msg    json.RawMessage `json:"Msg"`
}

func (c *JSNDropClient) Create(ctx context.Context, table string, example Record) error {
	_, err := c.do(ctx, createCmd{Create: table, Example: example})
	if err != nil && isAlreadyExists(err) {
		return nil
	}
	return err
}

func (c *JSNDropClient) Drop(ctx context.Context, table string) error {
	_, err := c.do(ctx, dropCmd{Drop: table})
	if err != nil && (errors.Is(err, ErrNoData) || isMissingTable(err)) {
		return nil
	}
	return err
}

func (c *JSNDropClient) Put(ctx context.Context, table string, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	_, err := c.do(ctx, storeCmd{Store: table, Value: records})
	return err
}

func (c *JSNDropClient) Select(ctx context.Context, table string, where Predicate) ([]Record, error) {
	if where == nil {
		return c.All(ctx, table)
	}
	resp, err := c.do(ctx, selectCmd{Select: table, Where: where.String()})
	if err != nil {
		return nil, err
	}
	return decodeRows(resp)
}

func (c *JSNDropClient) All(ctx context.Context, table string) ([]Record, error) {
	resp, err := c.do(ctx, allCmd{All: table})
	if err != nil {
		return nil, err
	}
	return decodeRows(resp)
}

func (c *JSNDropClient) do(ctx context.Context, cmd any) (response, error) {
	payload, err := json.Marshal(command{Tok: c.token, Cmd: cmd})
	if err != nil {
		return response{}, fmt.Errorf("encode command: %w", err)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("tok", string(payload))
		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	c.logger.Debug("record store request", zap.ByteString("command", payload))

	resp, err := resilience.Do(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return response{}, fmt.Errorf("record store request: %w", err)
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return response{}, fmt.Errorf("decode record store response: %w", err)
	}

	c.logger.Debug("record store response", zap.String("status", out.JsnMsg))

	if err := statusError(out); err != nil {
		return out, err
	}
	return out, nil
}

func statusError(r response) error {
	if strings.HasPrefix(r.JsnMsg, "SUCCESS") {
		return nil
	}
	if common.HasAny(r.JsnMsg, "DATA_ERROR") {
		return ErrNoData
	}
	msg := ""
	if len(r.Msg) > 0 {
		var s string
		if err := json.Unmarshal(r.Msg, &s); err == nil {
			msg = s
		} else {
			msg = string(bytes.TrimSpace(r.Msg))
		}
	}
	status := r.JsnMsg
	if status == "" {
		status = "UNKNOWN"
	}
	return &Error{Status: status, Message: msg}
}

func decodeRows(r response) ([]Record, error) {
	if len(r.Msg) == 0 || string(r.Msg) == "null" {
		return nil, ErrNoData
	}
	var rows []Record
	if err := json.Unmarshal(r.Msg, &rows); err != nil {
		return nil, fmt.Errorf("decode record store rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	return rows, nil
}

func isAlreadyExists(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return common.HasAny(strings.ToUpper(e.Status+" "+e.Message), "EXISTS", "ALREADY")
}

func isMissingTable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return common.HasAny(strings.ToUpper(e.Status+" "+e.Message), "NOT EXIST", "NO TABLE", "NOT FOUND")
}

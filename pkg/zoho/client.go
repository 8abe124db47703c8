package zoho

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/zohosync-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/zohosync-backend/pkg/errors"
	"github.com/angelmondragon/zohosync-backend/pkg/logger"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultBackoffBase    = 500 * time.Millisecond
	maxRetryAfter         = 2 * time.Minute
	maxBodyBytes          = 32 << 20

	authScheme = "Zoho-oauthtoken"
)

var (
	errLoggerRequired = errors.New("zoho logger is required")
	errGateRequired   = errors.New("zoho rate gate is required")
	errTokensRequired = errors.New("zoho token source is required")
	errBaseURL        = errors.New("zoho api base url is required")
	errOrgRequired    = errors.New("zoho organization id is required")
)

// Gate is the outbound admission control every request passes through.
type Gate interface {
	Acquire(ctx context.Context) error
	Release(success bool, latency time.Duration)
}

// TokenSource hands out access tokens and forgets them when upstream rejects one.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate(ctx context.Context)
}

// ClientParams wires the Zoho API client.
type ClientParams struct {
	BaseURL        string
	OrganizationID string
	HTTPClient     *http.Client
	Gate           Gate
	Tokens         TokenSource
	Logger         *logger.Logger
	MaxRetries     int
	RequestTimeout time.Duration
	// BackoffBase seeds the exponential backoff used when a 429 carries no
	// Retry-After header.
	BackoffBase time.Duration
}

// Client is a thin, rate-gated reader over the Zoho Inventory REST API.
type Client struct {
	baseURL        *url.URL
	organizationID string
	http           *http.Client
	gate           Gate
	tokens         TokenSource
	logger         *logger.Logger
	maxRetries     uint64
	timeout        time.Duration
	backoffBase    time.Duration
}

// Page is one decoded page of a list endpoint.
type Page struct {
	Number      int
	Records     []json.RawMessage
	HasMorePage bool
}

type pageContext struct {
	Page        int  `json:"page"`
	HasMorePage bool `json:"has_more_page"`
}

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewClient validates params and builds a Client.
func NewClient(p ClientParams) (*Client, error) {
	if p.Logger == nil {
		return nil, errLoggerRequired
	}
	if p.Gate == nil {
		return nil, errGateRequired
	}
	if p.Tokens == nil {
		return nil, errTokensRequired
	}
	if strings.TrimSpace(p.BaseURL) == "" {
		return nil, errBaseURL
	}
	if strings.TrimSpace(p.OrganizationID) == "" {
		return nil, errOrgRequired
	}
	base, err := url.Parse(strings.TrimRight(p.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse zoho base url: %w", err)
	}
	if p.HTTPClient == nil {
		p.HTTPClient = &http.Client{}
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = defaultRequestTimeout
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = defaultBackoffBase
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}

	return &Client{
		baseURL:        base,
		organizationID: p.OrganizationID,
		http:           p.HTTPClient,
		gate:           p.Gate,
		tokens:         p.Tokens,
		logger:         p.Logger,
		maxRetries:     uint64(p.MaxRetries),
		timeout:        p.RequestTimeout,
		backoffBase:    p.BackoffBase,
	}, nil
}

// ListPage fetches one page of entity records. params carries upstream filters
// such as last_modified_time.
func (c *Client) ListPage(ctx context.Context, entity enums.SyncEntity, page, perPage int, params url.Values) (Page, error) {
	res, err := ResourceFor(entity)
	if err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list page")
	}

	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))

	body, err := c.do(ctx, "list_"+res.Path, res.Path, query)
	if err != nil {
		return Page{}, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode zoho page")
	}

	out := Page{Number: page}
	if list, ok := raw[res.ListKey]; ok && string(list) != "null" {
		if err := json.Unmarshal(list, &out.Records); err != nil {
			return Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode zoho %s", res.ListKey))
		}
	}
	if pc, ok := raw["page_context"]; ok {
		var ctxInfo pageContext
		if err := json.Unmarshal(pc, &ctxInfo); err != nil {
			return Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode zoho page_context")
		}
		out.HasMorePage = ctxInfo.HasMorePage
	}
	return out, nil
}

// Get fetches a single record by its upstream id.
func (c *Client) Get(ctx context.Context, entity enums.SyncEntity, id string) (json.RawMessage, error) {
	res, err := ResourceFor(entity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "get record")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record id is required")
	}

	body, err := c.do(ctx, "get_"+res.SingleKey, res.Path+"/"+id, url.Values{})
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode zoho record")
	}
	record, ok := raw[res.SingleKey]
	if !ok || string(record) == "null" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("zoho %s %s missing from response", res.SingleKey, id))
	}
	return record, nil
}

// do runs one logical request with bounded retries. Rate limited responses
// wait for Retry-After (or exponential backoff); an expired token is dropped
// and refreshed before the next attempt. Everything else fails immediately.
func (c *Client) do(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	query.Set("organization_id", c.organizationID)
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})

	var hint time.Duration
	base := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoffBase))
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		next, stop := base.Next()
		if stop {
			return 0, true
		}
		if hint > 0 {
			next, hint = hint, 0
		}
		return next, false
	})

	attempt := 0
	var body []byte
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		b, wait, err := c.attempt(ctx, op, endpoint.String(), attempt)
		if err == nil {
			body = b
			return nil
		}
		if pkgerrors.HasCode(err, pkgerrors.CodeRateLimit) || pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
			hint = wait
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) attempt(ctx context.Context, op, endpoint string, attempt int) ([]byte, time.Duration, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "obtain zoho access token")
	}

	if err := c.gate.Acquire(ctx); err != nil {
		return nil, 0, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.gate.Release(true, 0)
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build zoho request")
	}
	req.Header.Set("Authorization", authScheme+" "+token)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	latency := time.Since(started)
	if err != nil {
		c.gate.Release(false, latency)
		c.log(ctx, "error", op, map[string]any{"attempt": attempt, "error": err.Error()})
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("zoho %s request failed", op))
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		// Throttling is paced by Retry-After; it is not an outage.
		c.gate.Release(true, latency)
		wait := retryAfter(resp.Header.Get("Retry-After"), time.Now())
		c.log(ctx, "throttled", op, map[string]any{"attempt": attempt, "retry_after_ms": wait.Milliseconds()})
		return nil, wait, pkgerrors.New(pkgerrors.CodeRateLimit, fmt.Sprintf("zoho %s rate limited", op))
	case resp.StatusCode == http.StatusUnauthorized:
		c.gate.Release(true, latency)
		c.tokens.Invalidate(ctx)
		c.log(ctx, "unauthorized", op, map[string]any{"attempt": attempt})
		return nil, 0, pkgerrors.New(pkgerrors.CodeUnauthorized, fmt.Sprintf("zoho %s rejected access token", op))
	case resp.StatusCode >= http.StatusInternalServerError:
		c.gate.Release(false, latency)
		err := pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("zoho %s returned %d", op, resp.StatusCode)).
			WithDetails(upstreamMessage(body))
		c.log(ctx, "error", op, map[string]any{"attempt": attempt, "status": resp.StatusCode, "error": err.Error()})
		return nil, 0, err
	case resp.StatusCode >= http.StatusBadRequest:
		c.gate.Release(true, latency)
		return nil, 0, pkgerrors.New(codeForStatus(resp.StatusCode), fmt.Sprintf("zoho %s returned %d", op, resp.StatusCode)).
			WithDetails(upstreamMessage(body))
	}

	c.gate.Release(true, latency)
	if readErr != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, readErr, fmt.Sprintf("read zoho %s response", op))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode zoho %s response", op))
	}
	if env.Code != 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("zoho %s: code %d: %s", op, env.Code, env.Message))
	}

	c.log(ctx, "response", op, map[string]any{"attempt": attempt, "latency_ms": latency.Milliseconds()})
	return body, 0, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("zoho %s", op), errors.New(fmt.Sprint(fields["error"])))
	case "throttled", "unauthorized":
		c.logger.Warn(ctx, fmt.Sprintf("zoho %s", phase))
	default:
		c.logger.Debug(ctx, fmt.Sprintf("zoho %s", phase))
	}
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

// retryAfter parses either delta-seconds or an HTTP date. Zero means no hint.
func retryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	var wait time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		wait = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		wait = at.Sub(now)
	}
	if wait <= 0 {
		return 0
	}
	return min(wait, maxRetryAfter)
}

func upstreamMessage(body []byte) map[string]any {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || env.Message == "" {
		return nil
	}
	return map[string]any{"zoho_code": env.Code, "zoho_message": env.Message}
}

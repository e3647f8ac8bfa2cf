package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/internal/domain"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/httpclient"
	"github.com/ServiceBrandcaps/brandcaps-ecommerce-starter/pkg/tracing"
)

// Config locates the upstream catalog endpoints.
type Config struct {
	BaseURL      string
	ProductsPath string
	FamiliesPath string
}

// Page is one decoded page of catalog results.
type Page struct {
	Number     int
	Items      []domain.CatalogItem
	Total      int
	TotalPages int
}

// Families is the result of a conditional families request.
type Families struct {
	Families    []domain.Family
	ETag        string
	NotModified bool
}

// Client reads the upstream catalog. Retries, timeouts and circuit breaking
// are the fetcher's concern; the client builds requests and normalizes
// responses.
type Client struct {
	fetcher  httpclient.Fetcher
	base     *url.URL
	products string
	families string
	logger   *slog.Logger
}

// NewClient creates a catalog client.
func NewClient(fetcher httpclient.Fetcher, cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse catalog base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("catalog base url %q must be absolute", cfg.BaseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		fetcher:  fetcher,
		base:     base,
		products: "/" + strings.Trim(cfg.ProductsPath, "/"),
		families: "/" + strings.Trim(cfg.FamiliesPath, "/"),
		logger:   logger,
	}, nil
}

// endpoint joins an already escaped path onto the base URL.
func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()
	return u.String()
}

// PageURL returns the upstream URL for one page of q. Price bounds and sort
// are never sent.
func (c *Client) PageURL(q domain.CatalogQuery, page, pageSize int) string {
	v := url.Values{}
	if q.Text != "" {
		v.Set("q", q.Text)
	}
	for _, f := range q.Families {
		v.Add("family", f)
	}
	for _, s := range q.SubAttributes {
		v.Add("sub", s.String())
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(pageSize))
	return c.endpoint(c.products, v)
}

// FetchPage fetches and normalizes one page.
func (c *Client) FetchPage(ctx context.Context, q domain.CatalogQuery, page, pageSize int) (*Page, error) {
	ctx, span := tracing.Tracer().Start(ctx, "catalog.FetchPage",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("catalog.page", page)),
	)
	defer span.End()

	target := c.PageURL(q, page, pageSize)
	var raw rawPage
	err := c.do(ctx, endpointProducts, target, "", func(resp *http.Response) error {
		raw = rawPage{}
		return httpclient.DecodeJSON(&raw)(resp)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	items := normalizeItems(raw.items())
	total := raw.Total.intOr(len(items))
	span.SetAttributes(attribute.Int("catalog.items", len(items)))
	return &Page{
		Number:     page,
		Items:      items,
		Total:      total,
		TotalPages: pageCount(raw, pageSize),
	}, nil
}

// FetchItem fetches a single item. It returns ErrNotFound on 404.
func (c *Client) FetchItem(ctx context.Context, id string) (*domain.CatalogItem, error) {
	ctx, span := tracing.Tracer().Start(ctx, "catalog.FetchItem",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("catalog.item_id", id)),
	)
	defer span.End()

	target := c.endpoint(c.products+"/"+url.PathEscape(id), nil)
	var (
		raw      rawItem
		notFound bool
	)
	err := c.do(ctx, endpointItem, target, "", func(resp *http.Response) error {
		if resp.StatusCode == http.StatusNotFound {
			notFound = true
			return nil
		}
		raw = rawItem{}
		return httpclient.DecodeJSON(&raw)(resp)
	}, httpclient.PassStatus(http.StatusNotFound))
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if notFound {
		return nil, ErrNotFound
	}

	item := normalizeItem(raw)
	if item.ID == "" {
		item.ID = id
	}
	return &item, nil
}

// FetchFamilies lists catalog families. When etag is set the request is
// conditional and a 304 yields NotModified with no families.
func (c *Client) FetchFamilies(ctx context.Context, etag string) (*Families, error) {
	ctx, span := tracing.Tracer().Start(ctx, "catalog.FetchFamilies",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	out := &Families{}
	err := c.do(ctx, endpointFamilies, c.endpoint(c.families, nil), etag, func(resp *http.Response) error {
		*out = Families{ETag: resp.Header.Get("ETag")}
		if resp.StatusCode == http.StatusNotModified {
			out.NotModified = true
			if out.ETag == "" {
				out.ETag = etag
			}
			return nil
		}
		var raw rawFamilies
		if err := httpclient.DecodeJSON(&raw)(resp); err != nil {
			return err
		}
		out.Families = normalizeFamilies(raw)
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("catalog.not_modified", out.NotModified))
	return out, nil
}

func (c *Client) do(ctx context.Context, endpoint, target, etag string, handle httpclient.ResponseHandler, opts ...httpclient.FetchOption) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	start := time.Now()
	err = c.fetcher.Fetch(ctx, req, handle, opts...)
	observeFetch(endpoint, start, err)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ctxErr
	}
	c.logger.DebugContext(ctx, "catalog request failed",
		slog.String("endpoint", endpoint),
		slog.String("url", req.URL.Redacted()),
		slog.String("error", err.Error()),
	)
	return classify(req.URL.Redacted(), err)
}

// rawFamilies accepts either a bare array or an object wrapping it under
// "families" or "items".
type rawFamilies []rawFamily

func (f *rawFamilies) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list looseList[rawFamily]
		if err := list.UnmarshalJSON(data); err != nil {
			return err
		}
		*f = rawFamilies(list)
		return nil
	}
	var wrapped struct {
		Families *looseList[rawFamily] `json:"families"`
		Items    looseList[rawFamily]  `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Families != nil {
		*f = rawFamilies(*wrapped.Families)
	} else {
		*f = rawFamilies(wrapped.Items)
	}
	return nil
}

// Package mercadopago is the Checkout Pro client behind payments.Gateway.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tecnolua/ClubePharma/internal/payments"
)

const (
	DefaultBaseURL      = "https://api.mercadopago.com"
	statementDescriptor = "CLUBEPHARMA"
	currency            = "BRL"
	requestTimeout      = 10 * time.Second
)

type Config struct {
	BaseURL         string
	AccessToken     string
	FrontendURL     string
	NotificationURL string
}

type Client struct {
	cfg    Config
	http   *http.Client
	tracer trace.Tracer
}

var _ payments.Gateway = (*Client)(nil)

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &Client{
		cfg: cfg,
		http: &http.Client{Transport: &http.Transport{
			MaxIdleConns:        32,
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     90 * time.Second,
		}},
		tracer: otel.Tracer("clubepharma/mercadopago"),
	}
}

type item struct {
	ID         string      `json:"id,omitempty"`
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id"`
}

type payer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceBody struct {
	Items               []item   `json:"items"`
	Payer               payer    `json:"payer"`
	ExternalReference   string   `json:"external_reference"`
	BackURLs            backURLs `json:"back_urls"`
	AutoReturn          string   `json:"auto_return"`
	NotificationURL     string   `json:"notification_url,omitempty"`
	StatementDescriptor string   `json:"statement_descriptor"`
	Expires             bool     `json:"expires"`
	ExpirationDateFrom  string   `json:"expiration_date_from"`
	ExpirationDateTo    string   `json:"expiration_date_to"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// paymentResponse carries the fields we read; the id is numeric on the wire.
type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
}

func (c *Client) preferenceBody(req payments.PreferenceRequest, now time.Time) preferenceBody {
	items := make([]item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, item{ID: it.ID, Title: it.Title, Quantity: it.Quantity, UnitPrice: json.Number(it.UnitPrice.StringFixed(2)), CurrencyID: currency})
	}
	return preferenceBody{
		Items:             items,
		Payer:             payer{Name: req.Payer.Name, Email: req.Payer.Email},
		ExternalReference: req.ExternalReference,
		BackURLs: backURLs{
			Success: c.cfg.FrontendURL + "/payment/success",
			Failure: c.cfg.FrontendURL + "/payment/failure",
			Pending: c.cfg.FrontendURL + "/payment/pending",
		},
		AutoReturn:          "approved",
		NotificationURL:     c.cfg.NotificationURL,
		StatementDescriptor: statementDescriptor,
		Expires:             true,
		ExpirationDateFrom:  now.Format(time.RFC3339),
		ExpirationDateTo:    req.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func (c *Client) CreatePreference(ctx context.Context, req payments.PreferenceRequest) (payments.Preference, error) {
	var out preferenceResponse
	body := c.preferenceBody(req, time.Now().UTC())
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, &out); err != nil {
		return payments.Preference{}, errors.Wrap(err, "create preference")
	}
	if out.ID == "" || out.InitPoint == "" {
		return payments.Preference{}, errors.New("create preference: empty response")
	}
	return payments.Preference{ID: out.ID, RedirectURL: out.InitPoint}, nil
}

func (c *Client) GetPayment(ctx context.Context, id string) (payments.GatewayPayment, error) {
	var out paymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, &out); err != nil {
		return payments.GatewayPayment{}, errors.Wrapf(err, "get payment %s", id)
	}
	return payments.GatewayPayment{ID: out.ID.String(), Status: out.Status, ExternalReference: out.ExternalReference}, nil
}

// apiError is the provider's error body.
type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("mercadopago: %d %s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	ctx, span := c.tracer.Start(ctx, "mercadopago "+method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Idempotency-Key", uuid.NewString())
	}
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.url", req.URL.String()))
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Message == "" {
			apiErr.Code, apiErr.Message = http.StatusText(resp.StatusCode), strings.TrimSpace(string(raw))
		}
		apiErr.Status = resp.StatusCode
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(raw, out), "decode response")
}

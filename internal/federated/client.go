package federated

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-order-workflows/internal/apperr"
	"github.com/ariefcatur/go-order-workflows/internal/metrics"
)

var (
	ErrUserNotFound       = apperr.New(apperr.CodeNotFound, "User not found")
	ErrUserUnavailable    = apperr.New(apperr.CodeDependency, "User service unavailable")
	ErrProductNotFound    = apperr.New(apperr.CodeNotFound, "Product not found")
	ErrProductUnavailable = apperr.New(apperr.CodeDependency, "Product service unavailable")
)

var errUnexpectedStatus = errors.New("unexpected collaborator status")

type Users interface {
	User(ctx context.Context, id int64) (*User, error)
}

type Products interface {
	Product(ctx context.Context, id int64) (*Product, error)
}

// collaborator performs single-attempt GETs against one upstream service.
type collaborator struct {
	name        string
	baseURL     string
	timeout     time.Duration
	http        *http.Client
	metrics     *metrics.Metrics
	notFound    *apperr.Error
	unavailable *apperr.Error
}

func (c *collaborator) get(ctx context.Context, path string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	outcome := "unavailable"
	defer func() { c.metrics.CollaboratorCall(c.name, outcome, time.Since(start)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperr.Wrap(c.unavailable.Code(), err, c.unavailable.Message())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(c.unavailable.Code(), err, c.unavailable.Message())
	}
	defer func() {
		// Drained bodies let the transport reuse the connection.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		outcome = "not_found"
		return c.notFound
	case resp.StatusCode != http.StatusOK:
		return apperr.Wrap(c.unavailable.Code(),
			fmt.Errorf("%w: %s %d", errUnexpectedStatus, c.name, resp.StatusCode), c.unavailable.Message())
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(c.unavailable.Code(), fmt.Errorf("decode %s response: %w", c.name, err), c.unavailable.Message())
	}
	outcome = "ok"
	return nil
}

type UserClient struct{ c collaborator }

// NewUserClient talks to GET {baseURL}/users/{id}. A nil httpClient uses
// http.DefaultClient.
func NewUserClient(baseURL string, timeout time.Duration, httpClient *http.Client, m *metrics.Metrics) *UserClient {
	return &UserClient{c: newCollaborator("user", baseURL, timeout, httpClient, m, ErrUserNotFound, ErrUserUnavailable)}
}

func (u *UserClient) User(ctx context.Context, id int64) (*User, error) {
	var out User
	if err := u.c.get(ctx, fmt.Sprintf("/users/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type ProductClient struct{ c collaborator }

func NewProductClient(baseURL string, timeout time.Duration, httpClient *http.Client, m *metrics.Metrics) *ProductClient {
	return &ProductClient{c: newCollaborator("product", baseURL, timeout, httpClient, m, ErrProductNotFound, ErrProductUnavailable)}
}

func (p *ProductClient) Product(ctx context.Context, id int64) (*Product, error) {
	var out Product
	if err := p.c.get(ctx, fmt.Sprintf("/products/%d", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func newCollaborator(name, baseURL string, timeout time.Duration, hc *http.Client, m *metrics.Metrics, notFound, unavailable *apperr.Error) collaborator {
	if hc == nil {
		hc = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return collaborator{
		name:        name,
		baseURL:     strings.TrimRight(baseURL, "/"),
		timeout:     timeout,
		http:        hc,
		metrics:     m,
		notFound:    notFound,
		unavailable: unavailable,
	}
}

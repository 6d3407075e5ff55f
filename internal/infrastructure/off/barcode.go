package off

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/platewise/resolver/internal/domain"
	"github.com/platewise/resolver/internal/infrastructure/httpx"
)

// Barcode looks a single product up by its code. Used only when the
// upstream extractor already read a barcode off the photo.
type Barcode struct {
	baseURL string
	http    *httpx.Client
	timeout time.Duration
}

// NewBarcode creates the barcode lookup client.
func NewBarcode(baseURL string, client *httpx.Client, timeout time.Duration) *Barcode {
	return &Barcode{baseURL: strings.TrimRight(baseURL, "/"), http: client, timeout: timeout}
}

// Lookup fetches the product for code. A missing product is ErrNoCandidate.
func (a *Barcode) Lookup(ctx context.Context, code string) (*domain.ProductRecord, error) {
	params := url.Values{}
	params.Set("fields", productFields)
	reqURL := fmt.Sprintf("%s/api/v2/product/%s?%s", a.baseURL, url.PathEscape(code), params.Encode())

	sctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body, err := a.http.Get(sctx, reqURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var statusErr *httpx.StatusError
		if errors.As(err, &statusErr) && statusErr.Status == 404 {
			return nil, domain.ErrNoCandidate
		}
		return nil, fmt.Errorf("%w: barcode: %v", domain.ErrBackendError, err)
	}

	if status := gjson.GetBytes(body, "status"); status.Exists() && status.Int() == 0 {
		return nil, domain.ErrNoCandidate
	}

	product, ok := parseProduct(gjson.GetBytes(body, "product"))
	if !ok {
		return nil, domain.ErrNoCandidate
	}
	if product.Code == "" {
		product.Code = code
	}
	return &product, nil
}

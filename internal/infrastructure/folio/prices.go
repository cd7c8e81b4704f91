package folio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/domain"
	"bunkerprices-service/internal/infrastructure/httpx"
)

var _ application.PriceFetcher = (*PricesClient)(nil)

// PricesClient fetches live prices for a batch of instruments in one request.
type PricesClient struct {
	URL  string
	HTTP *http.Client
}

func (c *PricesClient) FetchPrices(ctx context.Context, token string, ids []domain.InstrumentID) (map[domain.InstrumentID]domain.QuoteSet, error) {
	if c.URL == "" {
		return nil, &application.UpstreamPriceError{Err: errors.New("folio: missing prices url")}
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return nil, &application.UpstreamPriceError{Err: fmt.Errorf("folio: encode ids: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, &application.UpstreamPriceError{Err: fmt.Errorf("folio: create prices request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var body livePrices
	hc := &httpx.Client{HTTP: c.HTTP}
	if err := hc.DoJSON(ctx, req, &body); err != nil {
		var re *httpx.ResponseError
		if errors.As(err, &re) {
			return nil, &application.UpstreamPriceError{Status: re.Code, Body: re.Body, Err: err}
		}
		return nil, &application.UpstreamPriceError{Err: fmt.Errorf("folio: prices request: %w", err)}
	}

	out := make(map[domain.InstrumentID]domain.QuoteSet, len(body.Payload))
	for id, p := range body.Payload {
		out[domain.InstrumentID(id)] = domain.QuoteSet(p.Data)
	}
	return out, nil
}

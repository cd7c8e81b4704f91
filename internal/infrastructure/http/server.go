package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/domain"
	"bunkerprices-service/internal/infrastructure/logx"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"
)

type Server struct {
	svc    *application.PricesService
	ping   func(ctx context.Context) error
	stream http.Handler
	cors   []string
}

type ServerOption func(*Server)

// WithPing sets the readiness probe of the backing store.
func WithPing(fn func(ctx context.Context) error) ServerOption { return func(s *Server) { s.ping = fn } }

// WithStream mounts the live price stream.
func WithStream(h http.Handler) ServerOption { return func(s *Server) { s.stream = h } }

func WithCORS(origins []string) ServerOption { return func(s *Server) { s.cors = origins } }

func NewServer(svc *application.PricesService, opts ...ServerOption) *Server {
	s := &Server{svc: svc}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type latestPrice struct {
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	Value      *float64   `json:"value"`
	RecordedAt *time.Time `json:"recordedAt"`
	Previous   *float64   `json:"previous"`
	ChangePct  *float64   `json:"changePct"`
}

type historyPoint struct {
	InstrumentID string    `json:"instrumentId"`
	Value        *float64  `json:"value"`
	RecordedAt   time.Time `json:"recordedAt"`
}

type pollPrice struct {
	ID    string   `json:"id"`
	Value *float64 `json:"value"`
}

type pollResponse struct {
	RecordedAt time.Time   `json:"recordedAt"`
	Prices     []pollPrice `json:"prices"`
}

type tokenStatus struct {
	Cached    bool       `json:"cached"`
	ExpiresAt *time.Time `json:"expiresAt"`
	Valid     bool       `json:"valid"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Server) GetLatestPrices(w http.ResponseWriter, r *http.Request) {
	var instrument *string
	if err := runtime.BindQueryParameter("form", true, false, "instrument", r.URL.Query(), &instrument); err != nil {
		writeError(w, http.StatusBadRequest, "invalid instrument")
		return
	}

	var (
		prices []application.LatestPrice
		err    error
	)
	if instrument != nil && *instrument != "" {
		var lp application.LatestPrice
		lp, err = s.svc.Latest(r.Context(), domain.InstrumentID(*instrument))
		prices = []application.LatestPrice{lp}
	} else {
		prices, err = s.svc.LatestAll(r.Context())
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]latestPrice, 0, len(prices))
	for _, p := range prices {
		out = append(out, latestPrice{
			ID:         string(p.Instrument.ID),
			Name:       p.Instrument.Name,
			Value:      p.Value,
			RecordedAt: p.RecordedAt,
			Previous:   p.Previous,
			ChangePct:  p.ChangePct,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	var (
		instrument *string
		from, to   *time.Time
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "instrument", q, &instrument); err != nil {
		writeError(w, http.StatusBadRequest, "invalid instrument")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "from", q, &from); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from: expected RFC3339 time")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "to", q, &to); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to: expected RFC3339 time")
		return
	}

	hq := application.HistoryQuery{From: from, To: to}
	if instrument != nil && *instrument != "" {
		id := domain.InstrumentID(*instrument)
		hq.Instrument = &id
	}
	series, err := s.svc.History(r.Context(), hq)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]historyPoint, 0, series.Len())
	for snap := range series.All() {
		out = append(out, historyPoint{
			InstrumentID: string(snap.InstrumentID),
			Value:        snap.Value,
			RecordedAt:   snap.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) TriggerPoll(w http.ResponseWriter, r *http.Request) {
	var key *string
	if v := r.Header.Get("X-Idempotency-Key"); v != "" {
		key = &v
	}
	res, err := s.svc.TriggerPoll(r.Context(), key)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := pollResponse{RecordedAt: res.RecordedAt, Prices: make([]pollPrice, 0, len(res.Snapshots))}
	for _, snap := range res.Snapshots {
		out.Prices = append(out.Prices, pollPrice{ID: string(snap.InstrumentID), Value: snap.Value})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetTokenStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.svc.TokenStatus()
	out := tokenStatus{Cached: st.Cached, Valid: st.Valid}
	if st.Cached {
		exp := st.ExpiresAt
		out.ExpiresAt = &exp
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		authErr  *application.UpstreamAuthError
		priceErr *application.UpstreamPriceError
		storeErr *application.StoreError
	)
	rid, _ := r.Context().Value(requestIDKey).(string)
	log := logx.L().With(zap.String("request_id", rid), zap.String("path", r.URL.Path))

	switch {
	case errors.Is(err, application.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrConflict):
		writeError(w, http.StatusConflict, "poll already triggered for this idempotency key")
	case errors.As(err, &authErr):
		log.Warn("upstream_auth_failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream authentication failed")
	case errors.As(err, &priceErr):
		log.Warn("upstream_prices_failed", zap.Int("upstream_status", priceErr.Status), zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream price request failed")
	case errors.As(err, &storeErr):
		log.Error("store_failed", zap.String("op", storeErr.Op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store unavailable")
	default:
		log.Error("request_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Code: status, Message: msg})
}

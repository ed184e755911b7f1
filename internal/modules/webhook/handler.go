package webhook

import (
	"context"
	"io"
	"net/http"
	"strings"

	"alert_bot/internal/ledger"
	"alert_bot/internal/modules/ig/service"
	"alert_bot/internal/pipeline"
	"alert_bot/internal/positions"
	"alert_bot/internal/resolver"
	"alert_bot/internal/tickers"
	"alert_bot/pkg/logger"

	"github.com/bytedance/sonic"
)

const maxBodySize = 1 << 16

// Confirmer looks up the broker's verdict for a deal reference.
type Confirmer interface {
	Confirmation(ctx context.Context, dealReference string) (service.DealConfirmation, error)
}

type Handler struct {
	pipeline  *pipeline.Pipeline
	store     *tickers.Store
	resolver  *resolver.Resolver
	ledger    *ledger.Ledger
	reader    *positions.Reader
	confirmer Confirmer
}

func NewHandler(p *pipeline.Pipeline, store *tickers.Store, res *resolver.Resolver, lg *ledger.Ledger, reader *positions.Reader, confirmer Confirmer) *Handler {
	return &Handler{pipeline: p, store: store, resolver: res, ledger: lg, reader: reader, confirmer: confirmer}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", h.webhook)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /positions", h.positions)
	mux.HandleFunc("GET /position/today", h.positionToday)
	mux.HandleFunc("GET /position/status", h.positionStatus)
	mux.HandleFunc("POST /admin/reload", h.reload)
	mux.HandleFunc("POST /admin/cache/invalidate", h.invalidate)
	return mux
}

// webhook accepts a TradingView alert, either as the raw text body or
// wrapped as {"message": "..."}.
func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}

	raw := strings.TrimSpace(string(body))
	if strings.HasPrefix(raw, "{") {
		var envelope struct {
			Message string `json:"message"`
		}
		if err := sonic.Unmarshal(body, &envelope); err != nil || envelope.Message == "" {
			writeError(w, http.StatusBadRequest, "invalid json payload")
			return
		}
		raw = strings.TrimSpace(envelope.Message)
	}
	if raw == "" {
		writeError(w, http.StatusBadRequest, "empty alert")
		return
	}

	outcome := h.pipeline.Process(r.Context(), raw)

	status := http.StatusOK
	if outcome.Kind == pipeline.OutcomeInvalidAlert {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, outcome)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"tickers": h.store.Len(),
	})
}

// positions lists broker positions annotated with today's ledger state,
// plus resting working orders.
func (h *Handler) positions(w http.ResponseWriter, r *http.Request) {
	reconciled, err := h.reader.Reconciled(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	_, orders, err := h.reader.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"positions":      reconciled,
		"working_orders": orders,
	})
}

func (h *Handler) positionToday(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"trades": h.ledger.TodayTrades(),
	})
}

// positionStatus answers three queries: ?reference= fetches the broker's
// confirmation for a deal, ?ticker= returns today's ledger record for one
// symbol, and with no parameters it reconciles all open positions against
// the ledger.
func (h *Handler) positionStatus(w http.ResponseWriter, r *http.Request) {
	if ref := r.URL.Query().Get("reference"); ref != "" {
		conf, err := h.confirmer.Confirmation(r.Context(), ref)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, conf)
		return
	}

	if ticker := r.URL.Query().Get("ticker"); ticker != "" {
		// Ledger keys keep the alert's exchange prefix; accept a bare
		// ticker query too.
		key := tickers.StripExchange(tickers.Normalize(ticker))
		for _, tr := range h.ledger.TodayTrades() {
			if tickers.StripExchange(tr.Symbol) == key {
				writeJSON(w, http.StatusOK, map[string]any{"traded_today": true, "trade": tr})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"traded_today": false})
		return
	}

	reconciled, err := h.reader.Reconciled(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"positions": reconciled,
		"trades":    h.ledger.TodayTrades(),
	})
}

func (h *Handler) reload(w http.ResponseWriter, _ *http.Request) {
	if err := h.store.Reload(); err != nil {
		logger.Error("ticker reload failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Info("ticker table reloaded: %d rows", h.store.Len())
	writeJSON(w, http.StatusOK, map[string]any{"tickers": h.store.Len()})
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		h.resolver.InvalidateAll()
	} else {
		h.resolver.Invalidate(symbol)
	}
	writeJSON(w, http.StatusOK, map[string]any{"invalidated": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	raw, err := sonic.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

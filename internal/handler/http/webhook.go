package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/NateWesth/aleph-order-tracker/internal/logger"
	"github.com/NateWesth/aleph-order-tracker/internal/metrics"
	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"go.uber.org/zap"
)

type Reconciler interface {
	// ApplyEvent reconciles one external event against stored orders
	ApplyEvent(ctx context.Context, evt models.ExternalEvent) (models.ReconcileResult, error)
}

// WebhookHandler represents HTTP handler for inbound integration webhooks
type WebhookHandler struct {
	svc Reconciler
}

// NewWebhookHandler creates new WebhookHandler instance
func NewWebhookHandler(svc Reconciler) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// webhook payload shapes the ERP side actually sends. Invoice-like carries
// an invoice number, sales-order-like only the sales-order number. Both may
// carry line items or a single flat sku/quantity pair.
type webhookLine struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type webhookPayload struct {
	InvoiceNumber    string        `json:"invoice_number"`
	SalesOrderNumber string        `json:"sales_order_number"`
	SKU              string        `json:"sku"`
	Quantity         int           `json:"quantity"`
	Lines            []webhookLine `json:"lines"`
}

type webhookResponse struct {
	Status  string                   `json:"status"`
	Warning string                   `json:"warning,omitempty"`
	Results []models.ReconcileResult `json:"results,omitempty"`
}

// HandleERPEvent accepts an integration event as JSON or form-encoded data.
// An unrecognized payload shape is answered with 200 and a warning body:
// 4xx/5xx would only cause upstream retry storms for events this system can
// never process. 500 is reserved for genuine processing failures.
func (wh *WebhookHandler) HandleERPEvent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := parseWebhookPayload(r)
		if err != nil {
			metrics.WebhookDeliveries.WithLabelValues("malformed").Inc()
			logger.Log.Warn("unparsable webhook payload", zap.Error(err))
			writeJSON(w, http.StatusOK, webhookResponse{
				Status:  "ignored",
				Warning: "unparsable payload",
			})
			return
		}

		var kind string
		var refs []string
		switch {
		case payload.InvoiceNumber != "":
			kind = models.SyncTypeInvoice
			refs = []string{payload.SalesOrderNumber, payload.InvoiceNumber}
		case payload.SalesOrderNumber != "":
			kind = models.SyncTypeSalesOrder
			refs = []string{payload.SalesOrderNumber}
		default:
			metrics.WebhookDeliveries.WithLabelValues("unknown").Inc()
			logger.Log.Warn("webhook payload with unknown shape")
			writeJSON(w, http.StatusOK, webhookResponse{
				Status:  "ignored",
				Warning: "unknown event shape",
			})
			return
		}

		metrics.WebhookDeliveries.WithLabelValues(kind).Inc()

		lines := payload.Lines
		if len(lines) == 0 {
			lines = []webhookLine{{SKU: payload.SKU, Quantity: payload.Quantity}}
		}

		resp := webhookResponse{Status: "ok"}
		for _, line := range lines {
			evt := models.ExternalEvent{
				Kind:        kind,
				SKU:         line.SKU,
				Quantity:    line.Quantity,
				SourceDocID: payload.InvoiceNumber,
				References:  refs,
			}

			result, err := wh.svc.ApplyEvent(r.Context(), evt)
			if err != nil {
				logger.Log.Error("webhook event processing failed",
					zap.String("sync_type", kind),
					zap.String("sku", line.SKU),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "event processing failed")
				return
			}
			resp.Results = append(resp.Results, result)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func parseWebhookPayload(r *http.Request) (webhookPayload, error) {
	defer r.Body.Close()

	var payload webhookPayload

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return payload, err
		}
		payload.InvoiceNumber = r.PostForm.Get("invoice_number")
		payload.SalesOrderNumber = r.PostForm.Get("sales_order_number")
		payload.SKU = r.PostForm.Get("sku")
		if qty := r.PostForm.Get("quantity"); qty != "" {
			n, err := strconv.Atoi(qty)
			if err != nil {
				return payload, err
			}
			payload.Quantity = n
		}
		return payload, nil
	}

	err := json.NewDecoder(r.Body).Decode(&payload)
	return payload, err
}

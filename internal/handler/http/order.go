package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/NateWesth/aleph-order-tracker/internal/lifecycle"
	"github.com/NateWesth/aleph-order-tracker/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type OrderService interface {
	// Create stores a new order with its items
	Create(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Order, []models.OrderItem, error)
	// Import creates an order from a legacy encoded progress field
	Import(ctx context.Context, number, reference, companyRef, text string) (*models.Order, []models.OrderItem, error)
	// Get returns the order and its items
	Get(ctx context.Context, id uuid.UUID) (*models.Order, []models.OrderItem, error)
	// AdvanceItemStage moves one item to target stage
	AdvanceItemStage(ctx context.Context, orderID, itemID uuid.UUID, target string, override bool) (models.OrderItem, error)
	// SetDelivered updates an item's delivered count
	SetDelivered(ctx context.Context, orderID, itemID uuid.UUID, delivered int) (models.OrderItem, error)
	// CompleteOrder marks the order completed after admin confirmation
	CompleteOrder(ctx context.Context, id uuid.UUID) (*models.Order, []models.OrderItem, error)
	// Delete removes the order with cascade
	Delete(ctx context.Context, id uuid.UUID) error
	// AddPurchaseOrder links a purchase order number to an order
	AddPurchaseOrder(ctx context.Context, orderID uuid.UUID, poNumber string) error
}

// OrderHandler represents HTTP handler for order-related requests
type OrderHandler struct {
	svc OrderService
}

// NewOrderHandler creates new OrderHandler instance
func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return
	}
}

type itemRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Quantity    int    `json:"quantity"`
	Delivered   int    `json:"delivered"`
	StockStatus string `json:"stock_status"`
}

type createOrderRequest struct {
	Number     string        `json:"number"`
	Reference  string        `json:"reference"`
	CompanyRef string        `json:"company_ref"`
	Urgency    string        `json:"urgency"`
	Items      []itemRequest `json:"items"`
}

type itemResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code,omitempty"`
	Quantity    int       `json:"quantity"`
	Delivered   int       `json:"delivered"`
	StockStatus string    `json:"stock_status"`
	Stage       string    `json:"stage"`
	Percent     int       `json:"percent"`
}

type orderResponse struct {
	ID          uuid.UUID      `json:"id"`
	Number      string         `json:"number"`
	Reference   string         `json:"reference,omitempty"`
	CompanyRef  string         `json:"company_ref,omitempty"`
	Status      string         `json:"status"`
	Urgency     string         `json:"urgency"`
	Percent     int            `json:"percent"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Items       []itemResponse `json:"items"`
}

// percentages are derived from stages on every read, never stored
func newOrderResponse(order *models.Order, items []models.OrderItem) orderResponse {
	resp := orderResponse{
		ID:          order.ID,
		Number:      order.Number,
		Reference:   order.Reference,
		CompanyRef:  order.CompanyRef,
		Status:      order.Status,
		Urgency:     order.Urgency,
		Percent:     lifecycle.OrderPercent(items),
		CompletedAt: order.CompletedAt,
		Items:       make([]itemResponse, 0, len(items)),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, itemResponse{
			ID:          it.ID,
			Name:        it.Name,
			Code:        it.Code,
			Quantity:    it.Quantity,
			Delivered:   it.Delivered,
			StockStatus: it.StockStatus,
			Stage:       it.Stage,
			Percent:     lifecycle.StagePercent(it.Stage),
		})
	}
	return resp
}

// CreateOrder creates a new order with its items
// 201 — order created;
// 400 — malformed request;
// 409 — order number already exists;
// 422 — invalid quantity or delivered count;
// 500 — internal error.
func (oh *OrderHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		if req.Number == "" {
			writeError(w, http.StatusBadRequest, "order number is required")
			return
		}

		order := models.Order{
			Number:     req.Number,
			Reference:  req.Reference,
			CompanyRef: req.CompanyRef,
			Urgency:    req.Urgency,
		}
		items := make([]models.OrderItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, models.OrderItem{
				Name:        it.Name,
				Code:        it.Code,
				Quantity:    it.Quantity,
				Delivered:   it.Delivered,
				StockStatus: it.StockStatus,
			})
		}

		created, createdItems, err := oh.svc.Create(r.Context(), &order, items)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrConflictData):
				writeError(w, http.StatusConflict, "order already exists")
			case errors.Is(err, models.ErrInvalidQuantity), errors.Is(err, models.ErrDeliveredExceedsQuantity):
				writeError(w, http.StatusUnprocessableEntity, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, newOrderResponse(created, createdItems))
	}
}

// ImportOrder creates an order from a legacy encoded progress field carried
// in the request body. Query/header metadata carries the order number.
// 201 — order imported;
// 400 — malformed request;
// 409 — order number already exists;
// 500 — internal error.
func (oh *OrderHandler) ImportOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil || len(body) == 0 {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		number := r.URL.Query().Get("number")
		if number == "" {
			writeError(w, http.StatusBadRequest, "order number is required")
			return
		}
		reference := r.URL.Query().Get("reference")
		companyRef := r.URL.Query().Get("company_ref")

		order, items, err := oh.svc.Import(r.Context(), number, reference, companyRef, string(body))
		if err != nil {
			if errors.Is(err, models.ErrConflictData) {
				writeError(w, http.StatusConflict, "order already exists")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, newOrderResponse(order, items))
	}
}

// GetOrder returns the order with its items and derived progress
// 200 — success;
// 400 — malformed id;
// 404 — order not found;
// 500 — internal error.
func (oh *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order id")
			return
		}

		order, items, err := oh.svc.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				writeError(w, http.StatusNotFound, "order not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, newOrderResponse(order, items))
	}
}

// DeleteOrder removes the order unconditionally, cascading its items
// 204 — order deleted;
// 400 — malformed id;
// 404 — order not found;
// 500 — internal error.
func (oh *OrderHandler) DeleteOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order id")
			return
		}

		if err := oh.svc.Delete(r.Context(), id); err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				writeError(w, http.StatusNotFound, "order not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// CompleteOrder confirms order completion
// 200 — order completed;
// 404 — order not found;
// 409 — precondition failed, data unchanged;
// 500 — internal error.
func (oh *OrderHandler) CompleteOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order id")
			return
		}

		order, items, err := oh.svc.CompleteOrder(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrDataNotFound):
				writeError(w, http.StatusNotFound, "order not found")
			case errors.Is(err, models.ErrPreconditionFailed):
				writeError(w, http.StatusConflict, "not all items are complete")
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, newOrderResponse(order, items))
	}
}

type stageRequest struct {
	Stage    string `json:"stage"`
	Override bool   `json:"override"`
}

// AdvanceItemStage moves one item to the requested stage
// 200 — stage updated;
// 400 — malformed request;
// 404 — order or item not found;
// 409 — stage not reachable from current;
// 422 — unknown stage;
// 500 — internal error.
func (oh *OrderHandler) AdvanceItemStage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order id")
			return
		}
		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid item id")
			return
		}

		var req stageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		item, err := oh.svc.AdvanceItemStage(r.Context(), orderID, itemID, req.Stage, req.Override)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrDataNotFound):
				writeError(w, http.StatusNotFound, "order or item not found")
			case errors.Is(err, models.ErrStageNotReachable):
				writeError(w, http.StatusConflict, "stage is not reachable")
			case errors.Is(err, models.ErrInvalidStage):
				writeError(w, http.StatusUnprocessableEntity, "unknown stage")
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, itemResponse{
			ID:          item.ID,
			Name:        item.Name,
			Code:        item.Code,
			Quantity:    item.Quantity,
			Delivered:   item.Delivered,
			StockStatus: item.StockStatus,
			Stage:       item.Stage,
			Percent:     lifecycle.StagePercent(item.Stage),
		})
	}
}

type deliveredRequest struct {
	Delivered int `json:"delivered"`
}

// SetDelivered updates an item's delivered count
// 200 — delivered count updated;
// 400 — malformed request;
// 404 — order or item not found;
// 422 — delivered count out of range;
// 500 — internal error.
func (oh *OrderHandler) SetDelivered() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order id")
			return
		}
		itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid item id")
			return
		}

		var req deliveredRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		item, err := oh.svc.SetDelivered(r.Context(), orderID, itemID, req.Delivered)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrDataNotFound):
				writeError(w, http.StatusNotFound, "order or item not found")
			case errors.Is(err, models.ErrDeliveredExceedsQuantity):
				writeError(w, http.StatusUnprocessableEntity, "delivered count out of range")
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, itemResponse{
			ID:          item.ID,
			Name:        item.Name,
			Code:        item.Code,
			Quantity:    item.Quantity,
			Delivered:   item.Delivered,
			StockStatus: item.StockStatus,
			Stage:       item.Stage,
			Percent:     lifecycle.StagePercent(item.Stage),
		})
	}
}

type purchaseOrderRequest struct {
	PONumber string `json:"po_number"`
}

// AddPurchaseOrder links a purchase order number to an order
// 201 — link created;
// 400 — malformed request;
// 404 — order not found;
// 500 — internal error.
func (oh *OrderHandler) AddPurchaseOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order id")
			return
		}

		var req purchaseOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PONumber == "" {
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		if err := oh.svc.AddPurchaseOrder(r.Context(), orderID, req.PONumber); err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				writeError(w, http.StatusNotFound, "order not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.WriteHeader(http.StatusCreated)
	}
}

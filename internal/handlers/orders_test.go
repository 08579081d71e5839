package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/platform/auth"
	"github.com/assetdeck/api/internal/services"
)

func TestOrderHandlersListOrders(t *testing.T) {
	router := chi.NewRouter()
	handler := NewOrderHandlers(&stubOrderService{
		listFunc: func(_ context.Context, userID string, limit int) ([]domain.Order, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user id %s", userID)
			}
			if limit != 10 {
				t.Fatalf("expected limit 10, got %d", limit)
			}
			return []domain.Order{{
				ID:       "ord-1",
				UserID:   "user-1",
				Status:   domain.OrderStatusCompleted,
				Total:    4000,
				Currency: "USD",
				Lines:    []domain.OrderLine{{AssetID: "asset-1", Title: "Brush Set", Price: 4000}},
				CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			}}, nil
		},
	})
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/orders?limit=10", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp struct {
		Orders []orderPayload `json:"orders"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Orders[0].ID != "ord-1" {
		t.Fatalf("unexpected orders %#v", resp.Orders)
	}
	if len(resp.Orders[0].Lines) != 1 || resp.Orders[0].Lines[0].Title != "Brush Set" {
		t.Fatalf("expected line snapshot returned, got %#v", resp.Orders[0].Lines)
	}
}

func TestOrderHandlersGetOrder(t *testing.T) {
	router := chi.NewRouter()
	handler := NewOrderHandlers(&stubOrderService{
		getFunc: func(_ context.Context, userID, orderID string) (domain.Order, error) {
			if userID != "user-1" || orderID != "ord-1" {
				t.Fatalf("unexpected lookup %s/%s", userID, orderID)
			}
			return domain.Order{ID: "ord-1", UserID: "user-1", Status: domain.OrderStatusPending}, nil
		},
	})
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord-1", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestOrderHandlersGetOrderNotFound(t *testing.T) {
	router := chi.NewRouter()
	handler := NewOrderHandlers(&stubOrderService{
		getFunc: func(context.Context, string, string) (domain.Order, error) {
			return domain.Order{}, services.ErrOrderNotFound
		},
	})
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord-foreign", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UID: "user-1"}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	var errResp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp["error"] != "order_not_found" {
		t.Fatalf("expected order_not_found, got %#v", errResp["error"])
	}
}

func TestOrderHandlersUnauthenticated(t *testing.T) {
	router := chi.NewRouter()
	handler := NewOrderHandlers(&stubOrderService{})
	handler.Routes(router)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

type stubOrderService struct {
	getFunc  func(ctx context.Context, userID, orderID string) (domain.Order, error)
	listFunc func(ctx context.Context, userID string, limit int) ([]domain.Order, error)
}

func (s *stubOrderService) GetOrder(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, userID, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListOrders(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, userID, limit)
	}
	return nil, errors.New("not implemented")
}

package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"scalper-core/pkg/broker/common"
)

func TestPlaceOrder(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders/regular" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"order_id": "OID1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "token")
	res, err := c.PlaceOrder(context.Background(), common.OrderRequest{
		Token: 1, Symbol: "RELIANCE", Side: common.SideBuy,
		Type: common.OrderTypeMarket, Qty: 100, Price: 100.0,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if res.OrderID != "OID1" {
		t.Fatalf("order id = %q, want OID1", res.OrderID)
	}
	if got["order_type"] != "MARKET" || got["quantity"] != float64(100) {
		t.Fatalf("body = %v", got)
	}
	// Market orders carry no price.
	if _, present := got["price"]; present {
		t.Fatalf("market order sent a price: %v", got)
	}
}

func TestPlaceLimitOrderSendsPrice(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]string{"order_id": "OID2"})
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "token")
	if _, err := c.PlaceOrder(context.Background(), common.OrderRequest{
		Token: 1, Symbol: "RELIANCE", Side: common.SideSell,
		Type: common.OrderTypeLimit, Qty: 100, Price: 100.75,
	}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if got["price"] != 100.75 {
		t.Fatalf("limit price = %v, want 100.75", got["price"])
	}
}

func TestModifyOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/orders/regular/OID1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "token")
	if err := c.ModifyOrder(context.Background(), "OID1", common.OrderTypeMarket); err != nil {
		t.Fatalf("ModifyOrder: %v", err)
	}
}

func TestAvailableFunds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]float64{"live_balance": 98765.43})
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "token")
	funds, err := c.AvailableFunds(context.Background())
	if err != nil {
		t.Fatalf("AvailableFunds: %v", err)
	}
	if funds != 98765.43 {
		t.Fatalf("funds = %v", funds)
	}
}

func TestAPIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "token expired"})
	}))
	defer srv.Close()

	c := New(srv.URL, "key", "token")
	if _, err := c.AvailableFunds(context.Background()); err == nil {
		t.Fatal("error response did not surface")
	}
}

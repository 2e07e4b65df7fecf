package testenv

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
)

// CreateWallet provisions a wallet through the HTTP API and returns its id.
func CreateWallet(t *testing.T, r *gin.Engine, name string) int {
	body, _ := json.Marshal(map[string]string{"name": name})

	req := httptest.NewRequest(http.MethodPost, "/wallets", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("create wallet failed: %d %s", resp.Code, resp.Body.String())
	}

	var result map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &result)
	return int(result["id"].(float64))
}

// GetBalance fetches a wallet's current balance through the HTTP API.
func GetBalance(t *testing.T, r *gin.Engine, id int) int {
	req := httptest.NewRequest(http.MethodGet, "/wallets/"+strconv.Itoa(id), nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("get wallet failed: %d %s", resp.Code, resp.Body.String())
	}

	var result map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &result)
	return int(result["balance"].(float64))
}

// TopUp credits a wallet through the admin HTTP endpoint.
func TopUp(t *testing.T, r *gin.Engine, id int, amount int) {
	body, _ := json.Marshal(map[string]interface{}{"amount": amount, "note": "test-topup"})

	req := httptest.NewRequest(http.MethodPost, "/admin/wallets/"+strconv.Itoa(id)+"/topup", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK && resp.Code != http.StatusCreated {
		t.Fatalf("top up failed: %d %s", resp.Code, resp.Body.String())
	}
}

// CreateAPIKey issues an active API key for wallet directly against the
// store — there is no public endpoint for key issuance, it's an admin/seed
// concern the same way the original system provisioned client_id/secret.
func CreateAPIKey(t *testing.T, tc *TestContainer, walletID int, key, label string) {
	if _, err := tc.Store.CreateAPIKey(context.Background(), walletID, key, label); err != nil {
		t.Fatalf("create api key failed: %v", err)
	}
}

// Charge calls a charge-protected route with the given API key.
func Charge(r *gin.Engine, method, path, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-API-Key", apiKey)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

// AssertHasError checks the response carries a non-empty error message.
func AssertHasError(t *testing.T, result map[string]interface{}) {
	if message, ok := result["message"]; ok && message != "" {
		return
	}
	if errMsg, ok := result["error"]; ok && errMsg != "" {
		return
	}
	t.Error("expected an error message in response body")
}

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dafibh/bazaar/bazaar-backend/internal/service"
	"github.com/dafibh/bazaar/bazaar-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func setupTokenAccountHandler(t *testing.T) (*TokenAccountHandler, *testutil.SettlementFixture) {
	t.Helper()
	f := testutil.NewSettlementFixture(t)
	programs := service.NewProgramService(f.Ledger, zerolog.Nop())
	accounts := service.NewTokenAccountService(f.Ledger, programs, zerolog.Nop())
	return NewTokenAccountHandler(accounts, programs), f
}

func postJSON(t *testing.T, handlerFn echo.HandlerFunc, target, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) == 2 {
		c.SetParamNames(params[0])
		c.SetParamValues(params[1])
	}
	if err := handlerFn(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return rec
}

func TestTokenAccountHandler_OpenAndMint(t *testing.T) {
	h, f := setupTokenAccountHandler(t)
	owner := testutil.NewWallet(5).Identity
	address := f.AssociatedAccount(owner).String()

	rec := postJSON(t, h.OpenTokenAccount, "/api/v1/admin/token-accounts", `{"owner":"`+owner.String()+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var opened TokenAccountResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &opened)
	if opened.Address != address || opened.Amount != "0" {
		t.Errorf("Unexpected account %+v", opened)
	}

	rec = postJSON(t, h.OpenTokenAccount, "/api/v1/admin/token-accounts", `{"owner":"`+owner.String()+`"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409 on reopen, got %d", rec.Code)
	}

	rec = postJSON(t, h.MintTo, "/api/v1/admin/token-accounts/"+address+"/mint", `{"amount":"1500000"}`, "address", address)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var minted TokenAccountResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &minted)
	if minted.Amount != "1500000" || minted.UIAmount != "1.500000" {
		t.Errorf("Expected 1500000 (1.500000), got %s (%s)", minted.Amount, minted.UIAmount)
	}
}

func TestTokenAccountHandler_MintTo_Errors(t *testing.T) {
	h, f := setupTokenAccountHandler(t)
	address := f.OpenAccount(t, testutil.NewWallet(5).Identity, 0).String()
	missing := testutil.NewWallet(40).Identity.String()

	tests := []struct {
		name       string
		address    string
		body       string
		wantStatus int
	}{
		{"zero amount", address, `{"amount":"0"}`, http.StatusBadRequest},
		{"bad amount", address, `{"amount":"-5"}`, http.StatusBadRequest},
		{"bad address", "nope", `{"amount":"5"}`, http.StatusBadRequest},
		{"missing account", missing, `{"amount":"5"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.MintTo, "/api/v1/admin/token-accounts/"+tt.address+"/mint", tt.body, "address", tt.address)
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestTokenAccountHandler_GetTokenAccount(t *testing.T) {
	h, f := setupTokenAccountHandler(t)
	address := f.OpenAccount(t, testutil.NewWallet(5).Identity, 42).String()

	rec := getWithParam(t, h.GetTokenAccount, "/api/v1/token-accounts/"+address, "address", address)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var resp TokenAccountResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Amount != "42" || resp.UIAmount != "0.000042" {
		t.Errorf("Unexpected balance %s (%s)", resp.Amount, resp.UIAmount)
	}

	missing := testutil.NewWallet(41).Identity.String()
	if rec := getWithParam(t, h.GetTokenAccount, "/api/v1/token-accounts/"+missing, "address", missing); rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
	if rec := getWithParam(t, h.GetTokenAccount, "/api/v1/token-accounts/bad", "address", "bad"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestTokenAccountHandler_GetAssociatedAddress(t *testing.T) {
	h, f := setupTokenAccountHandler(t)
	owner := testutil.NewWallet(5).Identity

	rec := getWithParam(t, h.GetAssociatedAddress, "/api/v1/token-accounts/associated?owner="+owner.String(), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var resp AssociatedAddressResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Address != f.AssociatedAccount(owner).String() {
		t.Errorf("Expected %s, got %s", f.AssociatedAccount(owner), resp.Address)
	}

	if rec := getWithParam(t, h.GetAssociatedAddress, "/api/v1/token-accounts/associated", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without owner, got %d", rec.Code)
	}
}

package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oranet/oranet-backend/internal/pkg/env"
)

const (
	defaultAuthURL    = "https://api.safaricom.co.ke/oauth/v1/generate?grant_type=client_credentials"
	defaultStkPushURL = "https://api.safaricom.co.ke/mpesa/stkpush/v1/processrequest"

	// ResponseCode value the gateway returns when the push was accepted.
	// Accepted means the payer was prompted, not that the payment completed;
	// completion arrives later on the callback URL.
	ResponseCodeAccepted = "0"

	transactionType = "CustomerPayBillOnline"
	accountPrefix   = "ORANET-"
)

// Client talks to the Safaricom Daraja API.
type Client struct {
	BusinessShortCode string
	PassKey           string
	ConsumerKey       string
	ConsumerSecret    string
	CallbackURL       string

	AuthURL    string
	StkPushURL string

	HTTPClient *http.Client
}

// TokenResponse is the OAuth client-credentials exchange result.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// STKPushRequest is the Daraja process-request body.
type STKPushRequest struct {
	BusinessShortCode string  `json:"BusinessShortCode"`
	Password          string  `json:"Password"`
	Timestamp         string  `json:"Timestamp"`
	TransactionType   string  `json:"TransactionType"`
	Amount            float64 `json:"Amount"`
	PartyA            string  `json:"PartyA"`
	PartyB            string  `json:"PartyB"`
	PhoneNumber       string  `json:"PhoneNumber"`
	CallBackURL       string  `json:"CallBackURL"`
	AccountReference  string  `json:"AccountReference"`
	TransactionDesc   string  `json:"TransactionDesc"`
}

// STKPushResponse carries the correlation pair the callback is later matched
// against, plus the gateway's acceptance code.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorMessage        string `json:"errorMessage,omitempty"`
}

// Accepted reports whether the gateway accepted the push request.
func (r *STKPushResponse) Accepted() bool {
	return r.ResponseCode == ResponseCodeAccepted
}

func NewClientFromEnv() *Client {
	return &Client{
		BusinessShortCode: strings.TrimSpace(env.GetEnv("MPESA_BUSINESS_SHORT_CODE", "")),
		PassKey:           strings.TrimSpace(env.GetEnv("MPESA_PASS_KEY", "")),
		ConsumerKey:       strings.TrimSpace(env.GetEnv("MPESA_CONSUMER_KEY", "")),
		ConsumerSecret:    strings.TrimSpace(env.GetEnv("MPESA_CONSUMER_SECRET", "")),
		CallbackURL:       strings.TrimSpace(env.GetEnv("MPESA_CALLBACK_URL", "")),
		AuthURL:           strings.TrimSpace(env.GetEnv("MPESA_AUTH_URL", defaultAuthURL)),
		StkPushURL:        strings.TrimSpace(env.GetEnv("MPESA_STK_PUSH_URL", defaultStkPushURL)),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CheckConfig verifies all required credentials are present before any
// network call is made.
func (c *Client) CheckConfig() error {
	if c.BusinessShortCode == "" || c.PassKey == "" || c.ConsumerKey == "" ||
		c.ConsumerSecret == "" || c.CallbackURL == "" {
		return errors.New("missing required environment variables for M-Pesa integration")
	}
	return nil
}

// GetAccessToken performs the client-credentials exchange.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	if err := c.CheckConfig(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AuthURL, nil)
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.ConsumerKey + ":" + c.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to get authentication token: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out TokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", errors.New("token response missing access_token")
	}
	return out.AccessToken, nil
}

// STKPush prompts the payer's phone for the given amount. The returned
// correlation pair identifies this payment attempt until the callback lands.
func (c *Client) STKPush(ctx context.Context, phoneNumber string, amount float64, packageID, packageName string) (*STKPushResponse, error) {
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}

	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := Timestamp(time.Now())
	payload := STKPushRequest{
		BusinessShortCode: c.BusinessShortCode,
		Password:          Password(c.BusinessShortCode, c.PassKey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            amount,
		PartyA:            phoneNumber,
		PartyB:            c.BusinessShortCode,
		PhoneNumber:       phoneNumber,
		CallBackURL:       c.CallbackURL,
		AccountReference:  accountPrefix + packageID,
		TransactionDesc:   fmt.Sprintf("Payment for %s package", packageName),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.StkPushURL, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var out STKPushResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("stk push response unreadable: status=%d body=%s", resp.StatusCode, string(body))
	}
	return &out, nil
}

// Password derives the Daraja request password:
// base64(shortcode + passkey + timestamp).
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

// Timestamp formats t the way Daraja expects: YYYYMMDDHHmmss.
func Timestamp(t time.Time) string {
	return t.Format("20060102150405")
}

// NormalizePhoneNumber converts a local 07XX/01XX number to international
// 254 form. Numbers already in 254 form pass through unchanged.
func NormalizePhoneNumber(phone string) string {
	if strings.HasPrefix(phone, "0") {
		return "254" + phone[1:]
	}
	return phone
}

// Package api is the HTTP client for the arbitrage backend.
package api

import "time"

// User is the authenticated operator account.
type User struct {
	ID          int    `json:"id"`
	Email       string `json:"email"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// UserCreate is the registration payload. The backend requires a password of
// at least eight characters.
type UserCreate struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the login response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ExchangeKey is a server-owned exchange credential record. The key material
// is opaque to this client; it is echoed back only on create.
type ExchangeKey struct {
	ID          int    `json:"id"`
	UserID      int    `json:"user_id"`
	Exchange    string `json:"exchange"`
	APIKey      string `json:"api_key"`
	APISecret   string `json:"api_secret"`
	APIPassword string `json:"api_password,omitempty"`
	IsEnabled   bool   `json:"is_enabled"`
}

// ExchangeKeyCreate is the create payload for an exchange key.
type ExchangeKeyCreate struct {
	Exchange    string `json:"exchange"`
	APIKey      string `json:"api_key"`
	APISecret   string `json:"api_secret"`
	APIPassword string `json:"api_password,omitempty"`
	IsEnabled   bool   `json:"is_enabled"`
}

// Bot config modes.
const (
	ModeSandbox = "sandbox"
	ModeLive    = "live"
)

// BotConfig is a server-owned bot configuration record.
type BotConfig struct {
	ID                int       `json:"id"`
	UserID            int       `json:"user_id"`
	Mode              string    `json:"mode"`
	Coins             string    `json:"coins"`
	Budget            float64   `json:"budget"`
	MaxTradeSize      float64   `json:"max_trade_size"`
	SlippageTolerance float64   `json:"slippage_tolerance"`
	StopLoss          float64   `json:"stop_loss"`
	DailyLimit        float64   `json:"daily_limit"`
	ProfitTake        float64   `json:"profit_take"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BotConfigCreate is the create/update payload for a bot configuration.
type BotConfigCreate struct {
	Mode              string  `json:"mode"`
	Coins             string  `json:"coins"`
	Budget            float64 `json:"budget"`
	MaxTradeSize      float64 `json:"max_trade_size"`
	SlippageTolerance float64 `json:"slippage_tolerance"`
	StopLoss          float64 `json:"stop_loss"`
	DailyLimit        float64 `json:"daily_limit"`
	ProfitTake        float64 `json:"profit_take"`
}

// TradeLog is a persisted trade-log record, the durable log of record for
// executed (or attempted) trades.
type TradeLog struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	Timestamp    time.Time `json:"timestamp"`
	Coin         string    `json:"coin"`
	BuyExchange  string    `json:"buy_exchange"`
	SellExchange string    `json:"sell_exchange"`
	PriceBuy     float64   `json:"price_buy"`
	PriceSell    float64   `json:"price_sell"`
	Amount       float64   `json:"amount"`
	Profit       float64   `json:"profit"`
	Mode         string    `json:"mode"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Package event defines the decoded realtime event model.
package event

import (
	"encoding/json"
	"time"
)

// Kind identifies which variant an Event is.
type Kind string

const (
	KindTicker  Kind = "ticker"
	KindTrade   Kind = "trade"
	KindUnknown Kind = "unknown"
)

// Trade statuses reported by the backend.
const (
	StatusPending  = "pending"
	StatusExecuted = "executed"
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusError    = "error"
)

// Event is a decoded realtime message. Exactly one of TickerSpread,
// TradeExecution or Unknown implements it; events are immutable once decoded.
type Event interface {
	Kind() Kind
	// ReceivedAt is the local reception time, not a server timestamp.
	ReceivedAt() time.Time
}

// Quote is an exchange/price pair for one side of a spread.
type Quote struct {
	Exchange string  `json:"exchange"`
	Price    float64 `json:"price"`
}

// TickerSpread reports the best buy/sell quotes and the spread between them
// for a single coin.
type TickerSpread struct {
	Coin          string
	SpreadPercent float64
	BestBuy       Quote
	BestSell      Quote
	At            time.Time
}

func (TickerSpread) Kind() Kind              { return KindTicker }
func (e TickerSpread) ReceivedAt() time.Time { return e.At }

// TradeExecution reports an attempted arbitrage trade, simulated or live.
type TradeExecution struct {
	Coin         string
	Amount       float64
	BuyExchange  string
	SellExchange string
	BuyPrice     float64
	SellPrice    float64
	Profit       float64
	Mode         string
	Status       string
	Error        string
	At           time.Time
}

func (TradeExecution) Kind() Kind              { return KindTrade }
func (e TradeExecution) ReceivedAt() time.Time { return e.At }

// Unknown preserves a frame whose type discriminant is not recognised.
// Future message types must pass through here rather than fail decoding.
type Unknown struct {
	Type string
	Raw  json.RawMessage
	At   time.Time
}

func (Unknown) Kind() Kind              { return KindUnknown }
func (e Unknown) ReceivedAt() time.Time { return e.At }

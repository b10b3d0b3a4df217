package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// envelope is the minimal shape every frame must have: a type discriminant.
type envelope struct {
	Type string `json:"type"`
}

// wireTicker mirrors the backend's ticker broadcast.
type wireTicker struct {
	Coin          string    `json:"coin"`
	SpreadPercent float64   `json:"spread_percent"`
	BestBuy       wireQuote `json:"best_buy"`
	BestSell      wireQuote `json:"best_sell"`
}

// wireTrade mirrors the backend's trade broadcast. The buy/sell legs arrive
// as (exchange, price) pairs.
type wireTrade struct {
	Coin   string    `json:"coin"`
	Buy    wireQuote `json:"buy"`
	Sell   wireQuote `json:"sell"`
	Amount float64   `json:"amount"`
	Profit float64   `json:"profit"`
	Mode   string    `json:"mode"`
	Status string    `json:"status"`
	Error  *string   `json:"error"`
}

// wireQuote accepts both encodings the backend emits for an exchange leg:
// an object {"exchange": ..., "price": ...} or a two-element array.
type wireQuote struct {
	Exchange string
	Price    float64
}

func (q *wireQuote) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("quote pair has %d elements, want 2", len(pair))
		}
		if err := json.Unmarshal(pair[0], &q.Exchange); err != nil {
			return fmt.Errorf("quote exchange: %w", err)
		}
		if err := json.Unmarshal(pair[1], &q.Price); err != nil {
			return fmt.Errorf("quote price: %w", err)
		}
		return nil
	}

	var obj struct {
		Exchange string  `json:"exchange"`
		Price    float64 `json:"price"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("quote is neither object nor pair: %w", err)
	}
	q.Exchange = obj.Exchange
	q.Price = obj.Price
	return nil
}

// Decode classifies a raw frame by its type discriminant and returns the
// decoded event. Unrecognised types decode to Unknown; only a syntactically
// invalid frame returns an error. Numeric fields are passed through at full
// float64 precision.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	now := time.Now()

	switch env.Type {
	case "ticker":
		var w wireTicker
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("malformed ticker frame: %w", err)
		}
		return TickerSpread{
			Coin:          w.Coin,
			SpreadPercent: w.SpreadPercent,
			BestBuy:       Quote{Exchange: w.BestBuy.Exchange, Price: w.BestBuy.Price},
			BestSell:      Quote{Exchange: w.BestSell.Exchange, Price: w.BestSell.Price},
			At:            now,
		}, nil

	case "trade":
		var w wireTrade
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("malformed trade frame: %w", err)
		}
		ev := TradeExecution{
			Coin:         w.Coin,
			Amount:       w.Amount,
			BuyExchange:  w.Buy.Exchange,
			SellExchange: w.Sell.Exchange,
			BuyPrice:     w.Buy.Price,
			SellPrice:    w.Sell.Price,
			Profit:       w.Profit,
			Mode:         w.Mode,
			Status:       w.Status,
			At:           now,
		}
		if w.Error != nil {
			ev.Error = *w.Error
		}
		return ev, nil

	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Unknown{Type: env.Type, Raw: raw, At: now}, nil
	}
}

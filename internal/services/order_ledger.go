package services

import (
	"context"
	"fmt"
	"time"

	"amm-market/internal/models"
	"amm-market/internal/pagination"
)

// maxCandles bounds a single candle query
const maxCandles = 2000

// GetOrders returns one page of the price history, newest first. Page 1 holds
// the most recent entries. AsOf is the time of the read.
func (e *MarketEngine) GetOrders(ctx context.Context, marketID string, page, perPage uint64) (*models.OrderPage, error) {
	market, err := e.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	window, err := pagination.Window(market.TotalOrders, page, perPage)
	if err != nil {
		return nil, paginationError(err)
	}

	orders, err := e.repo.GetOrderRange(ctx, marketID, window.Oldest, window.Newest)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if len(orders) != window.Len() {
		return nil, fmt.Errorf("order ledger of %s has %d of %d entries in [%d, %d]",
			marketID, len(orders), window.Len(), window.Oldest, window.Newest)
	}
	return &models.OrderPage{AsOf: e.now().Unix(), Orders: orders}, nil
}

// Candles buckets the order ledger between from and to into OHLC candles of the
// Yes price. Buckets without orders are omitted.
func (e *MarketEngine) Candles(ctx context.Context, marketID string, interval time.Duration, from, to time.Time) ([]models.PriceCandle, error) {
	if interval < time.Second {
		return nil, invalidParam("interval must be at least one second")
	}
	if !to.After(from) {
		return nil, invalidParam("time range is empty")
	}
	if to.Sub(from)/interval > maxCandles {
		return nil, invalidParam(fmt.Sprintf("time range spans more than %d candles", maxCandles))
	}
	if _, err := e.GetMarket(ctx, marketID); err != nil {
		return nil, err
	}

	orders, err := e.repo.GetOrdersBetween(ctx, marketID, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return buildCandles(orders, interval), nil
}

func buildCandles(orders []models.MarketOrder, interval time.Duration) []models.PriceCandle {
	step := int64(interval / time.Second)
	var candles []models.PriceCandle
	var bucket int64 = -1
	for _, o := range orders {
		price := o.YesPrice.Decimal(models.PriceDecimals)
		start := o.Timestamp - o.Timestamp%step
		if start != bucket {
			bucket = start
			candles = append(candles, models.PriceCandle{
				Timestamp: time.Unix(start, 0).UTC(),
				Open:      price,
				High:      price,
				Low:       price,
			})
		}
		c := &candles[len(candles)-1]
		if price.GreaterThan(c.High) {
			c.High = price
		}
		if price.LessThan(c.Low) {
			c.Low = price
		}
		c.Close = price
		c.Orders++
	}
	return candles
}

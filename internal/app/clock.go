package app

import "time"

// FrameClock paces the simulation. Run performs one step per tick.
type FrameClock interface {
	C() <-chan time.Time
	Stop()
}

type tickerClock struct {
	ticker *time.Ticker
}

// NewTickerClock returns a FrameClock ticking fps times per second.
func NewTickerClock(fps float64) FrameClock {
	if fps <= 0 {
		fps = 60
	}
	return &tickerClock{ticker: time.NewTicker(time.Duration(float64(time.Second) / fps))}
}

func (c *tickerClock) C() <-chan time.Time { return c.ticker.C }

func (c *tickerClock) Stop() { c.ticker.Stop() }

package binance

import (
	"strings"
	"time"
)

const (
	productionBaseURL = "https://fapi.binance.com"
	testnetBaseURL    = "https://testnet.binancefuture.com"
)

type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool

	RESTBaseURL string
	HTTPTimeout time.Duration

	RetryAttempts     int
	RetryDelay        time.Duration
	BackoffMultiplier float64

	BreakerThreshold int
	BreakerTimeout   time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		if out.Testnet {
			out.RESTBaseURL = testnetBaseURL
		} else {
			out.RESTBaseURL = productionBaseURL
		}
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	if out.RetryAttempts <= 0 {
		out.RetryAttempts = 3
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = time.Second
	}
	if out.BackoffMultiplier < 1 {
		out.BackoffMultiplier = 2.0
	}
	if out.BreakerThreshold <= 0 {
		out.BreakerThreshold = 5
	}
	if out.BreakerTimeout <= 0 {
		out.BreakerTimeout = time.Minute
	}
	return out
}

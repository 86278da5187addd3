package utils

import (
	"log"
	"time"
)

// RetryConfig controls RetryWithBackoff.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
	}
}

// RetryWithBackoff runs fn until it succeeds or the retry budget is spent,
// doubling the delay between attempts.
func RetryWithBackoff(fn func() error, cfg RetryConfig) error {
	delay := cfg.BaseDelay
	var err error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == cfg.MaxRetries {
			break
		}
		log.Printf("⚠️ Attempt %d failed: %v (retrying in %s)\n", attempt+1, err, delay)
		time.Sleep(delay)
		delay *= 2
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return err
}

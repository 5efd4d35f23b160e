package utils

import (
	"time"
)

// Retry calls fn up to attempts times, waiting delay between failures,
// returning the last error if every attempt failed.
func Retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}

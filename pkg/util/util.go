/*
2019 © Postgres.ai
*/

// Package util provides utility functions.
package util

import (
	"time"
)

// RunInterval runs the function periodically until the returned channel is closed.
func RunInterval(d time.Duration, fn func()) chan struct{} {
	ticker := time.NewTicker(d)
	quit := make(chan struct{})

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				fn()

			case <-quit:
				return
			}
		}
	}()

	return quit
}

// Package dapsync collects the concurrency helpers the session and
// reconciler build on: a panic-recovering goroutine launcher, a
// fan-out/fan-in task group, and a handshake timeout guard.
package dapsync

import "github.com/sirupsen/logrus"

// Go launches task in its own goroutine, recovering and logging any
// panic instead of crashing the process. Used for background work
// whose result is delivered through a callback or channel rather than
// returned directly (transport reads, reconciler dispatch).
func Go(task func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("component", "dapsync").Errorf("recovered panic: %v", r)
			}
		}()
		task()
	}()
}

package utils

import "log"

// ConsumeChannel drains a channel so producers never block on a partial
// reader that returned early.
func ConsumeChannel[T any](c chan T) {
	defer func() {
		err := recover()
		if err == nil {
			return
		}
		log.Println("Failed to consume channel:", err)
	}()
	for range c {
	}
}

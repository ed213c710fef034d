// Package events fans page change notifications out to local listeners and,
// optionally, to other instances over Redis pub/sub.
package events

import (
	"github.com/rs/zerolog"

	"github.com/debemdeboas/redux-content/internal/model"
)

var eventsLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	eventsLogger = l
}

type Notifier func(model.PageChange)

// Fanout returns a Notifier calling each non-nil notifier in order.
func Fanout(notifiers ...Notifier) Notifier {
	active := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}

	return func(change model.PageChange) {
		for _, n := range active {
			n(change)
		}
	}
}

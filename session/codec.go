package session

import (
	"encoding/json"

	"github.com/veramoney/chatmesh/core"
)

// Events cross the storage boundary as JSON; the core part union carries its
// own type discriminators so the round-trip is lossless.

func encodeEvent(ev core.Event) ([]byte, error) {
	return json.Marshal(ev)
}

func decodeEvent(data []byte) (core.Event, error) {
	var ev core.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return core.Event{}, err
	}
	return ev, nil
}

package broker

import (
	"bytes"
	"strings"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/packets"
)

// messageHook feeds every published message back to the broker for counting
// and internal subscription delivery.
type messageHook struct {
	mqtt.HookBase
	broker *Broker
}

// ID returns the hook identifier.
func (h *messageHook) ID() string {
	return "message-hook"
}

// Provides indicates which hook methods this hook provides.
func (h *messageHook) Provides(b byte) bool {
	return bytes.Contains([]byte{
		mqtt.OnPublish,
	}, []byte{b})
}

// OnPublish handles incoming publish messages.
func (h *messageHook) OnPublish(cl *mqtt.Client, pk packets.Packet) (packets.Packet, error) {
	h.broker.observePublish(pk.TopicName, pk.Payload)
	return pk, nil
}

func splitTopic(s string) []string {
	return strings.Split(s, "/")
}

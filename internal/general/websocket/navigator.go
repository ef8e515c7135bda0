package websocket

import (
	"context"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/emergency"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"
)

// Navigator points a page at a telephony intent over its live channel.
type Navigator struct {
	ch ports.PageChannel
}

func NewNavigator(ch ports.PageChannel) *Navigator {
	return &Navigator{ch: ch}
}

// Navigate sends a navigate frame. The page sets window.location.href to the intent.
func (n *Navigator) Navigate(_ context.Context, intent emergency.Intent) error {
	return n.ch.Send(contracts.WSNavigate{
		Type:    contracts.FrameNavigate,
		Href:    intent.Href,
		Service: intent.Service,
	})
}

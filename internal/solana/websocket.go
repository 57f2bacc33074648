package solana

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/your-org/sol-arb-bot/pkg/logger"
)

// SlotObserver receives slot updates pushed by the subscription.
// slotclock.Clock.Observe fits after a small adapter.
type SlotObserver func(slot uint64, at time.Time)

// SlotSubscriber streams slotNotification events from a node websocket
// endpoint and forwards them to an observer. It reconnects with a flat
// backoff until the context is cancelled.
type SlotSubscriber struct {
	url      string
	observer SlotObserver
	backoff  time.Duration
}

// NewSlotSubscriber creates a subscriber for the given websocket URL.
func NewSlotSubscriber(url string, observer SlotObserver) *SlotSubscriber {
	return &SlotSubscriber{
		url:      url,
		observer: observer,
		backoff:  2 * time.Second,
	}
}

type slotNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Slot uint64 `json:"slot"`
		} `json:"result"`
	} `json:"params"`
}

// Run maintains the subscription until ctx is done.
func (s *SlotSubscriber) Run(ctx context.Context) {
	for {
		if err := s.connectAndRead(ctx); err != nil && ctx.Err() == nil {
			logger.Warnf("Slot subscription dropped, reconnecting in %s: %v", s.backoff, err)
		}
		select {
		case <-ctx.Done():
			logger.Info("Slot subscriber stopped.")
			return
		case <-time.After(s.backoff):
		}
	}
}

func (s *SlotSubscriber) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := rpcRequest{JSONRPC: "2.0", ID: 1, Method: "slotSubscribe"}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	logger.Infof("Subscribed to slot notifications at %s", s.url)

	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var notif slotNotification
		if err := json.Unmarshal(message, &notif); err != nil {
			logger.Debugf("Ignoring unparseable websocket message: %v", err)
			continue
		}
		if notif.Method != "slotNotification" {
			// Subscription confirmations and other chatter.
			continue
		}
		s.observer(notif.Params.Result.Slot, time.Now())
	}
}

package mt5

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Checker-Finance/mt5-adapter/pkg/model"
)

// DealStream subscribes to the gateway's websocket feed of freshly closed
// deals. It is an optional complement to polling: the daemon uses it to
// react to closes between sync windows.
type DealStream struct {
	logger *zap.Logger
	wsURL  string
	out    chan model.DealRecord
}

func NewDealStream(logger *zap.Logger, wsURL string) *DealStream {
	return &DealStream{
		logger: logger,
		wsURL:  wsURL,
		out:    make(chan model.DealRecord, 64),
	}
}

// Deals returns the channel of streamed deals.
func (s *DealStream) Deals() <-chan model.DealRecord {
	return s.out
}

// Run connects and reads until the context is canceled, reconnecting with
// a fixed delay on any failure. The out channel is closed on return.
func (s *DealStream) Run(ctx context.Context) {
	defer close(s.out)
	for {
		if err := s.connectAndRead(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("deal stream disconnected, reconnecting", zap.Error(err))
		}
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return
		}
	}
}

func (s *DealStream) connectAndRead(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.logger.Info("deal stream connected", zap.String("url", s.wsURL))

	// Close the socket when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var dto dealDTO
		if err := json.Unmarshal(data, &dto); err != nil {
			s.logger.Warn("unparseable stream message", zap.Error(err))
			continue
		}
		select {
		case s.out <- dto.toModel():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

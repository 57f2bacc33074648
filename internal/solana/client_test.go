package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, handler func(method string, params []interface{}) (interface{}, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestClient_GetSlot(t *testing.T) {
	srv := rpcServer(t, func(method string, _ []interface{}) (interface{}, *rpcError) {
		assert.Equal(t, "getSlot", method)
		return uint64(123456789), nil
	})
	defer srv.Close()

	slot, err := NewClient(srv.URL).GetSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(123456789), slot)
}

func TestClient_GetSlotRPCError(t *testing.T) {
	srv := rpcServer(t, func(string, []interface{}) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -32005, Message: "node is behind"}
	})
	defer srv.Close()

	_, err := NewClient(srv.URL).GetSlot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node is behind")
}

func TestClient_RecentPrioritizationFees(t *testing.T) {
	srv := rpcServer(t, func(method string, _ []interface{}) (interface{}, *rpcError) {
		assert.Equal(t, "getRecentPrioritizationFees", method)
		return []map[string]uint64{
			{"slot": 100, "prioritizationFee": 5_000},
			{"slot": 101, "prioritizationFee": 12_000},
		}, nil
	})
	defer srv.Close()

	fees, err := NewClient(srv.URL).RecentPrioritizationFees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{5_000, 12_000}, fees)
}

func TestClient_SimulateTransaction(t *testing.T) {
	srv := rpcServer(t, func(method string, params []interface{}) (interface{}, *rpcError) {
		assert.Equal(t, "simulateTransaction", method)
		require.Len(t, params, 2)
		assert.Equal(t, "dHgtYnl0ZXM=", params[0])
		return map[string]interface{}{
			"value": map[string]interface{}{
				"err":           nil,
				"logs":          []string{"Program log: ok"},
				"unitsConsumed": 45_000,
			},
		}, nil
	})
	defer srv.Close()

	result, err := NewClient(srv.URL).SimulateTransaction(context.Background(), "dHgtYnl0ZXM=")
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, uint64(45_000), result.UnitsConsumed)
	assert.Equal(t, []string{"Program log: ok"}, result.Logs)
}

func TestClient_SimulateTransactionFailure(t *testing.T) {
	srv := rpcServer(t, func(string, []interface{}) (interface{}, *rpcError) {
		return map[string]interface{}{
			"value": map[string]interface{}{
				"err":  map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
				"logs": []string{"Program log: slippage exceeded"},
			},
		}, nil
	})
	defer srv.Close()

	result, err := NewClient(srv.URL).SimulateTransaction(context.Background(), "dHg=")
	require.NoError(t, err)
	assert.True(t, result.Failed())
}

func TestClient_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetSlot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestSlotSubscriber_ReceivesNotifications(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		// Expect the subscribe request first.
		var req rpcRequest
		require.NoError(t, conn.ReadJSON(&req))
		assert.Equal(t, "slotSubscribe", req.Method)
		require.NoError(t, conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": 23}))

		for slot := uint64(100); slot < 103; slot++ {
			require.NoError(t, conn.WriteJSON(map[string]interface{}{
				"method": "slotNotification",
				"params": map[string]interface{}{"result": map[string]interface{}{"slot": slot}},
			}))
		}
		// Keep the connection open until the client goes away.
		conn.ReadMessage()
	}))
	defer srv.Close()

	var latest atomic.Uint64
	sub := NewSlotSubscriber("ws"+strings.TrimPrefix(srv.URL, "http"), func(slot uint64, _ time.Time) {
		latest.Store(slot)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sub.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return latest.Load() == 102
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

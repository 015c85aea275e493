package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SanketOodles/wa-automation-backend/internal/pairing"
	"github.com/SanketOodles/wa-automation-backend/internal/waclient"
)

// logoutBridge sends a QR and then a disconnect, keeps the socket open and
// closes hungUp once the service side closes it.
func logoutBridge(t *testing.T, hungUp chan struct{}) *httptest.Server {
	t.Helper()
	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteJSON(waclient.Frame{Type: waclient.FrameQR, Data: []byte(`"2@bridge"`)})
		_ = conn.WriteJSON(waclient.Frame{Type: waclient.FrameDisconnected, Data: []byte(`"LOGOUT"`)})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(hungUp)
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newBridgePairing(t *testing.T, bridgeURL string) (*PairingService, *pairing.Registry) {
	t.Helper()
	store := new(mockPairingStore)
	store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(21), nil)
	store.On("FindByID", mock.Anything, int64(21)).Return(nil, nil)

	registry := pairing.NewRegistry()
	dialer := waclient.NewDialer("ws"+strings.TrimPrefix(bridgeURL, "http"), time.Second)
	svc := NewPairingService(registry, dialer, pairing.NewWaiter(50, 10*time.Millisecond), store, nil, PairingConfig{
		DefaultOrgID:    1,
		DefaultLocation: "Gurugram",
		TeardownTimeout: time.Second,
	})
	return svc, registry
}

func waitHangUp(t *testing.T, hungUp <-chan struct{}) {
	t.Helper()
	select {
	case <-hungUp:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge connection still open after the session was removed")
	}
}

func TestLoggedOutSessionClosesBridgeConnection(t *testing.T) {
	t.Run("on disconnect", func(t *testing.T) {
		hungUp := make(chan struct{})
		svc, registry := newBridgePairing(t, logoutBridge(t, hungUp).URL)

		started, err := svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
		require.NoError(t, err)

		session, ok := registry.Get(started.SessionID)
		require.True(t, ok)
		require.Eventually(t, func() bool {
			return session.State() == pairing.StateDisconnected
		}, 2*time.Second, 10*time.Millisecond)

		result, err := svc.Disconnect(context.Background(), started.SessionID)
		require.NoError(t, err)
		assert.True(t, result.AlreadyDisconnected)
		assert.Equal(t, 0, registry.Len())

		waitHangUp(t, hungUp)
	})

	t.Run("on sweep", func(t *testing.T) {
		hungUp := make(chan struct{})
		svc, registry := newBridgePairing(t, logoutBridge(t, hungUp).URL)

		started, err := svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
		require.NoError(t, err)

		session, ok := registry.Get(started.SessionID)
		require.True(t, ok)
		require.Eventually(t, func() bool {
			return session.State() == pairing.StateDisconnected
		}, 2*time.Second, 10*time.Millisecond)

		assert.Equal(t, 1, svc.SweepDisconnected(context.Background(), time.Now().Add(time.Minute)))
		waitHangUp(t, hungUp)
	})
}

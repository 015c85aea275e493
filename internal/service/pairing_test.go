package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SanketOodles/wa-automation-backend/internal/errors"
	"github.com/SanketOodles/wa-automation-backend/internal/model"
	"github.com/SanketOodles/wa-automation-backend/internal/pairing"
)

type mockPairingStore struct {
	mock.Mock
}

func (m *mockPairingStore) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockPairingStore) UpdateStatus(ctx context.Context, id int64, status model.AccountStatus, updatedBy *int64) (*model.Account, error) {
	args := m.Called(ctx, id, status, updatedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *mockPairingStore) Create(ctx context.Context, params model.CreateAccountParams) (*model.Account, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

type fakeClient struct {
	mu         sync.Mutex
	info       *pairing.ClientInfo
	destroyErr error
	destroyed  int
}

func (c *fakeClient) Info() *pairing.ClientInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

func (c *fakeClient) Destroy(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed++
	return c.destroyErr
}

// fakeFactory opens fakeClients. When qrPayload is set the sink receives it
// immediately, as a bridge that already has a code would.
type fakeFactory struct {
	mu        sync.Mutex
	qrPayload string
	openErr   error
	clients   []*fakeClient
	sinks     []pairing.EventSink
}

func (f *fakeFactory) Open(ctx context.Context, sessionID, ownerID, accountID string, sink pairing.EventSink) (pairing.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	c := &fakeClient{}
	f.clients = append(f.clients, c)
	f.sinks = append(f.sinks, sink)
	if f.qrPayload != "" {
		sink.HandleQR(f.qrPayload)
	}
	return c, nil
}

func (f *fakeFactory) last() (*fakeClient, pairing.EventSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[len(f.clients)-1], f.sinks[len(f.sinks)-1]
}

type testPairing struct {
	svc      *PairingService
	registry *pairing.Registry
	factory  *fakeFactory
	store    *mockPairingStore
}

func newTestPairing(maxAttempts int) *testPairing {
	registry := pairing.NewRegistry()
	factory := &fakeFactory{qrPayload: "2@payload"}
	store := new(mockPairingStore)

	waiter := pairing.NewWaiter(maxAttempts, time.Second)
	waiter.After = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}

	svc := NewPairingService(registry, factory, waiter, store, nil, PairingConfig{
		DefaultOrgID:    1,
		DefaultLocation: "Gurugram",
	})
	svc.render = func(payload string) (string, error) { return "data:image/png;base64," + payload, nil }

	return &testPairing{svc: svc, registry: registry, factory: factory, store: store}
}

func pendingAccount(id int64) *model.Account {
	return &model.Account{ID: id, OrgID: 1, Status: model.AccountStatusPending}
}

func TestStartPairing(t *testing.T) {
	t.Run("creates pending account with defaults", func(t *testing.T) {
		tp := newTestPairing(30)
		tp.store.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateAccountParams) bool {
			return p.OrgID == 1 &&
				p.Status == model.AccountStatusPending &&
				*p.Location == "Gurugram" &&
				*p.IPAddress == "10.0.0.1" &&
				*p.QRSession == "data:image/png;base64,2@payload"
		})).Return(pendingAccount(10), nil)

		result, err := tp.svc.StartPairing(context.Background(), StartPairingParams{
			RequesterIP: "10.0.0.1",
			Initialize:  true,
		})
		require.NoError(t, err)

		assert.True(t, result.Stored)
		assert.Equal(t, int64(10), result.Account.ID)
		assert.Equal(t, "2@payload", result.QRData)
		assert.Equal(t, 1, tp.registry.Len())

		bound, ok := tp.registry.Current().BoundAccount()
		assert.True(t, ok)
		assert.Equal(t, int64(10), bound)
		tp.store.AssertExpectations(t)
	})

	t.Run("prior sessions are kept", func(t *testing.T) {
		tp := newTestPairing(30)
		tp.store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(1), nil).Once()
		tp.store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(2), nil).Once()

		first, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
		require.NoError(t, err)
		second, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
		require.NoError(t, err)

		assert.NotEqual(t, first.SessionID, second.SessionID)
		assert.Equal(t, 2, tp.registry.Len())
		assert.Equal(t, second.SessionID, tp.registry.Current().ID())
	})

	t.Run("timeout creates no account", func(t *testing.T) {
		tp := newTestPairing(3)
		tp.factory.qrPayload = ""

		_, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeQRTimeout, apperrors.GetCode(err))
		tp.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("bridge failure removes the session", func(t *testing.T) {
		tp := newTestPairing(30)
		tp.factory.openErr = errors.New("connection refused")

		_, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeExternal, apperrors.GetCode(err))
		assert.Equal(t, 0, tp.registry.Len())
	})

	t.Run("render failure is internal", func(t *testing.T) {
		tp := newTestPairing(30)
		tp.svc.render = func(string) (string, error) { return "", errors.New("too long") }

		_, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
		assert.Equal(t, apperrors.ErrCodeInternal, apperrors.GetCode(err))
	})

	t.Run("persistence failure still returns the qr", func(t *testing.T) {
		tp := newTestPairing(30)
		tp.store.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		result, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
		require.NoError(t, err)
		assert.False(t, result.Stored)
		assert.Equal(t, "data:image/png;base64,2@payload", result.QRImage)
		assert.Equal(t, apperrors.ErrCodePersistenceFailed, apperrors.GetCode(result.StoreError))
		assert.Equal(t, 1, tp.registry.Len())
	})

	t.Run("reuse without a current session is not found", func(t *testing.T) {
		tp := newTestPairing(30)
		_, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: false})
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})

	t.Run("reuse returns the bound account", func(t *testing.T) {
		tp := newTestPairing(30)
		tp.store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(5), nil).Once()
		tp.store.On("FindByID", mock.Anything, int64(5)).Return(pendingAccount(5), nil)

		first, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
		require.NoError(t, err)

		again, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: false})
		require.NoError(t, err)
		assert.True(t, again.Reused)
		assert.Equal(t, first.SessionID, again.SessionID)
		assert.Equal(t, int64(5), again.Account.ID)
		tp.store.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("reuse of a finished handshake is a conflict", func(t *testing.T) {
		for _, finish := range []func(pairing.EventSink){
			func(sink pairing.EventSink) { sink.HandleAuthenticated() },
			func(sink pairing.EventSink) { sink.HandleDisconnected("LOGOUT") },
		} {
			tp := newTestPairing(30)
			tp.store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(6), nil).Once()
			tp.store.On("FindByID", mock.Anything, int64(6)).Return(nil, nil)

			_, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
			require.NoError(t, err)
			_, sink := tp.factory.last()
			finish(sink)

			_, err = tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: false})
			assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))
			tp.store.AssertNumberOfCalls(t, "Create", 1)
		}
	})

	t.Run("cancelled request stops waiting", func(t *testing.T) {
		tp := newTestPairing(30)
		tp.factory.qrPayload = ""
		tp.svc.waiter.After = func(time.Duration) <-chan time.Time { return make(chan time.Time) }

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := tp.svc.StartPairing(ctx, StartPairingParams{Initialize: true})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPairingLifecycleReconciles(t *testing.T) {
	tp := newTestPairing(30)
	actor := int64(3)
	tp.store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(8), nil)
	tp.store.On("FindByID", mock.Anything, int64(8)).Return(pendingAccount(8), nil)
	tp.store.On("UpdateStatus", mock.Anything, int64(8), model.AccountStatusActive, (*int64)(nil)).
		Return(&model.Account{ID: 8, Status: model.AccountStatusActive}, nil)
	tp.store.On("UpdateStatus", mock.Anything, int64(8), model.AccountStatusDisconnected, &actor).
		Return(&model.Account{ID: 8, Status: model.AccountStatusDisconnected}, nil)

	_, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true, RequestedBy: &actor})
	require.NoError(t, err)

	_, sink := tp.factory.last()
	sink.HandleAuthenticated()
	sink.HandleDisconnected("LOGOUT")

	tp.store.AssertExpectations(t)
}

func TestGetStatus(t *testing.T) {
	tp := newTestPairing(30)

	report := tp.svc.GetStatus()
	assert.Equal(t, StatusNoClients, report.Status)
	assert.Empty(t, report.Clients)

	tp.store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(1), nil)
	_, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
	require.NoError(t, err)

	report = tp.svc.GetStatus()
	require.Len(t, report.Clients, 1)
	assert.Equal(t, ConnectionConnecting, report.Clients[0].Status)

	client, _ := tp.factory.last()
	client.mu.Lock()
	client.info = &pairing.ClientInfo{WID: "911234567890@c.us"}
	client.mu.Unlock()

	report = tp.svc.GetStatus()
	assert.Equal(t, ConnectionConnected, report.Clients[0].Status)
	assert.Equal(t, "911234567890@c.us", report.Clients[0].Info.WID)
}

func TestDisconnect(t *testing.T) {
	start := func(t *testing.T, tp *testPairing, n int) []string {
		t.Helper()
		tp.store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(1), nil)
		var ids []string
		for i := 0; i < n; i++ {
			res, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
			require.NoError(t, err)
			ids = append(ids, res.SessionID)
		}
		return ids
	}

	t.Run("no id lists sessions and changes nothing", func(t *testing.T) {
		tp := newTestPairing(30)
		ids := start(t, tp, 1)

		result, err := tp.svc.Disconnect(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, result.Sessions, 1)
		assert.Equal(t, ids[0], result.Sessions[0].SessionID)
		assert.Equal(t, 1, tp.registry.Len())
	})

	t.Run("unknown id is not found with listing", func(t *testing.T) {
		tp := newTestPairing(30)
		start(t, tp, 1)

		_, err := tp.svc.Disconnect(context.Background(), "missing")
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
		assert.NotNil(t, appErr.Details)
	})

	t.Run("removing current falls back to previous", func(t *testing.T) {
		tp := newTestPairing(30)
		ids := start(t, tp, 3)

		result, err := tp.svc.Disconnect(context.Background(), ids[2])
		require.NoError(t, err)
		assert.Len(t, result.Sessions, 2)
		assert.Equal(t, ids[1], tp.registry.Current().ID())

		client := tp.factory.clients[2]
		assert.Equal(t, 1, client.destroyed)
	})

	t.Run("teardown failure keeps the session", func(t *testing.T) {
		tp := newTestPairing(30)
		ids := start(t, tp, 1)
		tp.factory.clients[0].destroyErr = errors.New("browser hung")

		_, err := tp.svc.Disconnect(context.Background(), ids[0])
		assert.Equal(t, apperrors.ErrCodeTeardownFailed, apperrors.GetCode(err))
		assert.Equal(t, 1, tp.registry.Len())

		s, _ := tp.registry.Get(ids[0])
		assert.NotEqual(t, pairing.StateDisconnected, s.State())
	})

	t.Run("already disconnected session is removed and its client released", func(t *testing.T) {
		tp := newTestPairing(30)
		ids := start(t, tp, 1)
		tp.store.On("FindByID", mock.Anything, int64(1)).Return(nil, nil)

		_, sink := tp.factory.last()
		sink.HandleDisconnected("NAVIGATION")

		result, err := tp.svc.Disconnect(context.Background(), ids[0])
		require.NoError(t, err)
		assert.True(t, result.AlreadyDisconnected)
		assert.Equal(t, 0, tp.registry.Len())
		assert.Equal(t, 1, tp.factory.clients[0].destroyed)
	})

	t.Run("release failure still succeeds", func(t *testing.T) {
		tp := newTestPairing(30)
		ids := start(t, tp, 1)
		tp.store.On("FindByID", mock.Anything, int64(1)).Return(nil, nil)
		tp.factory.clients[0].destroyErr = errors.New("already gone")

		_, sink := tp.factory.last()
		sink.HandleDisconnected("LOGOUT")

		result, err := tp.svc.Disconnect(context.Background(), ids[0])
		require.NoError(t, err)
		assert.True(t, result.AlreadyDisconnected)
		assert.Equal(t, 0, tp.registry.Len())
	})
}

func TestDisconnectAccount(t *testing.T) {
	tp := newTestPairing(30)
	tp.store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(4), nil)
	tp.store.On("FindByID", mock.Anything, int64(4)).Return(nil, nil)

	_, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
	require.NoError(t, err)

	require.NoError(t, tp.svc.DisconnectAccount(context.Background(), 99))
	assert.Equal(t, 1, tp.registry.Len())

	require.NoError(t, tp.svc.DisconnectAccount(context.Background(), 4))
	assert.Equal(t, 0, tp.registry.Len())
	assert.Equal(t, 1, tp.factory.clients[0].destroyed)
}

func TestDisconnectAccountReleasesDisconnectedSession(t *testing.T) {
	tp := newTestPairing(30)
	tp.store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(4), nil)
	tp.store.On("FindByID", mock.Anything, int64(4)).Return(nil, nil)

	_, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
	require.NoError(t, err)
	_, sink := tp.factory.last()
	sink.HandleDisconnected("LOGOUT")

	require.NoError(t, tp.svc.DisconnectAccount(context.Background(), 4))
	assert.Equal(t, 0, tp.registry.Len())
	assert.Equal(t, 1, tp.factory.clients[0].destroyed)
}

func TestSweeps(t *testing.T) {
	t.Run("sweep drops self-disconnected sessions", func(t *testing.T) {
		tp := newTestPairing(30)
		tp.store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(1), nil)
		tp.store.On("FindByID", mock.Anything, int64(1)).Return(nil, nil)

		_, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
		require.NoError(t, err)
		_, sink := tp.factory.last()
		sink.HandleDisconnected("LOGOUT")

		ctx := context.Background()
		assert.Equal(t, 0, tp.svc.SweepDisconnected(ctx, time.Now().Add(-time.Minute)))
		assert.Equal(t, 0, tp.factory.clients[0].destroyed)

		assert.Equal(t, 1, tp.svc.SweepDisconnected(ctx, time.Now().Add(time.Minute)))
		assert.Equal(t, 0, tp.registry.Len())
		assert.Equal(t, 1, tp.factory.clients[0].destroyed)
	})

	t.Run("expire tears down unpaired sessions only", func(t *testing.T) {
		tp := newTestPairing(30)
		tp.store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(1), nil).Once()
		tp.store.On("Create", mock.Anything, mock.Anything).Return(pendingAccount(2), nil).Once()
		tp.store.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)

		_, err := tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
		require.NoError(t, err)
		_, sink := tp.factory.last()
		sink.HandleAuthenticated()

		_, err = tp.svc.StartPairing(context.Background(), StartPairingParams{Initialize: true})
		require.NoError(t, err)

		assert.ElementsMatch(t, []int64{1, 2}, tp.svc.LiveAccountIDs())

		n, err := tp.svc.ExpireUnpaired(context.Background(), time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 1, tp.registry.Len())
		assert.Equal(t, []int64{1}, tp.svc.LiveAccountIDs())
	})
}

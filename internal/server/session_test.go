package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oriumgames/alphacore/internal/populate"
	"github.com/oriumgames/alphacore/internal/proto"
	"github.com/oriumgames/alphacore/internal/world"
)

func newTestStore(t *testing.T) *world.Store {
	t.Helper()
	store, err := world.NewStore(t.TempDir(), 1, world.WithPopulators(populate.Flatland{StoneHeight: 4}))
	require.NoError(t, err)
	return store
}

func newTestSessionWithStore(t *testing.T, store *world.Store) (*Session, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	sess := &Session{
		id:    uuid.New(),
		conn:  server,
		store: store,
		log:   logrus.NewEntry(logrus.StandardLogger()),
		spawn: [3]int32{0, 64, 0},
	}
	return sess, client
}

func newTestSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	return newTestSessionWithStore(t, newTestStore(t))
}

func TestLoginTriggersHandshakeAndSpawnAndChunks(t *testing.T) {
	sess, client := newTestSession(t)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.run(ctx)

	login, err := proto.Build(1, proto.Record{"protocol": uint32(14), "username": "steve", "unused": ""})
	require.NoError(t, err)
	_, err = client.Write(login)
	require.NoError(t, err)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1<<23)
	total := 0
	for total < len(buf) {
		_ = client.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
		n, err := client.Read(buf[total:])
		total += n
		if err != nil {
			break
		}
	}
	require.Greater(t, total, 0)

	packets, leftover, err := proto.ParseStream(buf[:total])
	require.NoError(t, err)
	assert.Empty(t, leftover)
	require.NotEmpty(t, packets)
	assert.Equal(t, byte(2), packets[0].Tag)
	assert.Equal(t, byte(6), packets[1].Tag)
}

func TestLoginLoadsPersistedPlayerPosition(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SavePlayer("steve", world.PlayerData{Position: cube.Pos{5, 70, 9}}))

	sess, client := newTestSessionWithStore(t, store)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.run(ctx)

	login, err := proto.Build(1, proto.Record{"protocol": uint32(14), "username": "steve", "unused": ""})
	require.NoError(t, err)
	_, err = client.Write(login)
	require.NoError(t, err)

	buf := make([]byte, 1<<20)
	total := 0
	for total < len(buf) {
		_ = client.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
		n, err := client.Read(buf[total:])
		total += n
		if err != nil {
			break
		}
	}
	require.Greater(t, total, 0)

	packets, _, err := proto.ParseStream(buf[:total])
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(packets), 2)
	assert.Equal(t, byte(6), packets[1].Tag)
	assert.Equal(t, uint32(5), packets[1].Fields["x"])
	assert.Equal(t, uint32(70), packets[1].Fields["y"])
	assert.Equal(t, uint32(9), packets[1].Fields["z"])
}

func TestDisconnectPersistsPlayerPosition(t *testing.T) {
	store := newTestStore(t)
	sess, client := newTestSessionWithStore(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.run(ctx)

	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		buf := make([]byte, 1<<20)
		for {
			_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, err := client.Read(buf); err != nil {
				return
			}
		}
	}()

	login, err := proto.Build(1, proto.Record{"protocol": uint32(14), "username": "alex", "unused": ""})
	require.NoError(t, err)
	_, err = client.Write(login)
	require.NoError(t, err)

	pos, err := proto.Build(11, proto.Record{
		"position": proto.Record{"x": float64(12), "y": float64(65), "stance": float64(66), "z": float64(-3)},
		"flying":   proto.Record{"flying": uint8(0)},
	})
	require.NoError(t, err)
	_, err = client.Write(pos)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	client.Close()
	<-drainDone

	var p world.PlayerData
	require.Eventually(t, func() bool {
		loaded, ok, err := store.LoadPlayer("alex")
		if err != nil || !ok {
			return false
		}
		p = loaded
		return true
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, cube.Pos{12, 65, -3}, p.Position)
}

func TestPingIsEchoed(t *testing.T) {
	sess, client := newTestSession(t)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.run(ctx)

	_, err := client.Write([]byte{0})
	require.NoError(t, err)

	buf := make([]byte, 1)
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte(0), buf[0])
}

// Package server implements the TCP acceptor loop and per-connection
// session: the network-facing half of spec.md §6, grounded on the
// teacher's background-goroutine patterns (provider's save loop) adapted
// to a per-connection accept/serve loop instead of a single saver.
package server

import (
	"context"
	"net"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oriumgames/alphacore/internal/world"
)

// Server accepts TCP connections and spins up a Session for each.
type Server struct {
	addr   string
	store  *world.Store
	log    *logrus.Entry
	spawnX int32
	spawnY int32
	spawnZ int32
}

// New constructs a Server bound to addr, serving chunks from store. The
// default spawn point is sourced from the store's level.dat metadata.
func New(addr string, store *world.Store, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	spawn := store.Metadata().Spawn
	return &Server{
		addr:   addr,
		store:  store,
		log:    log,
		spawnX: int32(spawn.X()),
		spawnY: int32(spawn.Y()),
		spawnZ: int32(spawn.Z()),
	}
}

// Serve listens on s.addr and accepts connections until ctx is cancelled
// or the listener errors.
func (s *Server) Serve(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.log.WithField("addr", s.addr).Info("listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		sess := &Session{
			id:    uuid.New(),
			conn:  conn,
			store: s.store,
			log:   s.log.WithField("session", conn.RemoteAddr().String()),
			spawn: [3]int32{s.spawnX, s.spawnY, s.spawnZ},
		}
		go sess.run(ctx)
	}
}

package server

import (
	"bytes"
	"context"
	"net"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oriumgames/alphacore/internal/proto"
	"github.com/oriumgames/alphacore/internal/world"
)

const viewRadius = 3 // chunks

// Session is one client connection: a read loop that opportunistically
// parses packets from the socket and dispatches them, per spec.md §6.1.
type Session struct {
	id       uuid.UUID
	conn     net.Conn
	store    *world.Store
	log      *logrus.Entry
	username string
	spawn    [3]int32

	pos       [3]int32
	inventory []world.InventorySlot
}

func (s *Session) run(ctx context.Context) {
	defer s.conn.Close()
	defer s.persistOnDisconnect()

	pending := make([]byte, 0, 4096)
	buf := make([]byte, 4096)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
		}
		if err != nil {
			return
		}

		packets, leftover, perr := proto.ParseStream(pending)
		pending = append(pending[:0], leftover...)

		for _, pkt := range packets {
			if herr := s.handle(ctx, pkt); herr != nil {
				s.fail(herr)
				return
			}
		}
		if perr != nil {
			// UnknownPacket or SchemaMismatch: the stream is unrecoverable.
			s.fail(perr)
			return
		}
	}
}

func (s *Session) fail(err error) {
	s.log.WithError(err).Warn("closing connection on protocol error")
	_, _ = s.conn.Write(proto.MakeError(err.Error()))
}

func (s *Session) handle(ctx context.Context, pkt proto.Packet) error {
	switch pkt.Tag {
	case 0: // ping
		_, err := s.conn.Write([]byte{0})
		return err

	case 1: // login
		username, _ := pkt.Fields["username"].(string)
		s.username = username
		return s.onLogin(ctx)

	case 3: // chat
		s.log.WithField("message", pkt.Fields["message"]).Info("chat")
		return nil

	case 11: // position
		if pos, ok := extractPos(pkt); ok {
			s.pos = pos
		}
		return nil

	case 13: // position_look
		if pos, ok := extractPos(pkt); ok {
			s.pos = pos
		}
		return nil

	case 14: // digging
		x, _ := pkt.Fields["x"].(uint32)
		z, _ := pkt.Fields["z"].(uint32)
		return s.touchChunk(ctx, int32(x)>>4, int32(z)>>4)

	case 15: // build
		x, _ := pkt.Fields["x"].(uint32)
		z, _ := pkt.Fields["z"].(uint32)
		return s.touchChunk(ctx, int32(x)>>4, int32(z)>>4)

	default:
		return nil
	}
}

func (s *Session) onLogin(ctx context.Context) error {
	if p, ok, err := s.store.LoadPlayer(s.username); err != nil {
		return err
	} else if ok {
		s.spawn = [3]int32{int32(p.Position.X()), int32(p.Position.Y()), int32(p.Position.Z())}
		s.inventory = p.Inventory
	}
	s.pos = s.spawn

	handshake, err := proto.Build(2, proto.Record{"username": "-"})
	if err != nil {
		return err
	}
	spawn, err := proto.Build(6, proto.Record{
		"x": uint32(s.spawn[0]), "y": uint32(s.spawn[1]), "z": uint32(s.spawn[2]),
	})
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(append(handshake, spawn...)); err != nil {
		return err
	}

	cx, cz := s.spawn[0]>>4, s.spawn[2]>>4
	for dx := -viewRadius; dx <= viewRadius; dx++ {
		for dz := -viewRadius; dz <= viewRadius; dz++ {
			if err := s.touchChunk(ctx, cx+int32(dx), cz+int32(dz)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Session) touchChunk(ctx context.Context, cx, cz int32) error {
	c, err := s.store.RequestChunk(ctx, cx, cz)
	if err != nil {
		return err
	}

	enable, err := proto.Build(50, proto.Record{"x": cx, "z": cz, "enabled": uint8(1)})
	if err != nil {
		return err
	}

	data := new(bytes.Buffer)
	data.Write(c.Blocks[:])
	data.Write(c.Data[:])
	data.Write(c.BlockLight[:])
	data.Write(c.SkyLight[:])

	chunkPkt, err := proto.Build(51, proto.Record{
		"x": cx, "y": uint16(0), "z": cz,
		"xs": uint8(15), "ys": uint8(127), "zs": uint8(15),
		"data": data.Bytes(),
	})
	if err != nil {
		return err
	}

	_, err = s.conn.Write(append(enable, chunkPkt...))
	return err
}

// persistOnDisconnect saves the session's last known position and
// inventory, per spec.md §4.E's save_player. A session that never
// completed login has nothing to persist.
func (s *Session) persistOnDisconnect() {
	if s.username == "" {
		return
	}
	p := world.PlayerData{
		Position:  cube.Pos{int(s.pos[0]), int(s.pos[1]), int(s.pos[2])},
		Inventory: s.inventory,
	}
	if err := s.store.SavePlayer(s.username, p); err != nil {
		s.log.WithError(err).Warn("failed to save player state on disconnect")
	}
}

// extractPos pulls the nested "position" record's x/y/z out of a position
// or position_look packet.
func extractPos(pkt proto.Packet) ([3]int32, bool) {
	posRec, ok := pkt.Fields["position"].(proto.Record)
	if !ok {
		return [3]int32{}, false
	}
	x, _ := posRec["x"].(float64)
	y, _ := posRec["y"].(float64)
	z, _ := posRec["z"].(float64)
	return [3]int32{int32(x), int32(y), int32(z)}, true
}

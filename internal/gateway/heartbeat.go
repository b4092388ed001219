package gateway

import (
	"context"
	"errors"
	"time"
)

func (g *Gateway) startHeartbeat(ctx context.Context, conn Conn, interval time.Duration) {
	heartbeatCtx, cancel := context.WithCancel(ctx)

	g.mutex.Lock()
	if g.heartbeatCancel != nil {
		g.heartbeatCancel()
	}
	g.heartbeatCancel = cancel
	g.awaitingAck = false
	g.missedHeartbeats = 0
	g.mutex.Unlock()

	g.sugar.Debugf("Sending heartbeats every %s", interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-heartbeatCtx.Done():
				return
			case <-ticker.C:
				err := g.heartbeat(conn)
				if errors.Is(err, errZombieConnection) {
					// the read loop notices the closed transport and reconnects
					conn.Close()
					return
				} else if err != nil {
					g.sugar.Warnf("Couldn't send heartbeat: %v", err)
				}
			}
		}
	}()
}

func (g *Gateway) stopHeartbeat() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.heartbeatCancel != nil {
		g.heartbeatCancel()
		g.heartbeatCancel = nil
	}
	g.awaitingAck = false
	g.missedHeartbeats = 0
}

func (g *Gateway) heartbeat(conn Conn) error {
	g.mutex.Lock()
	if g.awaitingAck {
		g.missedHeartbeats++
		if g.settings.MaxMissedHeartbeats > 0 && g.missedHeartbeats >= g.settings.MaxMissedHeartbeats {
			g.zombie = true
			missed := g.missedHeartbeats
			g.mutex.Unlock()

			g.sugar.Warnf("Gateway missed %d heartbeat acknowledgements, dropping connection", missed)
			return errZombieConnection
		}
	}
	g.awaitingAck = true
	g.lastHeartbeat = time.Now()
	sequence := g.sequenceValue()
	g.mutex.Unlock()

	return send(conn, OpHeartbeat, sequence)
}

// replyHeartbeat answers a heartbeat the server asked for. It is not a
// scheduled beat, so it leaves the missed acknowledgement count alone.
func (g *Gateway) replyHeartbeat(conn Conn) error {
	g.mutex.Lock()
	sequence := g.sequenceValue()
	g.mutex.Unlock()

	return send(conn, OpHeartbeat, sequence)
}

func (g *Gateway) receiveHeartbeatAck() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.lastHeartbeat.IsZero() {
		g.latency = time.Since(g.lastHeartbeat)
		g.measured = true
	}
	g.awaitingAck = false
	g.missedHeartbeats = 0
}

func (g *Gateway) isZombie() bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	return g.zombie
}

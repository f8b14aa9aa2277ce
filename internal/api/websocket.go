package api

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/reachd/internal/reachability"
)

// handleEvents streams a target's snapshots over a websocket: the current
// one first, then every change, until either side goes away.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		target = reachability.DefaultRouteName
	}
	m, ok := s.monitor(target)
	if !ok {
		http.Error(w, "No such target", http.StatusNotFound)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.WithError(err).Error("Failed to accept websocket client")
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "closing")

	clientID := uuid.NewString()
	logger := log.WithFields(log.Fields{
		"client": clientID,
		"target": target,
	})
	logger.Info("Event stream opened")
	defer logger.Info("Event stream closed")

	// Reads are only used to notice the client going away.
	ctx := c.CloseRead(r.Context())

	updates, cancel := m.Updates()
	defer cancel()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				c.Close(websocket.StatusGoingAway, "monitor stopped")
				return
			}
			seq++
			b, err := json.Marshal(ReachabilityEvent{
				ClientID: clientID,
				Seq:      seq,
				Status:   newTargetStatus(target, m.State(), snap),
			})
			if err != nil {
				logger.WithError(err).Error("Failed to encode event")
				return
			}
			if err := c.Write(ctx, websocket.MessageText, b); err != nil {
				logger.WithError(err).Debug("Failed to write event")
				return
			}
		}
	}
}

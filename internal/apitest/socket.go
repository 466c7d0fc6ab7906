package apitest

import (
	"net/http"

	"github.com/golang/glog"
	"github.com/safar/storefront/internal/models"
)

const (
	NotificationsNamespace = "notifications"
	EventNotificationNew   = "notification:new"
)

type envelope struct {
	Event     string              `json:"event"`
	Namespace string              `json:"namespace"`
	Data      notificationPayload `json:"data"`
}

type notificationPayload struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	OrderID   string `json:"orderId,omitempty"`
	CreatedAt string `json:"createdAt"`
	Read      bool   `json:"read"`
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFor(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if ns := r.URL.Query().Get("namespace"); ns != "" && ns != NotificationsNamespace {
		respondError(w, http.StatusNotFound, "Unknown namespace")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Infof("[apitest]upgrade: %v", err)
		return
	}
	sock := &socket{conn: conn}

	s.mu.Lock()
	if s.sockets[userID] == nil {
		s.sockets[userID] = make(map[*socket]struct{})
	}
	s.sockets[userID][sock] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sockets[userID], sock)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Push stores n for userID and delivers it to every open socket of the user.
func (s *Server) Push(userID string, n models.Notification) models.Notification {
	s.mu.Lock()
	n = s.storeNotificationLocked(userID, n)
	s.mu.Unlock()
	s.broadcast(userID, n)
	return n
}

// Redeliver sends an already stored notification again without storing it.
func (s *Server) Redeliver(userID string, n models.Notification) {
	s.broadcast(userID, n)
}

func (s *Server) Subscribers(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sockets[userID])
}

// DropSockets closes every open socket, forcing clients to reconnect.
func (s *Server) DropSockets() {
	s.mu.Lock()
	var socks []*socket
	for _, set := range s.sockets {
		for sock := range set {
			socks = append(socks, sock)
		}
	}
	s.mu.Unlock()

	for _, sock := range socks {
		sock.conn.Close()
	}
}

func (s *Server) broadcast(userID string, n models.Notification) {
	s.mu.Lock()
	socks := make([]*socket, 0, len(s.sockets[userID]))
	for sock := range s.sockets[userID] {
		socks = append(socks, sock)
	}
	s.mu.Unlock()

	msg := envelope{
		Event:     EventNotificationNew,
		Namespace: NotificationsNamespace,
		Data: notificationPayload{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			OrderID:   n.OrderID,
			CreatedAt: n.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
			Read:      n.Read,
		},
	}
	for _, sock := range socks {
		if err := sock.writeJSON(msg); err != nil {
			glog.Infof("[apitest]push to %s: %v", userID, err)
		}
	}
}

package sse

import (
	"encoding/json"
	"sync"
	"time"

	"medvault/internal/logger"
)

// Event types emitted while a scan runs.
const (
	EventScanProgress  = "scan_progress"
	EventScanDocument  = "scan_document"
	EventScanCompleted = "scan_completed"
	EventScanError     = "scan_error"
)

// SSEManager manages Server-Sent Event connections, keyed by user.
type SSEManager struct {
	clients    map[string]map[chan []byte]bool
	clientsMux sync.RWMutex
	logger     *logger.Logger
}

func NewSSEManager(logger *logger.Logger) *SSEManager {
	return &SSEManager{
		clients: make(map[string]map[chan []byte]bool),
		logger:  logger,
	}
}

// AddClient registers a new connection for a user and returns its channel.
func (s *SSEManager) AddClient(userID string) chan []byte {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	if s.clients[userID] == nil {
		s.clients[userID] = make(map[chan []byte]bool)
	}

	channel := make(chan []byte, 16)
	s.clients[userID][channel] = true

	s.logger.Debug("Added SSE client for user:", userID, "total clients:", len(s.clients[userID]))
	return channel
}

// RemoveClient unregisters a connection and closes its channel.
func (s *SSEManager) RemoveClient(userID string, channel chan []byte) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	userClients, exists := s.clients[userID]
	if !exists {
		return
	}
	if _, ok := userClients[channel]; !ok {
		return
	}

	delete(userClients, channel)
	close(channel)

	if len(userClients) == 0 {
		delete(s.clients, userID)
	}
	s.logger.Debug("Removed SSE client for user:", userID)
}

// BroadcastToUser sends an event to every open connection of one user.
// Slow or gone consumers are skipped instead of blocking the scan.
func (s *SSEManager) BroadcastToUser(userID string, eventType string, data interface{}) {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()

	userClients, exists := s.clients[userID]
	if !exists {
		return
	}

	event := map[string]interface{}{
		"type": eventType,
		"data": data,
		"time": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal broadcast event:", err)
		return
	}

	for channel := range userClients {
		select {
		case channel <- jsonData:
		default:
			s.logger.Warn("Dropped SSE event for slow client of user:", userID)
		}
	}
}

// Close shuts down all client channels.
func (s *SSEManager) Close() {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()

	for userID, userClients := range s.clients {
		for channel := range userClients {
			close(channel)
		}
		delete(s.clients, userID)
	}
}

// HasUserConnection checks if a user has active SSE connections.
func (s *SSEManager) HasUserConnection(userID string) bool {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()
	return len(s.clients[userID]) > 0
}

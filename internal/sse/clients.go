// Package sse keeps track of server-sent-event clients watching a page, so
// editor previews can reload when that page changes.
package sse

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/redux-content/internal/model"
)

var sseLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	sseLogger = l
}

type Client struct {
	Msg    chan string
	PageID model.PageID
}

func NewClient(pageID model.PageID) *Client {
	return &Client{Msg: make(chan string, 8), PageID: pageID}
}

type SSEClients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewSSEClients() *SSEClients {
	return &SSEClients{
		clients: make(map[*Client]bool),
	}
}

func (s *SSEClients) Add(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *SSEClients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client]; !ok {
		return
	}
	delete(s.clients, client)
	close(client.Msg)
}

func (s *SSEClients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast sends msg to every client of pageID. Slow clients miss messages
// rather than blocking the sender.
func (s *SSEClients) Broadcast(pageID model.PageID, msg string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		if client.PageID == pageID {
			select {
			case client.Msg <- msg:
			default:
				sseLogger.Warn().Str("page_id", string(pageID)).Msg("Dropped event for slow SSE client")
			}
		}
	}
}

// NotifyChange broadcasts change as JSON to the page's clients.
func (s *SSEClients) NotifyChange(change model.PageChange) {
	data, err := json.Marshal(change)
	if err != nil {
		sseLogger.Error().Err(err).Msg("Error encoding page change")
		return
	}
	s.Broadcast(change.PageID, string(data))
}

// CloseAll disconnects every client, ending their streams.
func (s *SSEClients) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		delete(s.clients, client)
		close(client.Msg)
	}
}

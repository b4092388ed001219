package store

import (
	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/snowflake"
	"cmp"
	"slices"
	"time"
)

// Summaries are copies taken under the read lock, safe to hand to other goroutines.

type ServerSummary struct {
	ID          snowflake.ID `json:"id"`
	Name        string       `json:"name"`
	OwnerID     snowflake.ID `json:"ownerID"`
	MemberCount int          `json:"memberCount"`
	Roles       int          `json:"roles"`
	Members     int          `json:"members"`
	CreatedAt   time.Time    `json:"createdAt"`

	Channels []ChannelSummary `json:"channels"`
}

type ChannelSummary struct {
	ID              snowflake.ID `json:"id"`
	Name            string       `json:"name"`
	Topic           string       `json:"topic"`
	Position        int          `json:"position"`
	CachedMessages  int          `json:"cachedMessages"`
	LatestMessageID snowflake.ID `json:"latestMessageID"`
}

type MessageSummary struct {
	ID       snowflake.ID `json:"id"`
	AuthorID snowflake.ID `json:"authorID"`
	Author   string       `json:"author"`
	Content  string       `json:"content"`
	Edited   bool         `json:"edited"`
	SentAt   time.Time    `json:"sentAt"`
}

func (s *Store) UserCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.users)
}

func (s *Store) Summaries() []ServerSummary {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	summaries := make([]ServerSummary, 0, len(s.servers))
	for _, server := range s.servers {
		summaries = append(summaries, summarizeServer(server))
	}
	slices.SortFunc(summaries, func(a, b ServerSummary) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return summaries
}

func (s *Store) Summary(serverID snowflake.ID) (ServerSummary, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	server, exists := s.servers[serverID]
	if !exists {
		return ServerSummary{}, false
	}
	return summarizeServer(server), true
}

func summarizeServer(server *models.Server) ServerSummary {
	summary := ServerSummary{
		ID:          server.ID,
		Name:        server.Name,
		OwnerID:     server.OwnerID,
		MemberCount: server.MemberCount,
		Roles:       len(server.Roles),
		Members:     len(server.Members),
		CreatedAt:   server.CreatedAt(),
		Channels:    make([]ChannelSummary, 0, len(server.Channels)),
	}

	for _, channel := range server.Channels {
		summary.Channels = append(summary.Channels, ChannelSummary{
			ID:              channel.ID,
			Name:            channel.Name,
			Topic:           channel.Topic,
			Position:        channel.Position,
			CachedMessages:  channel.Messages.Len(),
			LatestMessageID: channel.LatestMessageID,
		})
	}
	slices.SortFunc(summary.Channels, func(a, b ChannelSummary) int {
		return cmp.Or(cmp.Compare(a.Position, b.Position), cmp.Compare(a.ID, b.ID))
	})
	return summary
}

// ChannelMessages returns the cached messages of a channel, oldest first.
func (s *Store) ChannelMessages(serverID snowflake.ID, channelID snowflake.ID) ([]MessageSummary, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	channel, exists := s.findChannel(serverID, channelID)
	if !exists {
		return nil, false
	}

	messages := channel.Messages.Values()
	summaries := make([]MessageSummary, 0, len(messages))
	for _, message := range messages {
		summary := MessageSummary{
			ID:      message.ID,
			Content: message.Content,
			Edited:  message.EditedAt != nil,
			SentAt:  message.CreatedAt(),
		}
		if message.Author != nil {
			summary.AuthorID = message.Author.ID
			summary.Author = message.Author.Username
		}
		if message.Member != nil && message.Member.Nickname != "" {
			summary.Author = message.Member.Nickname
		}
		summaries = append(summaries, summary)
	}
	return summaries, true
}

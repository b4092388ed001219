package store

import (
	"chatapp-gateway/internal/models"
)

// CreateMessage caches a dispatched message. It reports false, and changes
// nothing, when the channel is not cached.
func (s *Store) CreateMessage(data *models.MessageData) (*models.Message, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	channel, exists := s.findChannel(data.ServerID, data.ChannelID)
	if !exists {
		return nil, false
	}
	return s.cacheMessage(channel, data, false), true
}

// MergeMessage upserts a message returned by the API. Messages of channels
// that are not cached are returned detached, with shared authors.
func (s *Store) MergeMessage(data *models.MessageData) *models.Message {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	channel, exists := s.findChannel(data.ServerID, data.ChannelID)
	if !exists {
		message := models.NewMessage(data, nil)
		s.resolveMessageRefs(message, data)
		return message
	}
	return s.cacheMessage(channel, data, true)
}

// staleEdit reports whether a request result predates the last edit the
// live stream delivered for the same message.
func staleEdit(message *models.Message, data *models.MessageData) bool {
	if message.EditedAt == nil {
		return false
	}
	return data.EditedAt == nil || data.EditedAt.Before(*message.EditedAt)
}

func (s *Store) cacheMessage(channel *models.Channel, data *models.MessageData, fromRequest bool) *models.Message {
	message, exists := channel.Messages.Get(data.ID)
	if exists && fromRequest && staleEdit(message, data) {
		s.sugar.Debugf("Kept live edit of message ID [%d] over an older request result", message.ID)
		return message
	}

	if exists {
		message.Update(data)
	} else {
		message = models.NewMessage(data, channel)
		if evicted := channel.Messages.Set(message); evicted != nil {
			s.sugar.Debugf("Evicted message ID [%d] from channel ID [%d]", evicted.ID, channel.ID)
		}
	}
	s.resolveMessageRefs(message, data)

	if message.ID > channel.LatestMessageID {
		channel.LatestMessageID = message.ID
	}
	return message
}

// UpdateMessage patches a cached message and also returns a copy of it
// taken before the patch.
func (s *Store) UpdateMessage(data *models.MessageData) (*models.Message, *models.Message, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	channel, exists := s.findChannel(data.ServerID, data.ChannelID)
	if !exists {
		return nil, nil, false
	}
	message, exists := channel.Messages.Get(data.ID)
	if !exists {
		return nil, nil, false
	}

	old := *message
	message.Update(data)
	s.resolveMessageRefs(message, data)
	return &old, message, true
}

func (s *Store) RemoveMessage(data *models.MessageData) (*models.Message, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	channel, exists := s.findChannel(data.ServerID, data.ChannelID)
	if !exists {
		return nil, false
	}
	return channel.Messages.Delete(data.ID)
}

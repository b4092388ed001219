package models

import "chatapp-gateway/internal/snowflake"

const DefaultMessageCacheSize = 100

// MessageCache keeps the most recent messages of a channel. When full, the
// message that entered the cache first is evicted.
type MessageCache struct {
	limit    int
	messages map[snowflake.ID]*Message
	order    []snowflake.ID
}

func NewMessageCache(limit int) *MessageCache {
	if limit < 1 {
		limit = DefaultMessageCacheSize
	}
	return &MessageCache{
		limit:    limit,
		messages: make(map[snowflake.ID]*Message),
	}
}

func (c *MessageCache) Get(id snowflake.ID) (*Message, bool) {
	message, exists := c.messages[id]
	return message, exists
}

// Set stores the message and returns the evicted message, if any.
func (c *MessageCache) Set(message *Message) *Message {
	if _, exists := c.messages[message.ID]; exists {
		c.messages[message.ID] = message
		return nil
	}

	c.messages[message.ID] = message
	c.order = append(c.order, message.ID)

	if len(c.order) <= c.limit {
		return nil
	}

	oldest := c.order[0]
	c.order = c.order[1:]
	evicted := c.messages[oldest]
	delete(c.messages, oldest)
	return evicted
}

func (c *MessageCache) Delete(id snowflake.ID) (*Message, bool) {
	message, exists := c.messages[id]
	if !exists {
		return nil, false
	}
	delete(c.messages, id)

	for i := range c.order {
		if c.order[i] == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return message, true
}

func (c *MessageCache) Len() int {
	return len(c.messages)
}

func (c *MessageCache) Limit() int {
	return c.limit
}

// Values returns the cached messages from oldest to newest.
func (c *MessageCache) Values() []*Message {
	values := make([]*Message, 0, len(c.order))
	for _, id := range c.order {
		values = append(values, c.messages[id])
	}
	return values
}

package store

import (
	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/snowflake"
	"sync"

	"go.uber.org/zap"
)

// Store is the in-memory mirror of everything the gateway has told us about.
// Every exported method is one atomic mutation or read, so signals can be
// emitted after the lock is released.
//
// Users are never evicted, a user stays cached for the life of the process
// once referenced.
type Store struct {
	mutex sync.RWMutex
	sugar *zap.SugaredLogger

	messageCacheSize int

	self    *models.User
	users   map[snowflake.ID]*models.User
	servers map[snowflake.ID]*models.Server
}

func New(sugar *zap.SugaredLogger, messageCacheSize int) *Store {
	return &Store{
		sugar:            sugar,
		messageCacheSize: messageCacheSize,
		users:            make(map[snowflake.ID]*models.User),
		servers:          make(map[snowflake.ID]*models.Server),
	}
}

// View runs fn under the read lock. Entities handed out by the store can be
// read safely inside fn while request results are being merged elsewhere.
// fn must not call back into the store.
func (s *Store) View(fn func()) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	fn()
}

func (s *Store) upsertUser(data *models.UserData) *models.User {
	if user, exists := s.users[data.ID]; exists {
		user.Update(data)
		return user
	}

	user := models.NewUser(data)
	s.users[user.ID] = user
	return user
}

// patchUser only touches users that are already cached.
func (s *Store) patchUser(data *models.UserData) {
	if user, exists := s.users[data.ID]; exists {
		user.Update(data)
	}
}

func (s *Store) upsertServer(data *models.ServerData) *models.Server {
	server, exists := s.servers[data.ID]
	if !exists {
		server = models.NewServer(data.ID)
		s.servers[server.ID] = server
	}
	server.Update(data)

	for i := range data.Roles {
		s.upsertRole(server, &data.Roles[i])
	}
	for i := range data.Channels {
		s.upsertChannel(server, &data.Channels[i])
	}
	for i := range data.Members {
		s.upsertMember(server, &data.Members[i])
	}
	for i := range data.Presences {
		presence := &data.Presences[i]
		s.patchUser(&presence.User)
		if member, exists := server.Members[presence.User.ID]; exists {
			member.Presence.Update(&presence.Presence)
		}
	}

	return server
}

func (s *Store) upsertChannel(server *models.Server, data *models.ChannelData) *models.Channel {
	if channel, exists := server.Channels[data.ID]; exists {
		channel.Update(data)
		return channel
	}

	channel := models.NewChannel(data, server, s.messageCacheSize)
	server.Channels[channel.ID] = channel
	return channel
}

func (s *Store) upsertRole(server *models.Server, data *models.RoleData) *models.Role {
	if role, exists := server.Roles[data.ID]; exists {
		role.Update(data)
		return role
	}

	role := models.NewRole(data, server)
	server.Roles[role.ID] = role
	return role
}

func (s *Store) upsertMember(server *models.Server, data *models.MemberData) *models.Member {
	if data.User == nil {
		s.sugar.Warnf("Member payload for server ID [%d] has no user", server.ID)
		return nil
	}

	user := s.upsertUser(data.User)
	member, exists := server.Members[user.ID]
	if !exists {
		member = models.NewMember(server, user)
		server.Members[user.ID] = member
	}
	member.Update(data)
	return member
}

func (s *Store) findChannel(serverID snowflake.ID, channelID snowflake.ID) (*models.Channel, bool) {
	if serverID != 0 {
		server, exists := s.servers[serverID]
		if !exists {
			return nil, false
		}
		channel, exists := server.Channels[channelID]
		return channel, exists
	}

	for _, server := range s.servers {
		if channel, exists := server.Channels[channelID]; exists {
			return channel, true
		}
	}
	return nil, false
}

// resolveMessageRefs points the author and member of a message at the shared instances.
func (s *Store) resolveMessageRefs(message *models.Message, data *models.MessageData) {
	if data.Author != nil {
		message.Author = s.upsertUser(data.Author)
	}
	if message.Author == nil || message.Channel == nil || message.Channel.Server == nil {
		return
	}

	server := message.Channel.Server
	member, exists := server.Members[message.Author.ID]
	if data.Member != nil {
		if !exists {
			member = models.NewMember(server, message.Author)
			server.Members[message.Author.ID] = member
			exists = true
		}
		member.Update(data.Member)
	}
	if exists {
		message.Member = member
	}
}

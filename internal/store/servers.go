package store

import (
	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/snowflake"
	"cmp"
	"slices"
)

// Ready registers the authenticated user.
func (s *Store) Ready(data *models.ReadyData) *models.User {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.self = s.upsertUser(&data.User)
	return s.self
}

func (s *Store) Self() *models.User {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.self
}

func (s *Store) User(id snowflake.ID) (*models.User, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	user, exists := s.users[id]
	return user, exists
}

func (s *Store) UpsertUser(data *models.UserData) *models.User {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.upsertUser(data)
}

func (s *Store) Server(id snowflake.ID) (*models.Server, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	server, exists := s.servers[id]
	return server, exists
}

// Servers returns the cached servers ordered by id.
func (s *Store) Servers() []*models.Server {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	servers := make([]*models.Server, 0, len(s.servers))
	for _, server := range s.servers {
		servers = append(servers, server)
	}
	slices.SortFunc(servers, func(a, b *models.Server) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return servers
}

// UpsertServer materializes a full server payload, merging into the cached
// server and its children when it already exists.
func (s *Store) UpsertServer(data *models.ServerData) *models.Server {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.upsertServer(data)
}

func (s *Store) MergeServers(data []models.ServerData) []*models.Server {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	servers := make([]*models.Server, 0, len(data))
	for i := range data {
		servers = append(servers, s.upsertServer(&data[i]))
	}
	return servers
}

func (s *Store) UpdateServer(data *models.ServerData) (*models.Server, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	server, exists := s.servers[data.ID]
	if !exists {
		return nil, false
	}
	server.Update(data)
	return server, true
}

// RemoveServer drops the server together with its roles, channels, members and messages.
func (s *Store) RemoveServer(id snowflake.ID) (*models.Server, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	server, exists := s.servers[id]
	if !exists {
		return nil, false
	}
	delete(s.servers, id)
	return server, true
}

func (s *Store) UpsertChannel(data *models.ChannelData) (*models.Channel, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	server, exists := s.servers[data.ServerID]
	if !exists {
		return nil, false
	}
	return s.upsertChannel(server, data), true
}

func (s *Store) UpdateChannel(data *models.ChannelData) (*models.Channel, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	channel, exists := s.findChannel(data.ServerID, data.ID)
	if !exists {
		return nil, false
	}
	channel.Update(data)
	return channel, true
}

// RemoveChannel reports false only when the server is unknown. A channel
// that was never cached is rebuilt from the payload so the caller always
// has something to hand out.
func (s *Store) RemoveChannel(data *models.ChannelData) (*models.Channel, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	server, exists := s.servers[data.ServerID]
	if !exists {
		return nil, false
	}

	channel, exists := server.Channels[data.ID]
	if !exists {
		return models.NewChannel(data, server, 1), true
	}
	delete(server.Channels, data.ID)
	return channel, true
}

func (s *Store) UpsertRole(data *models.RoleEventData) (*models.Role, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	server, exists := s.servers[data.ServerID]
	if !exists {
		return nil, false
	}
	return s.upsertRole(server, &data.Role), true
}

func (s *Store) UpdateRole(data *models.RoleEventData) (*models.Role, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	server, exists := s.servers[data.ServerID]
	if !exists {
		return nil, false
	}
	role, exists := server.Roles[data.Role.ID]
	if !exists {
		return nil, false
	}
	role.Update(&data.Role)
	return role, true
}

func (s *Store) RemoveRole(data *models.RoleEventData) (*models.Role, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	server, exists := s.servers[data.ServerID]
	if !exists {
		return nil, false
	}
	role, exists := server.Roles[data.RoleID]
	if !exists {
		return nil, false
	}
	delete(server.Roles, data.RoleID)
	return role, true
}

func (s *Store) UpsertMember(data *models.MemberData) (*models.Member, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	server, exists := s.servers[data.ServerID]
	if !exists {
		return nil, false
	}
	member := s.upsertMember(server, data)
	return member, member != nil
}

// MergeMembers upserts a fetched member list into a cached server.
func (s *Store) MergeMembers(serverID snowflake.ID, data []models.MemberData) ([]*models.Member, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	server, exists := s.servers[serverID]
	if !exists {
		return nil, false
	}

	members := make([]*models.Member, 0, len(data))
	for i := range data {
		if member := s.upsertMember(server, &data[i]); member != nil {
			members = append(members, member)
		}
	}
	return members, true
}

func (s *Store) UpdateMember(data *models.MemberData) (*models.Member, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	server, exists := s.servers[data.ServerID]
	if !exists || data.User == nil {
		return nil, false
	}
	member, exists := server.Members[data.User.ID]
	if !exists {
		return nil, false
	}
	member.User.Update(data.User)
	member.Update(data)
	return member, true
}

// RemoveMember returns the id of the removed member's user.
func (s *Store) RemoveMember(data *models.MemberData) (snowflake.ID, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	server, exists := s.servers[data.ServerID]
	if !exists || data.User == nil {
		return 0, false
	}
	member, exists := server.Members[data.User.ID]
	if !exists {
		return 0, false
	}
	userID := member.User.ID
	delete(server.Members, userID)
	return userID, true
}

// UpdatePresence patches the cached user first, then the member presence in
// the given server. The user patch is applied even when the member is unknown.
func (s *Store) UpdatePresence(data *models.PresenceUpdateData) (*models.Member, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.patchUser(&data.User)

	server, exists := s.servers[data.ServerID]
	if !exists {
		return nil, false
	}
	member, exists := server.Members[data.User.ID]
	if !exists {
		return nil, false
	}
	member.Presence.Update(&data.Presence)
	return member, true
}

// Ban shares the cached user when there is one. Bans are not cached, so an
// unknown user stays detached.
func (s *Store) Ban(data *models.BanData) *models.Ban {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	user, exists := s.users[data.User.ID]
	if !exists {
		user = models.NewUser(&data.User)
	}
	return &models.Ban{
		ServerID: data.ServerID,
		User:     user,
		Reason:   data.Reason,
	}
}

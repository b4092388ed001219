package models

import (
	"chatapp-gateway/internal/snowflake"
	"time"
)

type Status string

const (
	StatusOnline       Status = "online"
	StatusIdle         Status = "idle"
	StatusDoNotDisturb Status = "dnd"
	StatusOffline      Status = "offline"
)

// Entity is embedded by everything the server assigns a snowflake to.
type Entity struct {
	ID        snowflake.ID `json:"id"`
	createdAt time.Time
}

func newEntity(id snowflake.ID) Entity {
	return Entity{ID: id, createdAt: id.CreatedAt()}
}

func (e *Entity) CreatedAt() time.Time {
	return e.createdAt
}

type User struct {
	Entity
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
	Presence  Status `json:"presence"`
	Bot       bool   `json:"bot"`
	Admin     bool   `json:"admin"`
	Automated bool   `json:"automated"`
}

func NewUser(data *UserData) *User {
	user := &User{Entity: newEntity(data.ID)}
	user.Update(data)
	return user
}

func (u *User) Update(data *UserData) {
	if data.Username != nil {
		u.Username = *data.Username
	}
	if data.Avatar != nil {
		u.Avatar = *data.Avatar
	}
	if data.Presence != nil {
		u.Presence = *data.Presence
	}
	if data.Bot != nil {
		u.Bot = *data.Bot
	}
	if data.Admin != nil {
		u.Admin = *data.Admin
	}
	if data.Automated != nil {
		u.Automated = *data.Automated
	}
}

type Activity struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	URL  string `json:"url,omitempty"`
}

type Presence struct {
	UserID   snowflake.ID `json:"user_id"`
	Status   Status       `json:"status"`
	Activity *Activity    `json:"activity,omitempty"`
}

// NewPresence returns the placeholder presence a member carries until the
// first real update arrives.
func NewPresence(userID snowflake.ID) *Presence {
	return &Presence{UserID: userID, Status: StatusOffline}
}

func (p *Presence) Update(data *PresenceData) {
	if data.Status != nil {
		p.Status = *data.Status
	}
	if data.Activity != nil {
		p.Activity = data.Activity
	}
}

type Server struct {
	Entity
	Name        string       `json:"name"`
	Icon        string       `json:"icon"`
	OwnerID     snowflake.ID `json:"owner_id"`
	Features    []string     `json:"features"`
	Description string       `json:"description"`
	MemberCount int          `json:"member_count"`

	Roles    map[snowflake.ID]*Role    `json:"roles"`
	Channels map[snowflake.ID]*Channel `json:"channels"`
	// keyed by user id
	Members map[snowflake.ID]*Member `json:"members"`
}

func NewServer(id snowflake.ID) *Server {
	return &Server{
		Entity:   newEntity(id),
		Roles:    make(map[snowflake.ID]*Role),
		Channels: make(map[snowflake.ID]*Channel),
		Members:  make(map[snowflake.ID]*Member),
	}
}

// Update patches the scalar fields only, nested collections are merged by the store.
func (s *Server) Update(data *ServerData) {
	if data.Name != nil {
		s.Name = *data.Name
	}
	if data.Icon != nil {
		s.Icon = *data.Icon
	}
	if data.OwnerID != nil {
		s.OwnerID = *data.OwnerID
	}
	if data.Features != nil {
		s.Features = data.Features
	}
	if data.Description != nil {
		s.Description = *data.Description
	}
	if data.MemberCount != nil {
		s.MemberCount = *data.MemberCount
	}
}

type Overwrite struct {
	ID    snowflake.ID `json:"id"`
	Type  string       `json:"type"`
	Allow int64        `json:"allow"`
	Deny  int64        `json:"deny"`
}

type Channel struct {
	Entity
	Server               *Server      `json:"-" msgpack:"-"`
	ServerID             snowflake.ID `json:"server_id"`
	Type                 int          `json:"type"`
	Name                 string       `json:"name"`
	Position             int          `json:"position"`
	Topic                string       `json:"topic"`
	PermissionOverwrites []Overwrite  `json:"permission_overwrites"`
	LatestMessageID      snowflake.ID `json:"latest_message_id"`

	Messages *MessageCache `json:"-" msgpack:"-"`
}

func NewChannel(data *ChannelData, server *Server, cacheSize int) *Channel {
	channel := &Channel{
		Entity:   newEntity(data.ID),
		Server:   server,
		ServerID: data.ServerID,
		Messages: NewMessageCache(cacheSize),
	}
	if server != nil {
		channel.ServerID = server.ID
	}
	channel.Update(data)
	return channel
}

func (c *Channel) Update(data *ChannelData) {
	if data.Type != nil {
		c.Type = *data.Type
	}
	if data.Name != nil {
		c.Name = *data.Name
	}
	if data.Position != nil {
		c.Position = *data.Position
	}
	if data.Topic != nil {
		c.Topic = *data.Topic
	}
	if data.PermissionOverwrites != nil {
		c.PermissionOverwrites = data.PermissionOverwrites
	}
	if data.LatestMessageID != nil {
		c.LatestMessageID = *data.LatestMessageID
	}
}

type Role struct {
	Entity
	Server      *Server `json:"-" msgpack:"-"`
	Name        string  `json:"name"`
	Color       int     `json:"color"`
	Hoist       bool    `json:"hoist"`
	Position    int     `json:"position"`
	Permissions int64   `json:"permissions"`
	Mentionable bool    `json:"mentionable"`
}

func NewRole(data *RoleData, server *Server) *Role {
	role := &Role{Entity: newEntity(data.ID), Server: server}
	role.Update(data)
	return role
}

func (r *Role) Update(data *RoleData) {
	if data.Name != nil {
		r.Name = *data.Name
	}
	if data.Color != nil {
		r.Color = *data.Color
	}
	if data.Hoist != nil {
		r.Hoist = *data.Hoist
	}
	if data.Position != nil {
		r.Position = *data.Position
	}
	if data.Permissions != nil {
		r.Permissions = *data.Permissions
	}
	if data.Mentionable != nil {
		r.Mentionable = *data.Mentionable
	}
}

type Member struct {
	Server   *Server        `json:"-" msgpack:"-"`
	User     *User          `json:"user"`
	JoinedAt time.Time      `json:"joined_at"`
	Nickname string         `json:"nickname"`
	Roles    []snowflake.ID `json:"roles"`
	Presence *Presence      `json:"presence"`
}

func NewMember(server *Server, user *User) *Member {
	return &Member{
		Server:   server,
		User:     user,
		Presence: NewPresence(user.ID),
	}
}

func (m *Member) Update(data *MemberData) {
	if data.JoinedAt != nil {
		m.JoinedAt = *data.JoinedAt
	}
	if data.Nickname != nil {
		m.Nickname = *data.Nickname
	}
	if data.Roles != nil {
		m.Roles = data.Roles
	}
}

func (m *Member) IsOwner() bool {
	return m.Server != nil && m.User.ID == m.Server.OwnerID
}

type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Color       int    `json:"color,omitempty"`
}

type Message struct {
	Entity
	Channel   *Channel     `json:"-" msgpack:"-"`
	ChannelID snowflake.ID `json:"channel_id"`
	ServerID  snowflake.ID `json:"server_id"`
	Author    *User        `json:"author"`
	Member    *Member      `json:"member,omitempty"`
	Type      int          `json:"type"`
	Content   string       `json:"content"`
	EditedAt  *time.Time   `json:"edited_at,omitempty"`
	Embeds    []Embed      `json:"embeds"`
}

// NewMessage leaves Author and Member to the caller, they are shared
// instances owned by the store.
func NewMessage(data *MessageData, channel *Channel) *Message {
	message := &Message{
		Entity:    newEntity(data.ID),
		Channel:   channel,
		ChannelID: data.ChannelID,
		ServerID:  data.ServerID,
	}
	if channel != nil {
		message.ChannelID = channel.ID
		message.ServerID = channel.ServerID
	}
	message.Update(data)
	return message
}

func (m *Message) Update(data *MessageData) {
	if data.Type != nil {
		m.Type = *data.Type
	}
	if data.Content != nil {
		m.Content = *data.Content
	}
	if data.EditedAt != nil {
		editedAt := *data.EditedAt
		m.EditedAt = &editedAt
	}
	if data.Embeds != nil {
		m.Embeds = data.Embeds
	}
}

// Ban is not cached, it only travels with the ban signals.
type Ban struct {
	ServerID snowflake.ID `json:"server_id"`
	User     *User        `json:"user"`
	Reason   string       `json:"reason"`
}

type Invite struct {
	Code      string       `json:"code"`
	ServerID  snowflake.ID `json:"server_id"`
	ChannelID snowflake.ID `json:"channel_id"`
	InviterID snowflake.ID `json:"inviter_id"`
	Uses      int          `json:"uses"`
	MaxUses   int          `json:"max_uses"`
}

package models

import (
	"chatapp-gateway/internal/snowflake"
	"time"
)

// The *Data types are decoded straight from dispatch and API payloads.
// A nil field means the field was absent and the cached value is kept.

type UserData struct {
	ID        snowflake.ID `json:"id"`
	Username  *string      `json:"username"`
	Avatar    *string      `json:"avatar"`
	Presence  *Status      `json:"presence"`
	Bot       *bool        `json:"bot"`
	Admin     *bool        `json:"admin"`
	Automated *bool        `json:"automated"`
}

type PresenceData struct {
	Status   *Status   `json:"status"`
	Activity *Activity `json:"activity"`
}

type PresenceUpdateData struct {
	ServerID snowflake.ID `json:"server_id"`
	User     UserData     `json:"user"`
	Presence PresenceData `json:"presence"`
}

type ServerData struct {
	ID          snowflake.ID  `json:"id"`
	Name        *string       `json:"name"`
	Icon        *string       `json:"icon"`
	OwnerID     *snowflake.ID `json:"owner_id"`
	Features    []string      `json:"features"`
	Description *string       `json:"description"`
	MemberCount *int          `json:"member_count"`
	Unavailable bool          `json:"unavailable"`

	Roles     []RoleData           `json:"roles"`
	Channels  []ChannelData        `json:"channels"`
	Members   []MemberData         `json:"members"`
	Presences []PresenceUpdateData `json:"presences"`
}

type ChannelData struct {
	ID                   snowflake.ID  `json:"id"`
	ServerID             snowflake.ID  `json:"server_id"`
	Type                 *int          `json:"type"`
	Name                 *string       `json:"name"`
	Position             *int          `json:"position"`
	Topic                *string       `json:"topic"`
	PermissionOverwrites []Overwrite   `json:"permission_overwrites"`
	LatestMessageID      *snowflake.ID `json:"latest_message_id"`
}

type RoleData struct {
	ID          snowflake.ID `json:"id"`
	Name        *string      `json:"name"`
	Color       *int         `json:"color"`
	Hoist       *bool        `json:"hoist"`
	Position    *int         `json:"position"`
	Permissions *int64       `json:"permissions"`
	Mentionable *bool        `json:"mentionable"`
}

type RoleEventData struct {
	ServerID snowflake.ID `json:"server_id"`
	Role     RoleData     `json:"role"`
	RoleID   snowflake.ID `json:"role_id"`
}

type MemberData struct {
	ServerID snowflake.ID   `json:"server_id"`
	User     *UserData      `json:"user"`
	JoinedAt *time.Time     `json:"joined_at"`
	Nickname *string        `json:"nickname"`
	Roles    []snowflake.ID `json:"roles"`
}

type MessageData struct {
	ID        snowflake.ID `json:"id"`
	ServerID  snowflake.ID `json:"server_id"`
	ChannelID snowflake.ID `json:"channel_id"`
	Author    *UserData    `json:"author"`
	Member    *MemberData  `json:"member"`
	Type      *int         `json:"type"`
	Content   *string      `json:"content"`
	EditedAt  *time.Time   `json:"edited_at"`
	Embeds    []Embed      `json:"embeds"`
}

type ReadyData struct {
	User      UserData     `json:"user"`
	SessionID string       `json:"session_id"`
	Servers   []ServerData `json:"servers"`
}

type BanData struct {
	ServerID snowflake.ID `json:"server_id"`
	User     UserData     `json:"user"`
	Reason   string       `json:"reason"`
}

type InviteCreateData struct {
	Invite Invite `json:"invite"`
}

type InviteDeleteData struct {
	Code      string       `json:"code"`
	ServerID  snowflake.ID `json:"server_id"`
	ChannelID snowflake.ID `json:"channel_id"`
}

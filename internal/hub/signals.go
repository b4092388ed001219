package hub

import (
	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/snowflake"
)

// Signal names a typed event; T is the payload handed to subscribers.
type Signal[T any] struct {
	name string
}

func NewSignal[T any](name string) Signal[T] {
	return Signal[T]{name: name}
}

func (s Signal[T]) Name() string {
	return s.name
}

// MessageUpdate carries a copy of the message taken before the patch.
type MessageUpdate struct {
	Old *models.Message `msgpack:"old"`
	New *models.Message `msgpack:"new"`
}

var (
	Ready = NewSignal[*models.User]("ready")
	Error = NewSignal[error]("error")

	ServerCreate    = NewSignal[*models.Server]("serverCreate")
	ServerAvailable = NewSignal[*models.Server]("serverAvailable")
	ServerUpdate    = NewSignal[*models.Server]("serverUpdate")
	ServerDelete    = NewSignal[*models.Server]("serverDelete")

	ChannelCreate = NewSignal[*models.Channel]("channelCreate")
	ChannelUpdate = NewSignal[*models.Channel]("channelUpdate")
	ChannelDelete = NewSignal[*models.Channel]("channelDelete")

	MessageCreate        = NewSignal[*models.Message]("messageCreate")
	MessageUpdateSignal  = NewSignal[MessageUpdate]("messageUpdate")
	MessageDelete        = NewSignal[*models.Message]("messageDelete")
	PresenceUpdateSignal = NewSignal[*models.Member]("presenceUpdate")

	RoleCreate = NewSignal[*models.Role]("roleCreate")
	RoleUpdate = NewSignal[*models.Role]("roleUpdate")
	RoleDelete = NewSignal[*models.Role]("roleDelete")

	ServerMemberAdd    = NewSignal[*models.Member]("serverMemberAdd")
	ServerMemberUpdate = NewSignal[*models.Member]("serverMemberUpdate")
	ServerMemberRemove = NewSignal[snowflake.ID]("serverMemberRemove")

	ServerBanAdd    = NewSignal[*models.Ban]("serverBanAdd")
	ServerBanRemove = NewSignal[*models.Ban]("serverBanRemove")

	InviteCreate = NewSignal[*models.Invite]("inviteCreate")
	InviteDelete = NewSignal[*models.InviteDeleteData]("inviteDelete")
)

// On subscribes handler to signal and returns a function that removes it again.
func On[T any](h *Hub, signal Signal[T], handler func(T)) (unsubscribe func()) {
	return h.subscribe(signal.name, func(payload any) {
		handler(payload.(T))
	})
}

func Emit[T any](h *Hub, signal Signal[T], payload T) {
	h.emit(signal.name, payload)
}

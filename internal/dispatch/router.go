package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"

	"chatapp-gateway/internal/gateway"
	"chatapp-gateway/internal/hub"
	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/snowflake"
	"chatapp-gateway/internal/store"

	"go.uber.org/zap"
)

// Router applies dispatch events to the store and emits the matching
// signals. It implements gateway.Handler, so events arrive one at a time in
// the order the gateway received them.
type Router struct {
	sugar     *zap.SugaredLogger
	store     *store.Store
	hub       *hub.Hub
	readiness *gateway.Readiness

	handlers map[string]func(data json.RawMessage) error
}

func New(sugar *zap.SugaredLogger, store *store.Store, h *hub.Hub, readiness *gateway.Readiness) *Router {
	r := &Router{
		sugar:     sugar,
		store:     store,
		hub:       h,
		readiness: readiness,
	}

	r.handlers = map[string]func(data json.RawMessage) error{
		gateway.EventReady:   handle(r.ready),
		gateway.EventResumed: func(json.RawMessage) error { return nil },

		"SERVER_CREATE": handle(r.serverCreate),
		"SERVER_UPDATE": handle(r.serverUpdate),
		"SERVER_DELETE": handle(r.serverDelete),

		"CHANNEL_CREATE": handle(r.channelCreate),
		"CHANNEL_UPDATE": handle(r.channelUpdate),
		"CHANNEL_DELETE": handle(r.channelDelete),

		"MESSAGE_CREATE": handle(r.messageCreate),
		"MESSAGE_UPDATE": handle(r.messageUpdate),
		"MESSAGE_DELETE": handle(r.messageDelete),

		"PRESENCE_UPDATE": handle(r.presenceUpdate),

		"SERVER_ROLE_CREATE": handle(r.roleCreate),
		"SERVER_ROLE_UPDATE": handle(r.roleUpdate),
		"SERVER_ROLE_DELETE": handle(r.roleDelete),

		"SERVER_MEMBER_ADD":    handle(r.memberAdd),
		"SERVER_MEMBER_UPDATE": handle(r.memberUpdate),
		"SERVER_MEMBER_REMOVE": handle(r.memberRemove),

		"SERVER_BAN_ADD":    handle(r.ban(hub.ServerBanAdd)),
		"SERVER_BAN_REMOVE": handle(r.ban(hub.ServerBanRemove)),

		"INVITE_CREATE": handle(r.inviteCreate),
		"INVITE_DELETE": handle(r.inviteDelete),
	}
	return r
}

func handle[T any](fn func(data *T)) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		var data T
		err := json.Unmarshal(raw, &data)
		if err != nil {
			return err
		}
		err = check(&data)
		if err != nil {
			return err
		}
		fn(&data)
		return nil
	}
}

var errMissingID = errors.New("payload is missing an id")

func missing(field string) error {
	return fmt.Errorf("%w: %s", errMissingID, field)
}

// check rejects payloads that decoded fine but name no entity, a null
// payload decodes to a zero struct.
func check(data any) error {
	switch data := data.(type) {
	case *models.ReadyData:
		if data.User.ID == 0 {
			return missing("user.id")
		}
	case *models.ServerData:
		if data.ID == 0 {
			return missing("id")
		}
	case *models.ChannelData:
		if data.ID == 0 {
			return missing("id")
		}
		if data.ServerID == 0 {
			return missing("server_id")
		}
	case *models.MessageData:
		if data.ID == 0 {
			return missing("id")
		}
		if data.ChannelID == 0 {
			return missing("channel_id")
		}
	case *models.PresenceUpdateData:
		if data.ServerID == 0 {
			return missing("server_id")
		}
		if data.User.ID == 0 {
			return missing("user.id")
		}
	case *models.RoleEventData:
		if data.ServerID == 0 {
			return missing("server_id")
		}
		if data.Role.ID == 0 && data.RoleID == 0 {
			return missing("role.id")
		}
	case *models.MemberData:
		if data.ServerID == 0 {
			return missing("server_id")
		}
		if data.User == nil || data.User.ID == 0 {
			return missing("user.id")
		}
	case *models.BanData:
		if data.ServerID == 0 {
			return missing("server_id")
		}
		if data.User.ID == 0 {
			return missing("user.id")
		}
	case *models.InviteCreateData:
		if data.Invite.Code == "" {
			return missing("invite.code")
		}
	case *models.InviteDeleteData:
		if data.Code == "" {
			return missing("code")
		}
	}
	return nil
}

func (r *Router) HandleDispatch(event gateway.Event) {
	handler, exists := r.handlers[event.Type]
	if !exists {
		r.sugar.Debugf("Ignoring dispatch %s", event.Type)
		return
	}

	err := handler(event.Data)
	if err != nil {
		r.sugar.Warnf("Dropped malformed %s dispatch with sequence %d: %v", event.Type, event.Sequence, err)
		hub.Emit(r.hub, hub.Error, fmt.Errorf("malformed %s: %w", event.Type, err))
	}
}

func (r *Router) HandleError(err error) {
	hub.Emit(r.hub, hub.Error, err)
}

func (r *Router) dropped(event string, id snowflake.ID) {
	r.sugar.Debugf("Dropped %s for unknown parent ID [%d]", event, id)
}

func (r *Router) ready(data *models.ReadyData) {
	user := r.store.Ready(data)
	r.store.MergeServers(data.Servers)

	ids := make([]snowflake.ID, 0, len(data.Servers))
	for i := range data.Servers {
		ids = append(ids, data.Servers[i].ID)
	}

	r.sugar.Infof("Logged in as %s, waiting for %d servers", user.Username, len(ids))
	if r.readiness.Begin(ids) {
		hub.Emit(r.hub, hub.Ready, user)
	}
}

func (r *Router) serverCreate(data *models.ServerData) {
	server := r.store.UpsertServer(data)

	available, readyNow := r.readiness.Available(server.ID)
	if !available {
		hub.Emit(r.hub, hub.ServerCreate, server)
		return
	}

	hub.Emit(r.hub, hub.ServerAvailable, server)
	if readyNow {
		hub.Emit(r.hub, hub.Ready, r.store.Self())
	}
}

func (r *Router) serverUpdate(data *models.ServerData) {
	server, ok := r.store.UpdateServer(data)
	if !ok {
		r.dropped("SERVER_UPDATE", data.ID)
		return
	}
	hub.Emit(r.hub, hub.ServerUpdate, server)
}

func (r *Router) serverDelete(data *models.ServerData) {
	server, ok := r.store.RemoveServer(data.ID)
	if !ok {
		r.dropped("SERVER_DELETE", data.ID)
		return
	}
	hub.Emit(r.hub, hub.ServerDelete, server)
}

func (r *Router) channelCreate(data *models.ChannelData) {
	channel, ok := r.store.UpsertChannel(data)
	if !ok {
		r.dropped("CHANNEL_CREATE", data.ServerID)
		return
	}
	hub.Emit(r.hub, hub.ChannelCreate, channel)
}

func (r *Router) channelUpdate(data *models.ChannelData) {
	channel, ok := r.store.UpdateChannel(data)
	if !ok {
		r.dropped("CHANNEL_UPDATE", data.ServerID)
		return
	}
	hub.Emit(r.hub, hub.ChannelUpdate, channel)
}

// channelDelete emits even for channels that were never cached.
func (r *Router) channelDelete(data *models.ChannelData) {
	channel, ok := r.store.RemoveChannel(data)
	if !ok {
		r.dropped("CHANNEL_DELETE", data.ServerID)
		return
	}
	hub.Emit(r.hub, hub.ChannelDelete, channel)
}

func (r *Router) messageCreate(data *models.MessageData) {
	message, ok := r.store.CreateMessage(data)
	if !ok {
		r.dropped("MESSAGE_CREATE", data.ChannelID)
		return
	}
	hub.Emit(r.hub, hub.MessageCreate, message)
}

func (r *Router) messageUpdate(data *models.MessageData) {
	old, message, ok := r.store.UpdateMessage(data)
	if !ok {
		r.dropped("MESSAGE_UPDATE", data.ChannelID)
		return
	}
	hub.Emit(r.hub, hub.MessageUpdateSignal, hub.MessageUpdate{Old: old, New: message})
}

func (r *Router) messageDelete(data *models.MessageData) {
	message, ok := r.store.RemoveMessage(data)
	if !ok {
		r.dropped("MESSAGE_DELETE", data.ChannelID)
		return
	}
	hub.Emit(r.hub, hub.MessageDelete, message)
}

func (r *Router) presenceUpdate(data *models.PresenceUpdateData) {
	member, ok := r.store.UpdatePresence(data)
	if !ok {
		r.dropped("PRESENCE_UPDATE", data.ServerID)
		return
	}
	hub.Emit(r.hub, hub.PresenceUpdateSignal, member)
}

func (r *Router) roleCreate(data *models.RoleEventData) {
	role, ok := r.store.UpsertRole(data)
	if !ok {
		r.dropped("SERVER_ROLE_CREATE", data.ServerID)
		return
	}
	hub.Emit(r.hub, hub.RoleCreate, role)
}

func (r *Router) roleUpdate(data *models.RoleEventData) {
	role, ok := r.store.UpdateRole(data)
	if !ok {
		r.dropped("SERVER_ROLE_UPDATE", data.ServerID)
		return
	}
	hub.Emit(r.hub, hub.RoleUpdate, role)
}

func (r *Router) roleDelete(data *models.RoleEventData) {
	role, ok := r.store.RemoveRole(data)
	if !ok {
		r.dropped("SERVER_ROLE_DELETE", data.ServerID)
		return
	}
	hub.Emit(r.hub, hub.RoleDelete, role)
}

func (r *Router) memberAdd(data *models.MemberData) {
	member, ok := r.store.UpsertMember(data)
	if !ok {
		r.dropped("SERVER_MEMBER_ADD", data.ServerID)
		return
	}
	hub.Emit(r.hub, hub.ServerMemberAdd, member)
}

func (r *Router) memberUpdate(data *models.MemberData) {
	member, ok := r.store.UpdateMember(data)
	if !ok {
		r.dropped("SERVER_MEMBER_UPDATE", data.ServerID)
		return
	}
	hub.Emit(r.hub, hub.ServerMemberUpdate, member)
}

func (r *Router) memberRemove(data *models.MemberData) {
	userID, ok := r.store.RemoveMember(data)
	if !ok {
		r.dropped("SERVER_MEMBER_REMOVE", data.ServerID)
		return
	}
	hub.Emit(r.hub, hub.ServerMemberRemove, userID)
}

func (r *Router) ban(signal hub.Signal[*models.Ban]) func(data *models.BanData) {
	return func(data *models.BanData) {
		hub.Emit(r.hub, signal, r.store.Ban(data))
	}
}

func (r *Router) inviteCreate(data *models.InviteCreateData) {
	hub.Emit(r.hub, hub.InviteCreate, &data.Invite)
}

func (r *Router) inviteDelete(data *models.InviteDeleteData) {
	hub.Emit(r.hub, hub.InviteDelete, data)
}

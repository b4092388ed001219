package archive

import (
	"context"
	"database/sql"
	"fmt"

	"chatapp-gateway/internal/hub"
	"chatapp-gateway/internal/models"
	"chatapp-gateway/internal/snowflake"

	"go.uber.org/zap"
)

// Archive writes servers, channels and messages seen on the hub into a SQL
// database. Write failures are logged and never stop the gateway.
type Archive struct {
	sugar *zap.SugaredLogger
	db    *sql.DB
	// guard runs reads of shared entities, the store's read lock
	guard func(func())

	unsubscribe []func()
}

type ArchivedMessage struct {
	ID        snowflake.ID `json:"id"`
	ChannelID snowflake.ID `json:"channelID"`
	UserID    snowflake.ID `json:"userID"`
	Username  string       `json:"username"`
	Message   string       `json:"message"`
	Edited    bool         `json:"edited"`
	Deleted   bool         `json:"deleted"`
	CreatedAt int64        `json:"createdAt"`
}

func New(sugar *zap.SugaredLogger, db *sql.DB, guard func(func())) *Archive {
	if guard == nil {
		guard = func(fn func()) { fn() }
	}
	return &Archive{
		sugar: sugar,
		db:    db,
		guard: guard,
	}
}

// Attach subscribes the archive to every signal it records.
func (a *Archive) Attach(h *hub.Hub) {
	a.unsubscribe = append(a.unsubscribe,
		hub.On(h, hub.ServerCreate, a.saveServer),
		hub.On(h, hub.ServerAvailable, a.saveServer),
		hub.On(h, hub.ServerUpdate, a.saveServer),
		hub.On(h, hub.ServerDelete, a.deleteServer),
		hub.On(h, hub.ChannelCreate, a.saveChannel),
		hub.On(h, hub.ChannelUpdate, a.saveChannel),
		hub.On(h, hub.ChannelDelete, a.deleteChannel),
		hub.On(h, hub.MessageCreate, a.saveMessage),
		hub.On(h, hub.MessageUpdateSignal, func(update hub.MessageUpdate) { a.saveMessage(update.New) }),
		hub.On(h, hub.MessageDelete, a.deleteMessage),
	)
}

// Detach stops recording, the database stays open.
func (a *Archive) Detach() {
	for _, unsubscribe := range a.unsubscribe {
		unsubscribe()
	}
	a.unsubscribe = nil
}

type serverRow struct {
	id       snowflake.ID
	ownerID  snowflake.ID
	name     string
	icon     string
	channels []channelRow
}

type channelRow struct {
	id       snowflake.ID
	serverID snowflake.ID
	name     string
	topic    string
}

type messageRow struct {
	id        snowflake.ID
	channelID snowflake.ID
	userID    snowflake.ID
	username  string
	avatar    string
	bot       bool
	content   string
	edited    bool
	createdAt int64
}

func toChannelRow(channel *models.Channel) channelRow {
	return channelRow{
		id:       channel.ID,
		serverID: channel.ServerID,
		name:     channel.Name,
		topic:    channel.Topic,
	}
}

func (a *Archive) saveServer(server *models.Server) {
	var row serverRow
	a.guard(func() {
		row = serverRow{
			id:      server.ID,
			ownerID: server.OwnerID,
			name:    server.Name,
			icon:    server.Icon,
		}
		for _, channel := range server.Channels {
			row.channels = append(row.channels, toChannelRow(channel))
		}
	})

	_, err := a.db.Exec("REPLACE INTO servers (id, owner_id, name, icon) VALUES (?, ?, ?, ?)", row.id, row.ownerID, row.name, row.icon)
	if err != nil {
		a.sugar.Errorf("Couldn't archive server ID [%d]: %v", row.id, err)
		return
	}

	for _, channel := range row.channels {
		a.writeChannel(channel)
	}
}

func (a *Archive) deleteServer(server *models.Server) {
	_, err := a.db.Exec("DELETE FROM channels WHERE server_id = ?", server.ID)
	if err != nil {
		a.sugar.Errorf("Couldn't delete archived channels of server ID [%d]: %v", server.ID, err)
		return
	}

	_, err = a.db.Exec("DELETE FROM servers WHERE id = ?", server.ID)
	if err != nil {
		a.sugar.Errorf("Couldn't delete archived server ID [%d]: %v", server.ID, err)
	}
}

func (a *Archive) saveChannel(channel *models.Channel) {
	var row channelRow
	a.guard(func() {
		row = toChannelRow(channel)
	})
	a.writeChannel(row)
}

func (a *Archive) writeChannel(row channelRow) {
	_, err := a.db.Exec("REPLACE INTO channels (id, server_id, name, topic) VALUES (?, ?, ?, ?)", row.id, row.serverID, row.name, row.topic)
	if err != nil {
		a.sugar.Errorf("Couldn't archive channel ID [%d]: %v", row.id, err)
	}
}

func (a *Archive) deleteChannel(channel *models.Channel) {
	_, err := a.db.Exec("DELETE FROM channels WHERE id = ?", channel.ID)
	if err != nil {
		a.sugar.Errorf("Couldn't delete archived channel ID [%d]: %v", channel.ID, err)
	}
}

func (a *Archive) saveMessage(message *models.Message) {
	if message == nil {
		return
	}

	var row messageRow
	a.guard(func() {
		row = messageRow{
			id:        message.ID,
			channelID: message.ChannelID,
			content:   message.Content,
			edited:    message.EditedAt != nil,
			createdAt: message.CreatedAt().UnixMilli(),
		}
		if message.Author != nil {
			row.userID = message.Author.ID
			row.username = message.Author.Username
			row.avatar = message.Author.Avatar
			row.bot = message.Author.Bot
		}
	})

	if row.userID != 0 {
		_, err := a.db.Exec("REPLACE INTO users (id, username, avatar, bot) VALUES (?, ?, ?, ?)", row.userID, row.username, row.avatar, row.bot)
		if err != nil {
			a.sugar.Errorf("Couldn't archive user ID [%d]: %v", row.userID, err)
		}
	}

	_, err := a.db.Exec("REPLACE INTO messages (id, channel_id, user_id, message, edited, deleted, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		row.id, row.channelID, row.userID, row.content, row.edited, false, row.createdAt)
	if err != nil {
		a.sugar.Errorf("Couldn't archive message ID [%d]: %v", row.id, err)
	}
}

func (a *Archive) deleteMessage(message *models.Message) {
	_, err := a.db.Exec("UPDATE messages SET deleted = ? WHERE id = ?", true, message.ID)
	if err != nil {
		a.sugar.Errorf("Couldn't flag archived message ID [%d] as deleted: %v", message.ID, err)
	}
}

// Messages returns up to limit archived messages of a channel, newest first.
func (a *Archive) Messages(ctx context.Context, channelID snowflake.ID, limit int) ([]ArchivedMessage, error) {
	rows, err := a.db.QueryContext(ctx, `
			SELECT m.id, m.channel_id, m.user_id, COALESCE(u.username, ''), m.message, m.edited, m.deleted, m.created_at
			FROM messages m
			LEFT JOIN users u ON u.id = m.user_id
			WHERE m.channel_id = ?
			ORDER BY m.id DESC
			LIMIT ?
		`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying archived messages of channel ID [%d]: %w", channelID, err)
	}
	defer rows.Close()

	messages := make([]ArchivedMessage, 0, limit)
	for rows.Next() {
		var message ArchivedMessage
		err = rows.Scan(&message.ID, &message.ChannelID, &message.UserID, &message.Username, &message.Message, &message.Edited, &message.Deleted, &message.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning archived message: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// ServerCount is the number of servers currently archived.
func (a *Archive) ServerCount(ctx context.Context) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM servers").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

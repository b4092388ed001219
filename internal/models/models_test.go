package models

import (
	"chatapp-gateway/internal/snowflake"
	"encoding/json"
	"testing"
)

func decodeUserData(t *testing.T, payload string) *UserData {
	t.Helper()
	var data UserData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		t.Fatal(err)
	}
	return &data
}

func TestUserUpdateKeepsAbsentFields(t *testing.T) {
	user := NewUser(decodeUserData(t, `{"id":"10","username":"dank","avatar":"a.png","presence":"online","bot":true}`))

	user.Update(decodeUserData(t, `{"id":"10","avatar":"b.png"}`))

	if user.Avatar != "b.png" {
		t.Errorf("avatar was not patched, got %s", user.Avatar)
	}
	if user.Username != "dank" || user.Presence != StatusOnline || !user.Bot {
		t.Errorf("absent fields were changed: %+v", user)
	}
}

func TestEmptyUpdateIsNoOp(t *testing.T) {
	user := NewUser(decodeUserData(t, `{"id":"10","username":"dank","admin":true}`))
	before := *user

	user.Update(decodeUserData(t, `{}`))

	if *user != before {
		t.Errorf("empty update changed user from %+v to %+v", before, *user)
	}
}

func TestNullFieldIsTreatedAsAbsent(t *testing.T) {
	user := NewUser(decodeUserData(t, `{"id":"10","username":"dank"}`))
	user.Update(decodeUserData(t, `{"username":null}`))
	if user.Username != "dank" {
		t.Errorf("null overwrote username, got %q", user.Username)
	}
}

func TestFalseValueIsApplied(t *testing.T) {
	user := NewUser(decodeUserData(t, `{"id":"10","bot":true}`))
	user.Update(decodeUserData(t, `{"bot":false}`))
	if user.Bot {
		t.Error("explicit false was not applied")
	}
}

func TestChannelUpdate(t *testing.T) {
	var create ChannelData
	if err := json.Unmarshal([]byte(`{"id":"5","server_id":"1","name":"general","topic":"hi","position":2}`), &create); err != nil {
		t.Fatal(err)
	}
	server := NewServer(1)
	channel := NewChannel(&create, server, 0)

	var patch ChannelData
	if err := json.Unmarshal([]byte(`{"id":"5","topic":"changed"}`), &patch); err != nil {
		t.Fatal(err)
	}
	channel.Update(&patch)

	if channel.Topic != "changed" || channel.Name != "general" || channel.Position != 2 {
		t.Errorf("unexpected channel after patch: %+v", channel)
	}
	if channel.Server != server || channel.ServerID != 1 {
		t.Error("channel lost its server back reference")
	}
	if channel.Messages.Limit() != DefaultMessageCacheSize {
		t.Errorf("expected default cache size, got %d", channel.Messages.Limit())
	}
}

func TestMemberPresencePlaceholder(t *testing.T) {
	server := NewServer(1)
	user := NewUser(&UserData{ID: 7})
	member := NewMember(server, user)

	if member.Presence == nil {
		t.Fatal("member was created without a presence")
	}
	if member.Presence.UserID != 7 || member.Presence.Status != StatusOffline {
		t.Errorf("unexpected placeholder presence: %+v", member.Presence)
	}

	idle := StatusIdle
	member.Presence.Update(&PresenceData{Status: &idle})
	member.Presence.Update(&PresenceData{Activity: &Activity{Name: "chess"}})
	if member.Presence.Status != StatusIdle || member.Presence.Activity.Name != "chess" {
		t.Errorf("unexpected presence after patches: %+v", member.Presence)
	}
}

func TestMemberIsOwner(t *testing.T) {
	owner := snowflake.ID(7)
	server := NewServer(1)
	server.Update(&ServerData{OwnerID: &owner})

	if !NewMember(server, NewUser(&UserData{ID: 7})).IsOwner() {
		t.Error("expected member 7 to own the server")
	}
	if NewMember(server, NewUser(&UserData{ID: 8})).IsOwner() {
		t.Error("member 8 does not own the server")
	}
}

func TestEntityCreatedAt(t *testing.T) {
	id := snowflake.ID(4194303 * 60_000)
	user := NewUser(&UserData{ID: id})
	if user.CreatedAt().UnixMilli() != snowflake.CreatedAt(int64(id)) {
		t.Errorf("createdAt %v does not match decoded snowflake", user.CreatedAt())
	}
}

func TestMessageCacheEviction(t *testing.T) {
	cache := NewMessageCache(2)

	first := &Message{Entity: Entity{ID: 1}}
	second := &Message{Entity: Entity{ID: 2}}
	third := &Message{Entity: Entity{ID: 3}}

	if evicted := cache.Set(first); evicted != nil {
		t.Fatal("nothing should be evicted yet")
	}
	cache.Set(second)
	// replacing an existing message does not evict
	if evicted := cache.Set(&Message{Entity: Entity{ID: 1}, Content: "edited"}); evicted != nil {
		t.Fatal("replacing a cached message evicted one")
	}

	evicted := cache.Set(third)
	if evicted == nil || evicted.ID != 1 {
		t.Fatalf("expected message 1 to be evicted, got %+v", evicted)
	}
	if _, exists := cache.Get(1); exists {
		t.Error("evicted message is still cached")
	}
	if cache.Len() != 2 {
		t.Errorf("expected 2 cached messages, got %d", cache.Len())
	}

	values := cache.Values()
	if values[0].ID != 2 || values[1].ID != 3 {
		t.Errorf("unexpected order: %d, %d", values[0].ID, values[1].ID)
	}
}

func TestMessageCacheDelete(t *testing.T) {
	cache := NewMessageCache(3)
	for id := range 3 {
		cache.Set(&Message{Entity: Entity{ID: snowflake.ID(id + 1)}})
	}

	removed, ok := cache.Delete(2)
	if !ok || removed.ID != 2 {
		t.Fatal("expected message 2 to be removed")
	}
	if _, ok := cache.Delete(2); ok {
		t.Error("deleting twice should report a miss")
	}

	cache.Set(&Message{Entity: Entity{ID: 4}})
	if cache.Len() != 3 {
		t.Errorf("expected 3 cached messages, got %d", cache.Len())
	}
	if _, exists := cache.Get(1); !exists {
		t.Error("message 1 should not have been evicted after a delete freed a slot")
	}
}

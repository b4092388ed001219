package status

import (
	"encoding/json"
	"net/http"
	"strconv"

	"chatapp-gateway/internal/snowflake"

	"github.com/go-chi/chi/v5"
)

const (
	defaultArchiveLimit = 50
	maxArchiveLimit     = 500
)

type statusResponse struct {
	Status   string       `json:"status"`
	PingMs   *int64       `json:"pingMs"`
	Ready    bool         `json:"ready"`
	UserID   snowflake.ID `json:"userID,omitempty"`
	Username string       `json:"username,omitempty"`
	Servers  int          `json:"servers"`
	Users    int          `json:"users"`
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(value)
}

func parseID(r *http.Request, param string) (snowflake.ID, bool) {
	id, err := snowflake.Parse(chi.URLParam(r, param))
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := s.source.Store()

	response := statusResponse{
		Status:  string(s.source.Status()),
		Ready:   s.source.Ready(),
		Servers: len(st.Servers()),
		Users:   st.UserCount(),
	}

	if latency, ok := s.source.Ping(); ok {
		ms := latency.Milliseconds()
		response.PingMs = &ms
	}

	if user := s.source.User(); user != nil {
		st.View(func() {
			response.UserID = user.ID
			response.Username = user.Username
		})
	}

	writeJSON(w, response)
}

func (s *Server) GetServerList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.source.Store().Summaries())
}

func (s *Server) GetServer(w http.ResponseWriter, r *http.Request) {
	serverID, ok := parseID(r, "serverID")
	if !ok {
		http.Error(w, "Invalid server ID", http.StatusBadRequest)
		return
	}

	summary, exists := s.source.Store().Summary(serverID)
	if !exists {
		http.Error(w, "Server is not cached", http.StatusNotFound)
		return
	}
	writeJSON(w, summary)
}

func (s *Server) GetMessageList(w http.ResponseWriter, r *http.Request) {
	serverID, ok := parseID(r, "serverID")
	if !ok {
		http.Error(w, "Invalid server ID", http.StatusBadRequest)
		return
	}
	channelID, ok := parseID(r, "channelID")
	if !ok {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return
	}

	messages, exists := s.source.Store().ChannelMessages(serverID, channelID)
	if !exists {
		http.Error(w, "Channel is not cached", http.StatusNotFound)
		return
	}
	writeJSON(w, messages)
}

func (s *Server) GetArchivedMessageList(w http.ResponseWriter, r *http.Request) {
	channelID, ok := parseID(r, "channelID")
	if !ok {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return
	}

	limit := defaultArchiveLimit
	if value := r.URL.Query().Get("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 || parsed > maxArchiveLimit {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	messages, err := s.history.Messages(r.Context(), channelID, limit)
	if err != nil {
		s.sugar.Error(err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	writeJSON(w, messages)
}

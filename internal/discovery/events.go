package discovery

// Event names pushed to clients over the streaming channel.
const (
	EventConnected           = "connected"
	EventUserInfo            = "user_info"
	EventClear               = "clear"
	EventLibraryUpdate       = "library_update"
	EventArtistsLoaded       = "artists_loaded"
	EventInitialLoadComplete = "initial_load_complete"
	EventLoadMoreComplete    = "load_more_complete"
	EventToast               = "toast"
	EventArtistStatus        = "artist_status"
	EventPersonalSources     = "personal_sources_state"
	EventAIPromptAck         = "ai_prompt_ack"
	EventAIPromptError       = "ai_prompt_error"
	EventUserRecsAck         = "user_recs_ack"
	EventUserRecsError       = "user_recs_error"
)

// LibraryItem is one catalog entry in a session's sidebar snapshot.
type LibraryItem struct {
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// LibraryUpdate carries the sidebar state: the catalog snapshot plus whether a
// discovery run is in progress.
type LibraryUpdate struct {
	Status  string        `json:"status"` // "success" or "error"
	Code    int           `json:"code,omitempty"`
	Error   string        `json:"error,omitempty"`
	Artists []LibraryItem `json:"artists"`
	Running bool          `json:"running"`
}

// BatchComplete signals the end of one result window.
type BatchComplete struct {
	HasMore bool `json:"hasMore"`
}

// Toast is a transient user-visible notification.
type Toast struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// UserInfo tells the client who it is connected as.
type UserInfo struct {
	IsAdmin bool `json:"isAdmin"`
}

// ErrorMessage is a user-visible failure for a specific flow.
type ErrorMessage struct {
	Message string `json:"message"`
}

// SourceState describes whether one personal discovery source is usable.
type SourceState struct {
	Enabled    bool   `json:"enabled"`
	Configured bool   `json:"configured"`
	Username   string `json:"username,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// PersonalSourcesState lists the availability of every personal source.
type PersonalSourcesState struct {
	LastFM SourceState `json:"lastfm"`
}

// SeedAck acknowledges a seed-generation flow (AI prompt or personal recs).
type SeedAck struct {
	Source   string   `json:"source,omitempty"`
	Username string   `json:"username,omitempty"`
	Seeds    []string `json:"seeds"`
	Skipped  []string `json:"skipped,omitempty"`
}

package state

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
)

// StagedFile is a downloaded file held on behalf of a session.
type StagedFile struct {
	Path string `json:"path"`
	Role string `json:"role,omitempty"`
}

// Session is a point-in-time copy of a user's conversation.
type Session struct {
	State  State
	Files  []StagedFile
	Params map[string]string
}

// Paths returns the paths of all staged files followed by path-like params.
func (s Session) Paths(paramKeys ...string) []string {
	out := make([]string, 0, len(s.Files)+len(paramKeys))
	for _, f := range s.Files {
		out = append(out, f.Path)
	}
	for _, k := range paramKeys {
		if v := s.Params[k]; v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s Session) clone() Session {
	out := Session{State: s.State}
	if len(s.Files) > 0 {
		out.Files = append([]StagedFile(nil), s.Files...)
	}
	out.Params = make(map[string]string, len(s.Params))
	for k, v := range s.Params {
		out.Params[k] = v
	}
	return out
}

// Manager stores user sessions. Implementations must be safe for concurrent use.
type Manager interface {
	Get(userID int64) Session

	// Dialog state
	SetState(userID int64, st State)
	GetState(userID int64) State
	HasState(userID int64) bool
	ClearState(userID int64)
	InProgress(userID int64) bool

	// Staged files, in upload order
	Files(userID int64) []StagedFile
	AddFile(userID int64, f StagedFile) int
	ClearFiles(userID int64)

	// Pending parameters
	GetParam(userID int64, key string) (string, bool)
	SetParam(userID int64, key, value string)
	ClearParams(userID int64)

	// ClearAll resets state, files and params. Language is kept.
	ClearAll(userID int64)

	Language(userID int64) string
	SetLanguage(userID int64, lang string)

	// Active reports the number of sessions with a flow in progress.
	Active() int
}

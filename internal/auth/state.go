package auth

// State is the single source of truth for the identity of the client.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateAuthenticating
	StateAuthenticated
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent view of the controller at a point in time.
type Snapshot struct {
	State         State
	WalletAddress string
	// Err is set only in StateError and holds a human-readable reason.
	Err error
	// Epoch changes every time the identity is invalidated (disconnect, account switch, logout).
	Epoch uint64
}

func (s Snapshot) IsAuthenticated() bool  { return s.State == StateAuthenticated }
func (s Snapshot) IsAuthenticating() bool { return s.State == StateAuthenticating }
func (s Snapshot) HasError() bool         { return s.State == StateError }

package transfer

import (
	"encoding/json"

	"github.com/jonwraymond/relayops/ratelimit"
)

// Target identifies one blob at one peer.
type Target struct {
	// Name is the logical identity (repository/blob reference).
	Name string

	// InitiateURL starts an upload; the peer answers with the upload
	// location in a Location header.
	InitiateURL string

	// DownloadURL serves the blob, honoring Range requests.
	DownloadURL string

	// Adapter and Category route the transfer's requests through the
	// executor's breaker and quota state.
	Adapter  string
	Category ratelimit.Category
}

// Session is the resumable state of one upload. It is serializable so a
// retry after a process restart does not restart from byte zero; storage
// of the serialized form is the caller's concern.
type Session struct {
	// Target is the logical blob identity.
	Target string `json:"target"`

	// Expected is the digest the peer will verify at commit.
	Expected Digest `json:"expected"`

	// TotalSize is the blob size in bytes.
	TotalSize int64 `json:"total_size"`

	// Bytes is how many bytes the peer has acknowledged.
	Bytes int64 `json:"bytes"`

	// Location is the peer's upload cursor URL.
	Location string `json:"location"`
}

// Marshal serializes the session state.
func (s *Session) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSession reconstructs a session from its serialized form.
func UnmarshalSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

package domain

import (
	"encoding/json"
	"time"
)

// Role is the participant kind carried by a verified identity.
type Role string

const (
	RoleArtist Role = "artist"
	RoleExec   Role = "exec"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleArtist, RoleExec, RoleAdmin:
		return true
	}
	return false
}

// Identity is what the identity resolver vouches for. It is fixed for the
// lifetime of a connection.
type Identity struct {
	UserID int64
	Role   Role
}

type DealStatus string

const (
	DealPending   DealStatus = "pending"
	DealCountered DealStatus = "countered"
	DealAccepted  DealStatus = "accepted"
	DealRejected  DealStatus = "rejected"
	DealCancelled DealStatus = "cancelled"
)

func (s DealStatus) Valid() bool {
	switch s {
	case DealPending, DealCountered, DealAccepted, DealRejected, DealCancelled:
		return true
	}
	return false
}

// Deal is a negotiation between one artist and one exec over a track.
// Version increases by one on every committed update.
type Deal struct {
	ID        int64           `json:"id"`
	ArtistID  int64           `json:"artistId"`
	ExecID    int64           `json:"execId"`
	TrackID   int64           `json:"trackId"`
	Status    DealStatus      `json:"status"`
	Terms     json.RawMessage `json:"terms,omitempty"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// IsParticipant reports whether userID is the artist or the exec of the deal.
func (d Deal) IsParticipant(userID int64) bool {
	return userID == d.ArtistID || userID == d.ExecID
}

// CanView reports whether id may read the deal.
func (d Deal) CanView(id Identity) bool {
	return id.Role == RoleAdmin || d.IsParticipant(id.UserID)
}

// DealFilter narrows ListDeals. A zero ParticipantID means every deal.
type DealFilter struct {
	ParticipantID int64
	Status        DealStatus
	Limit         int
}

// DealPatch carries the mutable parts of a deal. Nil fields are left as is.
type DealPatch struct {
	Status *DealStatus     `json:"status,omitempty"`
	Terms  json.RawMessage `json:"terms,omitempty"`
}

func (p DealPatch) Empty() bool {
	return p.Status == nil && len(p.Terms) == 0
}

func (p DealPatch) Validate() error {
	if p.Empty() {
		return ErrEmptyPatch
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if len(p.Terms) > 0 && !json.Valid(p.Terms) {
		return ErrInvalidTerms
	}
	return nil
}

// Session is the server side record behind a session token.
type Session struct {
	ID        string
	Identity  Identity
	ExpiresAt time.Time
}

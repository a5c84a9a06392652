// ABOUTME: Profile record and derived classification types
// ABOUTME: Shared by the metadata store, vector index payloads, and the pipeline
package models

import "time"

// FollowerCategory is a coarse follower-count tier.
type FollowerCategory string

const (
	FollowerNone  FollowerCategory = "none"
	FollowerNano  FollowerCategory = "nano"
	FollowerMicro FollowerCategory = "micro"
	FollowerMacro FollowerCategory = "macro"
	FollowerMega  FollowerCategory = "mega"
)

// AccountType classifies who operates a profile.
type AccountType string

const (
	AccountHuman   AccountType = "human"
	AccountBrand   AccountType = "brand"
	AccountUnknown AccountType = "unknown"
)

// Profile is a social-media profile as held in the metadata store.
// ProfileID is immutable; everything else may be patched by later
// enrichment passes.
type Profile struct {
	ProfileID        int64            `json:"user_id"`
	Username         string           `json:"username,omitempty"`
	FullName         string           `json:"full_name,omitempty"`
	Bio              string           `json:"bio,omitempty"`
	IsPrivate        bool             `json:"is_private"`
	FollowerCount    int64            `json:"follower_count,omitempty"`
	FollowerCountRaw string           `json:"follower_count_raw,omitempty"`
	FollowerCategory FollowerCategory `json:"follower_category,omitempty"`
	AccountType      AccountType      `json:"account_type,omitempty"`
	ProfilePicURL    string           `json:"profile_pic_url,omitempty"`
	PostImageURLs    []string         `json:"post_image_urls,omitempty"`
	Captions         []string         `json:"captions,omitempty"`
	UpdatedAt        time.Time        `json:"updated_at,omitempty"`
}

// HasFollowerCount reports whether a follower count is known.
// A stored zero means "unknown", not "zero followers".
func (p *Profile) HasFollowerCount() bool {
	return p.FollowerCount > 0
}

// Payload is the metadata attached to a stored vector. It is what
// a search returns alongside the score.
type Payload struct {
	Username         string           `json:"username,omitempty"`
	UserID           int64            `json:"user_id"`
	FullName         string           `json:"full_name,omitempty"`
	IsPrivate        bool             `json:"is_private"`
	FollowerCount    int64            `json:"follower_count,omitempty"`
	FollowerCategory FollowerCategory `json:"follower_category,omitempty"`
	AccountType      AccountType      `json:"account_type,omitempty"`
	ProfilePicURL    string           `json:"profile_pic_url,omitempty"`
}

// PayloadPatch is a partial payload update. Nil fields are left
// untouched by SetPayload.
type PayloadPatch struct {
	Username         *string           `json:"username,omitempty"`
	FullName         *string           `json:"full_name,omitempty"`
	FollowerCount    *int64            `json:"follower_count,omitempty"`
	FollowerCategory *FollowerCategory `json:"follower_category,omitempty"`
	AccountType      *AccountType      `json:"account_type,omitempty"`
}

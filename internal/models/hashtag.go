package models

// TargetKind discriminates what a hashtag mapping points at.
type TargetKind string

const (
	TargetCard             TargetKind = "card"
	TargetSection          TargetKind = "section"
	TargetItemType         TargetKind = "item_type"
	TargetTermResourceKind TargetKind = "term_resource_kind"
)

// HashtagAlias is a normalized caption token. Alias text is unique per
// normalized form; matching is case-insensitive.
type HashtagAlias struct {
	ID         string  `db:"id" json:"id"`
	Alias      string  `db:"alias" json:"alias"`
	Normalized string  `db:"normalized" json:"normalized"`
	Lang       *string `db:"lang" json:"lang,omitempty"`
}

// HashtagMapping binds one alias to exactly one taxonomy target. An alias has
// at most one active mapping.
type HashtagMapping struct {
	ID           string     `db:"id" json:"id"`
	AliasID      string     `db:"alias_id" json:"alias_id"`
	TargetKind   TargetKind `db:"target_kind" json:"target_kind"`
	TargetID     string     `db:"target_id" json:"target_id"`
	IsContentTag bool       `db:"is_content_tag" json:"is_content_tag"`
	Overrides    *string    `db:"overrides" json:"overrides,omitempty"`
}

// AliasMapping is the joined row the resolver works with.
type AliasMapping struct {
	AliasID      string     `db:"alias_id" json:"alias_id"`
	Alias        string     `db:"alias" json:"alias"`
	Normalized   string     `db:"normalized" json:"normalized"`
	MappingID    string     `db:"mapping_id" json:"mapping_id"`
	TargetKind   TargetKind `db:"target_kind" json:"target_kind"`
	TargetID     string     `db:"target_id" json:"target_id"`
	IsContentTag bool       `db:"is_content_tag" json:"is_content_tag"`
	Overrides    *string    `db:"overrides" json:"overrides,omitempty"`
}

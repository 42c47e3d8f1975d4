package dto

import "strings"

// NodeKind names one level of the browsing hierarchy.
type NodeKind string

const (
	NodeRoot     NodeKind = "root"
	NodeLevel    NodeKind = "level"
	NodeTerm     NodeKind = "term"
	NodeSubject  NodeKind = "subject"
	NodeSection  NodeKind = "section"
	NodeCard     NodeKind = "card"
	NodeResource NodeKind = "resource"
)

// NodeRef is one scoped selector on the path from root.
type NodeRef struct {
	Kind  NodeKind `json:"kind"`
	ID    string   `json:"id"`
	Label string   `json:"label"`
}

// NodePath is a Nav Node Identity: the ordered selectors from root to the
// current position. It is reconstructed per session, never persisted.
type NodePath []NodeRef

// Current returns the tail selector, or a root sentinel on an empty path.
func (p NodePath) Current() NodeRef {
	if len(p) == 0 {
		return NodeRef{Kind: NodeRoot}
	}
	return p[len(p)-1]
}

// ID returns the id of the selector with the given kind, or "".
func (p NodePath) ID(kind NodeKind) string {
	for _, ref := range p {
		if ref.Kind == kind {
			return ref.ID
		}
	}
	return ""
}

// CacheKey renders a stable textual identity usable as a cache key part.
func (p NodePath) CacheKey() string {
	if len(p) == 0 {
		return string(NodeRoot)
	}
	parts := make([]string, 0, len(p))
	for _, ref := range p {
		parts = append(parts, string(ref.Kind)+":"+ref.ID)
	}
	return strings.Join(parts, "/")
}

// Breadcrumb returns the labels root-first.
func (p NodePath) Breadcrumb() []string {
	crumbs := make([]string, 0, len(p))
	for _, ref := range p {
		if ref.Label != "" {
			crumbs = append(crumbs, ref.Label)
		}
	}
	return crumbs
}

// NodeDescriptor describes one child available at the current position.
type NodeDescriptor struct {
	Key   string   `json:"key"`
	Label string   `json:"label"`
	Kind  NodeKind `json:"kind"`
	Leaf  bool     `json:"leaf"`
}

// NavAction is a navigation request kind.
type NavAction string

const (
	NavEnter NavAction = "enter"
	NavBack  NavAction = "back"
	NavReset NavAction = "reset"
)

// NavigateRequest drives one step of navigation for a session.
type NavigateRequest struct {
	SessionID string    `json:"session_id" validate:"required"`
	Action    NavAction `json:"action" validate:"required,oneof=enter back reset"`
	ChildKey  string    `json:"child_key,omitempty"`
}

// MaterialLeaf is one content row resolved at a leaf node.
type MaterialLeaf struct {
	ID            string `db:"id" json:"id"`
	Title         string `db:"title" json:"title"`
	URL           string `db:"url" json:"url,omitempty"`
	StorageChatID int64  `db:"storage_chat_id" json:"storage_chat_id,omitempty"`
	StorageMsgID  int64  `db:"storage_msg_id" json:"storage_msg_id,omitempty"`
	Year          string `db:"year" json:"year,omitempty"`
	Lecturer      string `db:"lecturer" json:"lecturer,omitempty"`
	LectureNo     int    `db:"lecture_no" json:"lecture_no,omitempty"`
}

// TermResourceLeaf is the latest term resource resolved at a leaf node.
type TermResourceLeaf struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	StorageChatID int64  `json:"storage_chat_id"`
	StorageMsgID  int64  `json:"storage_msg_id"`
}

// LeafContent carries whichever content a leaf resolves to. Empty slices
// mean no content is available, which is a normal result.
type LeafContent struct {
	Materials    []MaterialLeaf    `json:"materials,omitempty"`
	TermResource *TermResourceLeaf `json:"term_resource,omitempty"`
}

// NavigateResponse is the state rendered after one navigation step.
type NavigateResponse struct {
	Nodes      []NodeDescriptor `json:"nodes"`
	Breadcrumb []string         `json:"breadcrumb"`
	Leaf       *LeafContent     `json:"leaf,omitempty"`
}

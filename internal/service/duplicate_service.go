package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/internal/parser"
)

// Fingerprint derives the duplicate-detection identity of a submission.
// The transport's stable file id wins; link and text submissions hash
// their normalized URL or title instead.
func Fingerprint(sub dto.Submission, title string) string {
	if sub.FileUniqueID != nil && *sub.FileUniqueID != "" {
		return *sub.FileUniqueID
	}
	var seed string
	if sub.URL != nil && *sub.URL != "" {
		seed = "url:" + strings.TrimRight(strings.ToLower(strings.TrimSpace(*sub.URL)), "/")
	} else {
		seed = "title:" + parser.Normalize(title)
	}
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// scopeKey renders the duplicate scope of a material as a lock key.
func scopeKey(fingerprint string, scope models.MaterialScope) string {
	b := strings.Builder{}
	b.WriteString(fingerprint)
	b.WriteString("|")
	b.WriteString(scope.SubjectID)
	b.WriteString("|")
	b.WriteString(scope.SectionID)
	b.WriteString("|")
	b.WriteString(scope.ItemTypeID)
	if scope.YearID != nil {
		b.WriteString("|y:" + *scope.YearID)
	}
	if scope.LecturerID != nil {
		b.WriteString("|l:" + *scope.LecturerID)
	}
	if scope.LectureNo != nil {
		b.WriteString(fmt.Sprintf("|n:%d", *scope.LectureNo))
	}
	return b.String()
}

// DuplicateGuard serializes check-then-insert sequences per duplicate
// scope within this process. The database unique index remains the real
// guarantee; the guard just turns most races into clean duplicate replies
// instead of constraint errors.
type DuplicateGuard struct {
	mu    sync.Mutex
	locks map[string]*scopeLock
}

type scopeLock struct {
	mu   sync.Mutex
	refs int
}

// NewDuplicateGuard constructs a guard.
func NewDuplicateGuard() *DuplicateGuard {
	return &DuplicateGuard{locks: map[string]*scopeLock{}}
}

// Lock acquires the scope's lock and returns the release func. Lock entries
// are dropped once the last holder releases, so the map stays bounded.
func (g *DuplicateGuard) Lock(key string) func() {
	g.mu.Lock()
	l, ok := g.locks[key]
	if !ok {
		l = &scopeLock{}
		g.locks[key] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, key)
		}
		g.mu.Unlock()
	}
}

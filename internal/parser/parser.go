// Package parser turns free-form caption text into a structured, validated
// tag sequence. Alias resolution is delegated to a TagResolver so the
// ordering policy stays independent of how mappings are stored.
package parser

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noor-edu/archive-api/internal/models"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

var (
	yearTagRe    = regexp.MustCompile(`^#(\d{4})(?:هـ|ه)?$`)
	lectureTagRe = regexp.MustCompile(`^#([^_\s]+)_(.+?)(?::\s*(.+))?$`)
)

// ResolvedTag is what the TagResolver knows about one alias: its mapping
// target plus the item-type flags the parser needs for validation.
type ResolvedTag struct {
	Alias           string
	Kind            models.TargetKind
	TargetID        string
	IsContentTag    bool
	RequiresLecture bool
	AllowsYear      bool
	AllowsLecturer  bool
}

// TagResolver resolves a normalized alias. A nil tag with a nil error means
// the alias is unknown.
type TagResolver interface {
	ResolveTag(ctx context.Context, alias string) (*ResolvedTag, error)
}

// Tag is one recognized #token in its original order.
type Tag struct {
	Raw      string
	Alias    string
	Position int
}

// Result is a successful parse. Tags holds every extracted tag in caption
// order; Resolved holds the subset that resolved through the alias table,
// which the resolver uses for term-resource detection.
type Result struct {
	Content      *ResolvedTag
	LectureNo    *int
	Title        string
	Year         *string
	Lecturer     *string
	Tags         []Tag
	Resolved     []ResolvedTag
	Unrecognized []string
	Dropped      []string
}

// Parser applies the caption tag policy.
type Parser struct {
	resolver TagResolver
	logger   *zap.Logger
}

// New builds a Parser.
func New(resolver TagResolver, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{resolver: resolver, logger: logger}
}

// Parse extracts and validates the caption's tags. Violations are returned
// as typed errors from pkg/errors; the partially filled Result accompanies
// them so callers can audit what was seen.
func (p *Parser) Parse(ctx context.Context, caption string) (*Result, error) {
	cleaned := Clean(caption)
	res := &Result{}

	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		token := strings.Fields(line)[0]
		res.Tags = append(res.Tags, Tag{
			Raw:      line,
			Alias:    strings.TrimPrefix(token, "#"),
			Position: len(res.Tags),
		})
	}

	if len(res.Tags) == 0 {
		return res, appErrors.ErrMissingContentTag
	}

	for _, tag := range res.Tags {
		if res.Content == nil {
			if err := p.consumeContent(ctx, res, tag); err != nil {
				return res, err
			}
			continue
		}
		if err := p.consumeMeta(ctx, res, tag); err != nil {
			return res, err
		}
	}

	if res.Content == nil {
		return res, appErrors.ErrMissingContentTag
	}
	if res.Content.RequiresLecture && res.LectureNo == nil {
		return res, appErrors.ErrLectureNoRequired
	}

	// Year/lecturer tags on item types that disallow them are dropped, not
	// fatal; the coordinator may promote this to a rejection.
	if res.Year != nil && !res.Content.AllowsYear {
		res.Dropped = append(res.Dropped, "#"+*res.Year)
		res.Year = nil
	}
	if res.Lecturer != nil && !res.Content.AllowsLecturer {
		res.Dropped = append(res.Dropped, *res.Lecturer)
		res.Lecturer = nil
	}

	return res, nil
}

// consumeContent handles tags seen before the content tag was found. Only
// the content tag itself is legal in this position.
func (p *Parser) consumeContent(ctx context.Context, res *Result, tag Tag) error {
	resolved, err := p.resolver.ResolveTag(ctx, Normalize(tag.Alias))
	if err != nil {
		return fmt.Errorf("resolve tag %q: %w", tag.Alias, err)
	}
	if resolved == nil {
		if p.isMetaTag(tag) {
			return appErrors.ErrLeadingTag
		}
		return appErrors.ErrUnknownAlias
	}
	if !resolved.IsContentTag {
		return appErrors.ErrLeadingTag
	}
	res.Content = resolved
	res.Resolved = append(res.Resolved, *resolved)
	return nil
}

// consumeMeta handles tags after the content tag: year, lecturer, lecture
// number and any further mapped or unrecognized tags.
func (p *Parser) consumeMeta(ctx context.Context, res *Result, tag Tag) error {
	token := "#" + tag.Alias
	if m := yearTagRe.FindStringSubmatch(token); m != nil && res.Year == nil {
		year := m[1]
		res.Year = &year
		return nil
	}

	if res.Lecturer == nil {
		for _, prefix := range lecturerPrefixes {
			if strings.HasPrefix(tag.Alias, prefix) {
				name := DisplayName(strings.TrimPrefix(tag.Alias, prefix))
				if name != "" {
					res.Lecturer = &name
					return nil
				}
			}
		}
	}

	if m := lectureTagRe.FindStringSubmatch(tag.Raw); m != nil && res.LectureNo == nil {
		prefixResolved, err := p.resolver.ResolveTag(ctx, Normalize(m[1]))
		if err != nil {
			return fmt.Errorf("resolve lecture prefix %q: %w", m[1], err)
		}
		if prefixResolved != nil {
			no, err := parseLectureNo(strings.TrimSpace(m[2]))
			if err != nil {
				return err
			}
			res.LectureNo = &no
			if m[3] != "" {
				res.Title = strings.TrimSpace(m[3])
			}
			return nil
		}
	}

	resolved, err := p.resolver.ResolveTag(ctx, Normalize(tag.Alias))
	if err != nil {
		return fmt.Errorf("resolve tag %q: %w", tag.Alias, err)
	}
	if resolved == nil {
		res.Unrecognized = append(res.Unrecognized, token)
		return nil
	}
	if resolved.IsContentTag {
		return appErrors.ErrAmbiguousContentTag
	}
	res.Resolved = append(res.Resolved, *resolved)
	return nil
}

// isMetaTag reports whether the tag matches one of the special caption
// forms (year, lecturer, lecture number).
func (p *Parser) isMetaTag(tag Tag) bool {
	if yearTagRe.MatchString("#" + tag.Alias) {
		return true
	}
	for _, prefix := range lecturerPrefixes {
		if strings.HasPrefix(tag.Alias, prefix) {
			return true
		}
	}
	return lectureTagRe.MatchString(tag.Raw)
}

func parseLectureNo(ident string) (int, error) {
	if n, err := strconv.Atoi(ident); err == nil {
		if n <= 0 {
			return 0, appErrors.ErrInvalidLectureNo
		}
		return n, nil
	}
	if n, ok := arabicOrdinals[ident]; ok {
		return n, nil
	}
	return 0, appErrors.ErrInvalidLectureNo
}

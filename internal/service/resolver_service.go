package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/internal/parser"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

type resolverAliasStore interface {
	ResolveAlias(ctx context.Context, normalized string) (*models.AliasMapping, error)
}

type resolverTaxonomyStore interface {
	GetSection(ctx context.Context, id string) (*models.Section, error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
	GetCardByKey(ctx context.Context, key string) (*models.Card, error)
	GetItemType(ctx context.Context, id string) (*models.ItemType, error)
	GetItemTypeByKey(ctx context.Context, key string) (*models.ItemType, error)
}

// ContentClass is the storage target a parsed caption resolves to: either a
// (card, item type) pair for subject materials or a term resource kind.
type ContentClass struct {
	CardID           string
	CardKey          string
	CardLabel        string
	ItemTypeID       string
	ItemTypeKey      string
	SectionID        string
	SectionLabel     string
	TermResourceKind string
}

// IsTermResource reports whether the submission targets a level+term
// resource instead of a subject material.
func (c *ContentClass) IsTermResource() bool {
	return c.TermResourceKind != ""
}

// mappingOverrides is the optional JSON blob on a hashtag mapping that
// redirects the derived counterpart (e.g. an exam item type stored under
// the exams card).
type mappingOverrides struct {
	Card     string `json:"card,omitempty"`
	ItemType string `json:"item_type,omitempty"`
}

// ResolverService resolves caption aliases against the mapping table and
// classifies parse results. It implements parser.TagResolver.
type ResolverService struct {
	aliases  resolverAliasStore
	taxonomy resolverTaxonomyStore
	logger   *zap.Logger
}

// NewResolverService constructs a ResolverService.
func NewResolverService(aliases resolverAliasStore, taxonomy resolverTaxonomyStore, logger *zap.Logger) *ResolverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolverService{aliases: aliases, taxonomy: taxonomy, logger: logger}
}

// ResolveTag looks up a normalized alias and annotates it with the item
// type flags the caption policy validates against. A nil result with a nil
// error means the alias is unknown.
func (s *ResolverService) ResolveTag(ctx context.Context, alias string) (*parser.ResolvedTag, error) {
	row, err := s.aliases.ResolveAlias(ctx, alias)
	if err != nil {
		return nil, fmt.Errorf("resolve alias %q: %w", alias, err)
	}
	if row == nil {
		return nil, nil
	}

	tag := &parser.ResolvedTag{
		Alias:        row.Alias,
		Kind:         row.TargetKind,
		TargetID:     row.TargetID,
		IsContentTag: row.IsContentTag,
	}

	switch row.TargetKind {
	case models.TargetItemType:
		it, err := s.taxonomy.GetItemType(ctx, row.TargetID)
		if err != nil {
			return nil, fmt.Errorf("load item type for alias %q: %w", alias, err)
		}
		if it != nil {
			tag.RequiresLecture = it.RequiresLecture
			tag.AllowsYear = it.AllowsYear
			tag.AllowsLecturer = it.AllowsLecturer
		}
	case models.TargetCard:
		// Card-mapped content tags inherit their flags from the derived
		// item type so lecture-number validation still applies.
		it, err := s.itemTypeForCardTarget(ctx, row)
		if err != nil {
			return nil, err
		}
		if it != nil {
			tag.RequiresLecture = it.RequiresLecture
			tag.AllowsYear = it.AllowsYear
			tag.AllowsLecturer = it.AllowsLecturer
		}
	}

	return tag, nil
}

// Classify turns a successful parse into a storage target. Mixing a
// term-resource tag with card or item-type tags is a violation; a subject
// material must resolve to both a card and an item type.
func (s *ResolverService) Classify(ctx context.Context, res *parser.Result) (*ContentClass, error) {
	if res == nil || res.Content == nil {
		return nil, appErrors.ErrMissingContentTag
	}

	if res.Content.Kind == models.TargetTermResourceKind {
		for _, r := range res.Resolved {
			if r.Kind == models.TargetCard || r.Kind == models.TargetItemType {
				return nil, appErrors.ErrConflictingTagKinds
			}
		}
		return &ContentClass{TermResourceKind: res.Content.TargetID}, nil
	}

	for _, r := range res.Resolved {
		if r.Kind == models.TargetTermResourceKind {
			return nil, appErrors.ErrConflictingTagKinds
		}
	}

	row, err := s.aliases.ResolveAlias(ctx, parser.Normalize(res.Content.Alias))
	if err != nil {
		return nil, fmt.Errorf("reload content mapping: %w", err)
	}
	if row == nil {
		return nil, appErrors.ErrUnknownAlias
	}

	class := &ContentClass{}
	switch row.TargetKind {
	case models.TargetCard:
		card, err := s.taxonomy.GetCard(ctx, row.TargetID)
		if err != nil {
			return nil, fmt.Errorf("load card: %w", err)
		}
		if card == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content tag points at a missing card")
		}
		if !card.IsEnabled {
			return nil, appErrors.Clone(appErrors.ErrDisabledTaxonomy, "card "+card.Key+" is disabled")
		}
		it, err := s.itemTypeForCardTarget(ctx, row)
		if err != nil {
			return nil, err
		}
		if it == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no item type matches card "+card.Key)
		}
		if !it.IsEnabled {
			return nil, appErrors.Clone(appErrors.ErrDisabledTaxonomy, "item type "+it.Key+" is disabled")
		}
		class.CardID, class.CardKey, class.CardLabel = card.ID, card.Key, card.LabelAR
		class.ItemTypeID, class.ItemTypeKey = it.ID, it.Key

	case models.TargetItemType:
		it, err := s.taxonomy.GetItemType(ctx, row.TargetID)
		if err != nil {
			return nil, fmt.Errorf("load item type: %w", err)
		}
		if it == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content tag points at a missing item type")
		}
		if !it.IsEnabled {
			return nil, appErrors.Clone(appErrors.ErrDisabledTaxonomy, "item type "+it.Key+" is disabled")
		}
		cardKey := it.Key
		if ov := s.parseOverrides(row.Overrides); ov != nil && ov.Card != "" {
			cardKey = ov.Card
		}
		card, err := s.taxonomy.GetCardByKey(ctx, cardKey)
		if err != nil {
			return nil, fmt.Errorf("load card %q: %w", cardKey, err)
		}
		if card == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no card matches item type "+it.Key)
		}
		if !card.IsEnabled {
			return nil, appErrors.Clone(appErrors.ErrDisabledTaxonomy, "card "+card.Key+" is disabled")
		}
		class.CardID, class.CardKey, class.CardLabel = card.ID, card.Key, card.LabelAR
		class.ItemTypeID, class.ItemTypeKey = it.ID, it.Key

	default:
		return nil, appErrors.ErrLeadingTag
	}

	// A resolved section tag after the content tag overrides the topic's
	// section binding.
	for _, r := range res.Resolved {
		if r.Kind != models.TargetSection {
			continue
		}
		section, err := s.taxonomy.GetSection(ctx, r.TargetID)
		if err != nil {
			return nil, fmt.Errorf("load section: %w", err)
		}
		if section != nil {
			if !section.IsEnabled {
				return nil, appErrors.Clone(appErrors.ErrDisabledTaxonomy, "section "+section.Key+" is disabled")
			}
			class.SectionID = section.ID
			class.SectionLabel = section.LabelAR
		}
		break
	}

	return class, nil
}

// itemTypeForCardTarget derives the item type for a card-mapped content
// tag: an explicit override wins, then the same-key convention.
func (s *ResolverService) itemTypeForCardTarget(ctx context.Context, row *models.AliasMapping) (*models.ItemType, error) {
	card, err := s.taxonomy.GetCard(ctx, row.TargetID)
	if err != nil {
		return nil, fmt.Errorf("load card: %w", err)
	}
	if card == nil {
		return nil, nil
	}
	key := card.Key
	if ov := s.parseOverrides(row.Overrides); ov != nil && ov.ItemType != "" {
		key = ov.ItemType
	}
	it, err := s.taxonomy.GetItemTypeByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load item type %q: %w", key, err)
	}
	return it, nil
}

func (s *ResolverService) parseOverrides(raw *string) *mappingOverrides {
	if raw == nil || *raw == "" {
		return nil
	}
	var ov mappingOverrides
	if err := json.Unmarshal([]byte(*raw), &ov); err != nil {
		s.logger.Warn("malformed mapping overrides", zap.Error(err))
		return nil
	}
	return &ov
}

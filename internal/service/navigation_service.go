package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noor-edu/archive-api/internal/dto"
	"github.com/noor-edu/archive-api/internal/models"
	"github.com/noor-edu/archive-api/pkg/config"
	appErrors "github.com/noor-edu/archive-api/pkg/errors"
)

const leafListLimit = 50

type navSubjectStore interface {
	ListLevels(ctx context.Context) ([]models.Level, error)
	ListTermsByLevel(ctx context.Context, levelID string) ([]models.Term, error)
	ListSubjects(ctx context.Context, levelID, termID string) ([]models.Subject, error)
	GetSubject(ctx context.Context, id string) (*models.Subject, error)
}

type navTaxonomyStore interface {
	ListSubjectSections(ctx context.Context, subjectID string) ([]models.Section, error)
	ListCards(ctx context.Context, sectionID string, includeDisabled bool) ([]models.Card, error)
}

type navMaterialStore interface {
	CountForCard(ctx context.Context, subjectID, sectionID, cardID string) (int, error)
	ListLeaf(ctx context.Context, subjectID, sectionID, cardID string, limit int) ([]dto.MaterialLeaf, error)
}

type navTermResourceStore interface {
	ListKinds(ctx context.Context, levelID, termID string) ([]string, error)
	GetLatest(ctx context.Context, levelID, termID, kind string) (*models.TermResource, error)
}

type navStack interface {
	Current(sessionID string) dto.NodePath
	Push(sessionID string, ref dto.NodeRef) dto.NodePath
	Pop(sessionID string) dto.NodePath
	Reset(sessionID string) dto.NodePath
}

type navChildrenCache interface {
	GetOrCompute(ctx context.Context, path dto.NodePath, viewer string, compute func(context.Context) ([]dto.NodeDescriptor, error)) ([]dto.NodeDescriptor, error)
}

type navDepthMetrics interface {
	ObserveNavDepth(depth int)
}

// CollapseSingleChild reports whether a just-entered node should be skipped
// through: exactly one child, and that child is a section. The caller
// decides whether skipping is enabled.
func CollapseSingleChild(children []dto.NodeDescriptor) (dto.NodeRef, bool) {
	if len(children) != 1 || children[0].Kind != dto.NodeSection {
		return dto.NodeRef{}, false
	}
	c := children[0]
	return dto.NodeRef{Kind: c.Kind, ID: c.Key, Label: c.Label}, true
}

// NavigationService walks the browsing hierarchy: levels, terms, subjects,
// sections, cards, down to material and term-resource leaves.
type NavigationService struct {
	subjects      navSubjectStore
	taxonomy      navTaxonomyStore
	materials     navMaterialStore
	termResources navTermResourceStore
	stack         navStack
	cache         navChildrenCache
	metrics       navDepthMetrics
	cfg           config.NavConfig
	logger        *zap.Logger
}

// NewNavigationService constructs a NavigationService.
func NewNavigationService(
	subjects navSubjectStore,
	taxonomy navTaxonomyStore,
	materials navMaterialStore,
	termResources navTermResourceStore,
	stack navStack,
	cache navChildrenCache,
	metrics navDepthMetrics,
	cfg config.NavConfig,
	logger *zap.Logger,
) *NavigationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NavigationService{
		subjects:      subjects,
		taxonomy:      taxonomy,
		materials:     materials,
		termResources: termResources,
		stack:         stack,
		cache:         cache,
		metrics:       metrics,
		cfg:           cfg,
		logger:        logger,
	}
}

// Navigate applies one action to the session's path and renders the
// resulting position.
func (s *NavigationService) Navigate(ctx context.Context, req dto.NavigateRequest, admin *models.Admin) (*dto.NavigateResponse, error) {
	viewer := ViewerFingerprint(admin.Permissions, admin.LevelScope)

	var path dto.NodePath
	switch req.Action {
	case dto.NavReset:
		path = s.stack.Reset(req.SessionID)
	case dto.NavBack:
		path = s.stack.Pop(req.SessionID)
	case dto.NavEnter:
		current := s.stack.Current(req.SessionID)
		children, err := s.children(ctx, current, admin, viewer)
		if err != nil {
			return nil, err
		}
		ref, ok := findChild(children, req.ChildKey)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no such child at this position")
		}
		path = s.stack.Push(req.SessionID, ref)

		if s.cfg.AutoSkip {
			skipped, err := s.children(ctx, path, admin, viewer)
			if err != nil {
				return nil, err
			}
			if next, ok := CollapseSingleChild(skipped); ok {
				path = s.stack.Push(req.SessionID, next)
			}
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown navigation action")
	}

	return s.render(ctx, path, admin, viewer)
}

// View renders the session's current position without changing it.
func (s *NavigationService) View(ctx context.Context, sessionID string, admin *models.Admin) (*dto.NavigateResponse, error) {
	viewer := ViewerFingerprint(admin.Permissions, admin.LevelScope)
	return s.render(ctx, s.stack.Current(sessionID), admin, viewer)
}

func (s *NavigationService) render(ctx context.Context, path dto.NodePath, admin *models.Admin, viewer string) (*dto.NavigateResponse, error) {
	if s.metrics != nil {
		s.metrics.ObserveNavDepth(len(path))
	}
	resp := &dto.NavigateResponse{Breadcrumb: path.Breadcrumb()}

	current := path.Current()
	if current.Kind == dto.NodeCard || current.Kind == dto.NodeResource {
		leaf, err := s.leaf(ctx, path)
		if err != nil {
			return nil, err
		}
		resp.Leaf = leaf
		resp.Nodes = []dto.NodeDescriptor{}
		return resp, nil
	}

	children, err := s.children(ctx, path, admin, viewer)
	if err != nil {
		return nil, err
	}
	resp.Nodes = children
	return resp, nil
}

func (s *NavigationService) children(ctx context.Context, path dto.NodePath, admin *models.Admin, viewer string) ([]dto.NodeDescriptor, error) {
	if s.cache == nil {
		return s.computeChildren(ctx, path, admin)
	}
	return s.cache.GetOrCompute(ctx, path, viewer, func(ctx context.Context) ([]dto.NodeDescriptor, error) {
		return s.computeChildren(ctx, path, admin)
	})
}

func (s *NavigationService) computeChildren(ctx context.Context, path dto.NodePath, admin *models.Admin) ([]dto.NodeDescriptor, error) {
	switch path.Current().Kind {
	case dto.NodeRoot:
		return s.levelNodes(ctx, admin)
	case dto.NodeLevel:
		return s.termNodes(ctx, path.ID(dto.NodeLevel))
	case dto.NodeTerm:
		return s.subjectNodes(ctx, path.ID(dto.NodeLevel), path.ID(dto.NodeTerm))
	case dto.NodeSubject:
		return s.sectionNodes(ctx, path.ID(dto.NodeSubject))
	case dto.NodeSection:
		return s.cardNodes(ctx, path.ID(dto.NodeSubject), path.ID(dto.NodeSection))
	default:
		return []dto.NodeDescriptor{}, nil
	}
}

func (s *NavigationService) levelNodes(ctx context.Context, admin *models.Admin) ([]dto.NodeDescriptor, error) {
	levels, err := s.subjects.ListLevels(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list levels")
	}
	nodes := make([]dto.NodeDescriptor, 0, len(levels))
	for _, l := range levels {
		if admin.LevelScope != "" && admin.LevelScope != l.ID {
			continue
		}
		nodes = append(nodes, dto.NodeDescriptor{Key: l.ID, Label: l.Name, Kind: dto.NodeLevel})
	}
	return nodes, nil
}

func (s *NavigationService) termNodes(ctx context.Context, levelID string) ([]dto.NodeDescriptor, error) {
	terms, err := s.subjects.ListTermsByLevel(ctx, levelID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	nodes := make([]dto.NodeDescriptor, 0, len(terms))
	for _, t := range terms {
		nodes = append(nodes, dto.NodeDescriptor{Key: t.ID, Label: t.Name, Kind: dto.NodeTerm})
	}
	return nodes, nil
}

// subjectNodes lists the term's subjects plus one leaf tile per term
// resource kind that has content.
func (s *NavigationService) subjectNodes(ctx context.Context, levelID, termID string) ([]dto.NodeDescriptor, error) {
	subjects, err := s.subjects.ListSubjects(ctx, levelID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	nodes := make([]dto.NodeDescriptor, 0, len(subjects)+2)
	for _, sub := range subjects {
		nodes = append(nodes, dto.NodeDescriptor{Key: sub.ID, Label: sub.Name, Kind: dto.NodeSubject})
	}

	kinds, err := s.termResources.ListKinds(ctx, levelID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list term resources")
	}
	for _, kind := range kinds {
		nodes = append(nodes, dto.NodeDescriptor{Key: kind, Label: kind, Kind: dto.NodeResource, Leaf: true})
	}
	return nodes, nil
}

// sectionNodes lists the subject's enabled sections, constrained by its
// legacy sections mode.
func (s *NavigationService) sectionNodes(ctx context.Context, subjectID string) ([]dto.NodeDescriptor, error) {
	subject, err := s.subjects.GetSubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if subject == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	sections, err := s.taxonomy.ListSubjectSections(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	nodes := make([]dto.NodeDescriptor, 0, len(sections))
	for _, sec := range sections {
		if !subject.SectionsMode.AllowsSectionKey(sec.Key) {
			continue
		}
		nodes = append(nodes, dto.NodeDescriptor{Key: sec.ID, Label: sec.Label(s.cfg.Locale), Kind: dto.NodeSection})
	}
	return nodes, nil
}

// cardNodes lists the section's cards. Cards without content are hidden
// unless flagged to show when empty.
func (s *NavigationService) cardNodes(ctx context.Context, subjectID, sectionID string) ([]dto.NodeDescriptor, error) {
	cards, err := s.taxonomy.ListCards(ctx, sectionID, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cards")
	}
	nodes := make([]dto.NodeDescriptor, 0, len(cards))
	for _, c := range cards {
		if !c.ShowWhenEmpty {
			count, err := s.materials.CountForCard(ctx, subjectID, sectionID, c.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count card content")
			}
			if count == 0 {
				continue
			}
		}
		nodes = append(nodes, dto.NodeDescriptor{Key: c.ID, Label: c.Label(s.cfg.Locale), Kind: dto.NodeCard, Leaf: true})
	}
	return nodes, nil
}

func (s *NavigationService) leaf(ctx context.Context, path dto.NodePath) (*dto.LeafContent, error) {
	current := path.Current()
	switch current.Kind {
	case dto.NodeCard:
		rows, err := s.materials.ListLeaf(ctx,
			path.ID(dto.NodeSubject), path.ID(dto.NodeSection), current.ID, leafListLimit)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leaf content")
		}
		return &dto.LeafContent{Materials: rows}, nil

	case dto.NodeResource:
		res, err := s.termResources.GetLatest(ctx,
			path.ID(dto.NodeLevel), path.ID(dto.NodeTerm), current.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term resource")
		}
		leaf := &dto.LeafContent{}
		if res != nil {
			leaf.TermResource = &dto.TermResourceLeaf{
				ID:            res.ID,
				Kind:          res.Kind,
				StorageChatID: res.StorageChatID,
				StorageMsgID:  res.StorageMsgID,
			}
		}
		return leaf, nil
	}
	return &dto.LeafContent{}, nil
}

func findChild(children []dto.NodeDescriptor, key string) (dto.NodeRef, bool) {
	for _, c := range children {
		if c.Key == key {
			return dto.NodeRef{Kind: c.Kind, ID: c.Key, Label: c.Label}, true
		}
	}
	return dto.NodeRef{}, false
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noor-edu/archive-api/internal/models"
)

// SubjectRepository reads the level/term/subject hierarchy and the chat and
// topic bindings both the ingestion and navigation paths resolve against.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListLevels returns levels ordered by sort order then name.
func (r *SubjectRepository) ListLevels(ctx context.Context) ([]models.Level, error) {
	const query = `SELECT id, name, sort_order FROM levels ORDER BY sort_order ASC, name ASC`
	var levels []models.Level
	if err := r.db.SelectContext(ctx, &levels, query); err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	return levels, nil
}

// ListTermsByLevel returns the terms that have subjects in the level.
func (r *SubjectRepository) ListTermsByLevel(ctx context.Context, levelID string) ([]models.Term, error) {
	const query = `
SELECT DISTINCT t.id, t.name, t.sort_order
FROM terms t
JOIN subjects s ON s.term_id = t.id
WHERE s.level_id = $1
ORDER BY t.sort_order ASC, t.name ASC`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, levelID); err != nil {
		return nil, fmt.Errorf("list terms by level: %w", err)
	}
	return terms, nil
}

// ListSubjects returns the subjects of one level+term.
func (r *SubjectRepository) ListSubjects(ctx context.Context, levelID, termID string) ([]models.Subject, error) {
	const query = `
SELECT id, code, name, level_id, term_id, sections_mode
FROM subjects
WHERE level_id = $1 AND term_id = $2
ORDER BY code ASC, name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, levelID, termID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListAllSubjects returns every subject, for export and admin views.
func (r *SubjectRepository) ListAllSubjects(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, code, name, level_id, term_id, sections_mode FROM subjects ORDER BY code ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list all subjects: %w", err)
	}
	return subjects, nil
}

// GetSubject fetches one subject by id.
func (r *SubjectRepository) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	var s models.Subject
	const query = `SELECT id, code, name, level_id, term_id, sections_mode FROM subjects WHERE id = $1`
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return &s, nil
}

// GetSubjectByCode fetches one subject by its course code.
func (r *SubjectRepository) GetSubjectByCode(ctx context.Context, code string) (*models.Subject, error) {
	var s models.Subject
	const query = `SELECT id, code, name, level_id, term_id, sections_mode FROM subjects WHERE code = $1`
	if err := r.db.GetContext(ctx, &s, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get subject by code: %w", err)
	}
	return &s, nil
}

// GetGroupByChat returns the group bound to a source chat, or nil.
func (r *SubjectRepository) GetGroupByChat(ctx context.Context, chatID int64) (*models.Group, error) {
	var g models.Group
	const query = `SELECT id, chat_id, title, level_id, term_id FROM groups WHERE chat_id = $1`
	if err := r.db.GetContext(ctx, &g, query, chatID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get group by chat: %w", err)
	}
	return &g, nil
}

// GetTopicBinding returns the subject/section binding for a chat topic,
// or nil when the topic was never bound.
func (r *SubjectRepository) GetTopicBinding(ctx context.Context, chatID, topicID int64) (*models.TopicBinding, error) {
	const query = `
SELECT t.id, t.group_id, t.topic_id, t.subject_id, t.section_id
FROM topics t
JOIN groups g ON g.id = t.group_id
WHERE g.chat_id = $1 AND t.topic_id = $2`
	var b models.TopicBinding
	if err := r.db.GetContext(ctx, &b, query, chatID, topicID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get topic binding: %w", err)
	}
	return &b, nil
}

// BindTopic upserts a topic → subject/section binding.
func (r *SubjectRepository) BindTopic(ctx context.Context, b *models.TopicBinding) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	const query = `
INSERT INTO topics (id, group_id, topic_id, subject_id, section_id)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (group_id, topic_id)
DO UPDATE SET subject_id = EXCLUDED.subject_id, section_id = EXCLUDED.section_id`
	if _, err := r.db.ExecContext(ctx, query, b.ID, b.GroupID, b.TopicID, b.SubjectID, b.SectionID); err != nil {
		return fmt.Errorf("bind topic: %w", err)
	}
	return nil
}

// GetOrCreateYear interns a year label and returns its id.
func (r *SubjectRepository) GetOrCreateYear(ctx context.Context, name string) (string, error) {
	const query = `
INSERT INTO years (id, name) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id`
	var id string
	if err := r.db.GetContext(ctx, &id, query, uuid.NewString(), name); err != nil {
		return "", fmt.Errorf("get or create year: %w", err)
	}
	return id, nil
}

// GetOrCreateLecturer interns a lecturer display name and returns its id.
func (r *SubjectRepository) GetOrCreateLecturer(ctx context.Context, name string) (string, error) {
	const query = `
INSERT INTO lecturers (id, name) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id`
	var id string
	if err := r.db.GetContext(ctx, &id, query, uuid.NewString(), name); err != nil {
		return "", fmt.Errorf("get or create lecturer: %w", err)
	}
	return id, nil
}

// ListYearsForScope returns the distinct years materials exist under for a
// subject+section, newest label first.
func (r *SubjectRepository) ListYearsForScope(ctx context.Context, subjectID, sectionID string) ([]models.Year, error) {
	const query = `
SELECT DISTINCT y.id, y.name
FROM years y
JOIN materials m ON m.year_id = y.id
WHERE m.subject_id = $1 AND m.section_id = $2 AND m.deleted_at IS NULL
ORDER BY y.name DESC`
	var years []models.Year
	if err := r.db.SelectContext(ctx, &years, query, subjectID, sectionID); err != nil {
		return nil, fmt.Errorf("list years for scope: %w", err)
	}
	return years, nil
}

// ListLecturersForScope returns the distinct lecturers materials exist under
// for a subject+section.
func (r *SubjectRepository) ListLecturersForScope(ctx context.Context, subjectID, sectionID string) ([]models.Lecturer, error) {
	const query = `
SELECT DISTINCT l.id, l.name
FROM lecturers l
JOIN materials m ON m.lecturer_id = l.id
WHERE m.subject_id = $1 AND m.section_id = $2 AND m.deleted_at IS NULL
ORDER BY l.name ASC`
	var lecturers []models.Lecturer
	if err := r.db.SelectContext(ctx, &lecturers, query, subjectID, sectionID); err != nil {
		return nil, fmt.Errorf("list lecturers for scope: %w", err)
	}
	return lecturers, nil
}

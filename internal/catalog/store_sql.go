package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrQuestionNotFound = errors.New("question not found")
var ErrSkillNotFound = errors.New("skill not found")

// Store is the read surface over the question and skill inventory.
type Store interface {
	SkillByID(ctx context.Context, id int64) (*Skill, error)
	SkillsForCertification(ctx context.Context, cert string) ([]Skill, error)
	SkillsForCertifications(ctx context.Context, certs []string) ([]Skill, error)
	AllActiveSkills(ctx context.Context) ([]Skill, error)
	QuestionByID(ctx context.Context, id int64) (*Question, error)
	QuestionsByIDs(ctx context.Context, ids []int64) (map[int64]Question, error)
	QuestionIDsForSkill(ctx context.Context, skillID int64) ([]int64, error)
	PrimarySkillFor(ctx context.Context, questionID int64) (int64, error)
}

type SQLStore struct{ db *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) SkillByID(ctx context.Context, id int64) (*Skill, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, category, subcategory, parent_id, certification_code, status
		FROM skills WHERE id = $1`, id)
	sk, err := scanSkill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSkillNotFound
	}
	return sk, err
}

func (s *SQLStore) SkillsForCertification(ctx context.Context, cert string) ([]Skill, error) {
	return s.SkillsForCertifications(ctx, []string{cert})
}

func (s *SQLStore) SkillsForCertifications(ctx context.Context, certs []string) ([]Skill, error) {
	if len(certs) == 0 {
		return nil, nil
	}
	args := make([]any, len(certs))
	for i, c := range certs {
		args[i] = c
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, code, name, category, subcategory, parent_id, certification_code, status
		FROM skills WHERE status = 'active' AND certification_code IN (%s)
		ORDER BY id`, placeholders(len(certs), 1)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Skill
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sk)
	}
	return out, rows.Err()
}

func (s *SQLStore) AllActiveSkills(ctx context.Context) ([]Skill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, name, category, subcategory, parent_id, certification_code, status
		FROM skills WHERE status = 'active' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Skill
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sk)
	}
	return out, rows.Err()
}

func (s *SQLStore) QuestionByID(ctx context.Context, id int64) (*Question, error) {
	var q Question
	var optsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, text, options_json, difficulty FROM questions WHERE id = $1`, id).
		Scan(&q.ID, &q.Text, &optsJSON, &q.Difficulty)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(optsJSON), &q.Options); err != nil {
		return nil, fmt.Errorf("question %d options: %w", id, err)
	}
	return &q, nil
}

func (s *SQLStore) QuestionsByIDs(ctx context.Context, ids []int64) (map[int64]Question, error) {
	if len(ids) == 0 {
		return map[int64]Question{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, text, options_json, difficulty FROM questions WHERE id IN (%s)`,
		placeholders(len(ids), 1)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]Question, len(ids))
	for rows.Next() {
		var q Question
		var optsJSON string
		if err := rows.Scan(&q.ID, &q.Text, &optsJSON, &q.Difficulty); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(optsJSON), &q.Options); err != nil {
			return nil, fmt.Errorf("question %d options: %w", q.ID, err)
		}
		out[q.ID] = q
	}
	return out, rows.Err()
}

func (s *SQLStore) QuestionIDsForSkill(ctx context.Context, skillID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id FROM question_skills WHERE skill_id = $1 ORDER BY question_id`, skillID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PrimarySkillFor returns the skill a question is scored against. Falls
// back to any linked skill when no primary is flagged; returns 0 when
// the question has no skill links at all.
func (s *SQLStore) PrimarySkillFor(ctx context.Context, questionID int64) (int64, error) {
	var skillID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT skill_id FROM question_skills
		WHERE question_id = $1
		ORDER BY is_primary DESC, skill_id
		LIMIT 1`, questionID).Scan(&skillID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return skillID, err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanSkill(r rowScanner) (*Skill, error) {
	var sk Skill
	var parent sql.NullInt64
	if err := r.Scan(&sk.ID, &sk.Code, &sk.Name, &sk.Category, &sk.Subcategory,
		&parent, &sk.CertificationCode, &sk.Status); err != nil {
		return nil, err
	}
	if parent.Valid {
		sk.ParentID = &parent.Int64
	}
	return &sk, nil
}

func placeholders(n, start int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/learnsphere/learnsphere-backend/internal/domain/learningpath"
	"github.com/learnsphere/learnsphere-backend/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING PATH REPOSITORY IMPLEMENTATION
// Modules (including each module's cached lesson content) are embedded
// as JSONB; the frontier lives in its own column so the optimistic
// conditional update can target it directly.
// ══════════════════════════════════════════════════════════════════════════════

// PathRepository implements learningpath.Repository for PostgreSQL.
type PathRepository struct {
	conn *Connection
}

// NewPathRepository creates a new PathRepository.
func NewPathRepository(conn *Connection) *PathRepository {
	return &PathRepository{conn: conn}
}

// moduleDoc is the JSONB shape of one module. Explicit tagged schema:
// documents are validated on read, not trusted.
type moduleDoc struct {
	ID               string                      `json:"id"`
	Title            string                      `json:"title"`
	Difficulty       string                      `json:"difficulty"`
	Topics           []string                    `json:"topics,omitempty"`
	EstimatedMinutes int                         `json:"estimated_minutes"`
	GeneratedContent *learningpath.LessonContent `json:"generated_content,omitempty"`
}

func modulesToDocs(modules []learningpath.Module) []moduleDoc {
	docs := make([]moduleDoc, 0, len(modules))
	for _, m := range modules {
		docs = append(docs, moduleDoc{
			ID:               m.ID,
			Title:            m.Title,
			Difficulty:       string(m.Difficulty),
			Topics:           m.Topics,
			EstimatedMinutes: m.EstimatedMinutes,
			GeneratedContent: m.GeneratedContent,
		})
	}
	return docs
}

func docsToModules(docs []moduleDoc) []learningpath.Module {
	modules := make([]learningpath.Module, 0, len(docs))
	for _, d := range docs {
		modules = append(modules, learningpath.Module{
			ID:               d.ID,
			Title:            d.Title,
			Difficulty:       learningpath.Difficulty(d.Difficulty),
			Topics:           d.Topics,
			EstimatedMinutes: d.EstimatedMinutes,
			GeneratedContent: d.GeneratedContent,
		})
	}
	return modules
}

// Create saves a new learning path.
func (r *PathRepository) Create(ctx context.Context, lp *learningpath.LearningPath) error {
	if err := lp.Validate(); err != nil {
		return err
	}

	modulesJSON, err := json.Marshal(modulesToDocs(lp.Modules))
	if err != nil {
		return fmt.Errorf("failed to marshal modules: %w", err)
	}

	query := `
		INSERT INTO learning_paths (
			id, user_id, title, description, modules,
			completed_modules, active_lesson, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.conn.Exec(ctx, query,
		lp.ID.String(), lp.UserID.String(), lp.Title, lp.Description,
		modulesJSON, lp.CompletedModules, marshalActiveLesson(lp.ActiveLesson),
		lp.CreatedAt, lp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create learning path: %w", err)
	}
	return nil
}

// GetByID returns a path by id.
func (r *PathRepository) GetByID(ctx context.Context, id learningpath.PathID) (*learningpath.LearningPath, error) {
	query := `
		SELECT id, user_id, title, description, modules,
		       completed_modules, active_lesson, created_at, updated_at
		FROM learning_paths
		WHERE id = $1
	`

	lp, err := scanPath(r.conn.QueryRow(ctx, query, id.String()))
	if err != nil {
		return nil, err
	}
	return lp, nil
}

// ListByUser returns all paths of a user, newest first.
func (r *PathRepository) ListByUser(ctx context.Context, userID progress.UserID) ([]*learningpath.LearningPath, error) {
	query := `
		SELECT id, user_id, title, description, modules,
		       completed_modules, active_lesson, created_at, updated_at
		FROM learning_paths
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.conn.Query(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query learning paths: %w", err)
	}
	defer rows.Close()

	var paths []*learningpath.LearningPath
	for rows.Next() {
		lp, err := scanPath(rows)
		if err != nil {
			return nil, err
		}
		paths = append(paths, lp)
	}
	return paths, rows.Err()
}

// AdvanceFrontier moves completed_modules from expected to expected+1.
// The WHERE clause is the optimistic concurrency check: a stale caller
// (replay or concurrent duplicate) matches zero rows and gets false.
func (r *PathRepository) AdvanceFrontier(ctx context.Context, id learningpath.PathID, expected int) (bool, error) {
	query := `
		UPDATE learning_paths
		SET completed_modules = completed_modules + 1, updated_at = NOW()
		WHERE id = $1 AND completed_modules = $2
	`

	tag, err := r.conn.Exec(ctx, query, id.String(), expected)
	if err != nil {
		return false, fmt.Errorf("failed to advance frontier: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Update saves the mutable fields of a path. The frontier is NOT
// written here - it only moves through AdvanceFrontier.
func (r *PathRepository) Update(ctx context.Context, lp *learningpath.LearningPath) error {
	modulesJSON, err := json.Marshal(modulesToDocs(lp.Modules))
	if err != nil {
		return fmt.Errorf("failed to marshal modules: %w", err)
	}

	query := `
		UPDATE learning_paths
		SET title = $2, description = $3, modules = $4,
		    active_lesson = $5, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		lp.ID.String(), lp.Title, lp.Description,
		modulesJSON, marshalActiveLesson(lp.ActiveLesson),
	)
	if err != nil {
		return fmt.Errorf("failed to update learning path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return learningpath.ErrPathNotFound
	}
	return nil
}

// Delete removes a path.
func (r *PathRepository) Delete(ctx context.Context, id learningpath.PathID) error {
	tag, err := r.conn.Exec(ctx, "DELETE FROM learning_paths WHERE id = $1", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete learning path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return learningpath.ErrPathNotFound
	}
	return nil
}

func marshalActiveLesson(al *learningpath.ActiveLesson) interface{} {
	if al == nil {
		return nil
	}
	data, err := json.Marshal(al)
	if err != nil {
		return nil
	}
	return data
}

func scanPath(row rowScanner) (*learningpath.LearningPath, error) {
	var (
		lp           learningpath.LearningPath
		id           string
		userID       string
		modulesJSON  []byte
		activeLesson []byte
	)

	err := row.Scan(
		&id, &userID, &lp.Title, &lp.Description, &modulesJSON,
		&lp.CompletedModules, &activeLesson, &lp.CreatedAt, &lp.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, learningpath.ErrPathNotFound
		}
		return nil, fmt.Errorf("failed to scan learning path row: %w", err)
	}

	lp.ID = learningpath.PathID(id)
	lp.UserID = progress.UserID(userID)

	var docs []moduleDoc
	if err := json.Unmarshal(modulesJSON, &docs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal modules: %w", err)
	}
	lp.Modules = docsToModules(docs)

	if len(activeLesson) > 0 {
		var al learningpath.ActiveLesson
		if err := json.Unmarshal(activeLesson, &al); err != nil {
			return nil, fmt.Errorf("failed to unmarshal active lesson: %w", err)
		}
		lp.ActiveLesson = &al
	}

	if err := lp.Validate(); err != nil {
		return nil, fmt.Errorf("stored learning path is invalid: %w", err)
	}
	return &lp, nil
}

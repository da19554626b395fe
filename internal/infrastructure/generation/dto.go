// Package generation implements the lesson generation API client.
// This package handles all communication with the external content
// generation service that produces lesson bodies for path modules.
package generation

import (
	"fmt"

	"github.com/learnsphere/learnsphere-backend/internal/domain/learningpath"
)

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// LessonRequestDTO is the payload sent to the generation service.
type LessonRequestDTO struct {
	PathTitle        string   `json:"path_title"`
	ModuleTitle      string   `json:"module_title"`
	Difficulty       string   `json:"difficulty"`
	Topics           []string `json:"topics,omitempty"`
	EstimatedMinutes int      `json:"estimated_minutes,omitempty"`
}

// LessonResponseDTO is the lesson body returned by the generation service.
type LessonResponseDTO struct {
	Title    string       `json:"title"`
	Sections []SectionDTO `json:"sections"`
}

// SectionDTO is one section of a generated lesson.
type SectionDTO struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// APIErrorDTO is the error envelope of the generation service.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	return fmt.Sprintf("generation api error %s: %s", e.Code, e.Message)
}

// lessonRequestFrom builds the request payload for a module.
func lessonRequestFrom(module learningpath.Module, pathTitle string) LessonRequestDTO {
	return LessonRequestDTO{
		PathTitle:        pathTitle,
		ModuleTitle:      module.Title,
		Difficulty:       string(module.Difficulty),
		Topics:           module.Topics,
		EstimatedMinutes: module.EstimatedMinutes,
	}
}

// lessonContentFrom maps a response DTO to the domain model.
// Responses without sections are rejected so the caller falls back to
// the deterministic lesson instead of caching an empty one.
func lessonContentFrom(dto *LessonResponseDTO, module learningpath.Module) (*learningpath.LessonContent, error) {
	if dto == nil || len(dto.Sections) == 0 {
		return nil, fmt.Errorf("generation: empty lesson for module %q", module.Title)
	}

	title := dto.Title
	if title == "" {
		title = module.Title
	}

	sections := make([]learningpath.LessonSection, 0, len(dto.Sections))
	for _, s := range dto.Sections {
		if s.Body == "" {
			continue
		}
		sections = append(sections, learningpath.LessonSection{
			Heading: s.Heading,
			Body:    s.Body,
		})
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("generation: lesson for module %q has no usable sections", module.Title)
	}

	return &learningpath.LessonContent{
		Title:    title,
		Sections: sections,
		Fallback: false,
	}, nil
}

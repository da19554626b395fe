package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnsphere/learnsphere-backend/internal/domain/learningpath"
)

func TestLessonResponseDTO_Parsing(t *testing.T) {
	jsonData := `{
    "title": "Горутины и каналы",
    "sections": [
        {
            "heading": "Введение",
            "body": "Горутины - легковесные потоки исполнения."
        },
        {
            "heading": "Каналы",
            "body": "Каналы синхронизируют горутины и передают данные."
        }
    ]
}`

	var dto LessonResponseDTO
	err := json.Unmarshal([]byte(jsonData), &dto)
	require.NoError(t, err)

	assert.Equal(t, "Горутины и каналы", dto.Title)
	require.Len(t, dto.Sections, 2)
	assert.Equal(t, "Введение", dto.Sections[0].Heading)
	assert.Equal(t, "Каналы", dto.Sections[1].Heading)
}

func TestLessonContentFrom(t *testing.T) {
	module := learningpath.Module{Title: "Concurrency", Difficulty: learningpath.DifficultyIntermediate}

	t.Run("maps sections", func(t *testing.T) {
		dto := &LessonResponseDTO{
			Title: "Concurrency in Go",
			Sections: []SectionDTO{
				{Heading: "Intro", Body: "text"},
				{Heading: "Empty", Body: ""},
			},
		}

		content, err := lessonContentFrom(dto, module)
		require.NoError(t, err)
		assert.Equal(t, "Concurrency in Go", content.Title)
		assert.False(t, content.Fallback)
		// Бессодержательные секции отбрасываются
		assert.Len(t, content.Sections, 1)
	})

	t.Run("uses module title when response has none", func(t *testing.T) {
		dto := &LessonResponseDTO{
			Sections: []SectionDTO{{Heading: "Intro", Body: "text"}},
		}

		content, err := lessonContentFrom(dto, module)
		require.NoError(t, err)
		assert.Equal(t, "Concurrency", content.Title)
	})

	t.Run("rejects empty lesson", func(t *testing.T) {
		_, err := lessonContentFrom(&LessonResponseDTO{Title: "x"}, module)
		assert.Error(t, err)

		_, err = lessonContentFrom(&LessonResponseDTO{
			Sections: []SectionDTO{{Heading: "h", Body: ""}},
		}, module)
		assert.Error(t, err)
	})
}

func TestClient_GenerateLesson(t *testing.T) {
	module := learningpath.Module{
		Title:      "Интерфейсы",
		Difficulty: learningpath.DifficultyBeginner,
		Topics:     []string{"duck typing"},
	}

	t.Run("success", func(t *testing.T) {
		var gotReq LessonRequestDTO
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/lessons", r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			json.NewEncoder(w).Encode(LessonResponseDTO{
				Title:    "Интерфейсы в Go",
				Sections: []SectionDTO{{Heading: "Введение", Body: "..."}},
			})
		}))
		defer srv.Close()

		cfg := DefaultClientConfig(srv.URL)
		cfg.APIKey = "secret"
		client := NewClient(cfg)

		content, err := client.GenerateLesson(context.Background(), module, "Go с нуля")
		require.NoError(t, err)
		assert.Equal(t, "Интерфейсы в Go", content.Title)
		assert.False(t, content.Fallback)

		assert.Equal(t, "Go с нуля", gotReq.PathTitle)
		assert.Equal(t, "Интерфейсы", gotReq.ModuleTitle)
		assert.Equal(t, "beginner", gotReq.Difficulty)
	})

	t.Run("client error is not retried", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(APIErrorDTO{Code: "INVALID_MODULE", Message: "bad request"})
		}))
		defer srv.Close()

		client := NewClient(DefaultClientConfig(srv.URL))

		_, err := client.GenerateLesson(context.Background(), module, "Go с нуля")
		require.Error(t, err)
		assert.Equal(t, 1, calls)

		var apiErr *APIErrorDTO
		assert.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "INVALID_MODULE", apiErr.Code)
	})

	t.Run("server error is retried", func(t *testing.T) {
		var calls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(LessonResponseDTO{
				Sections: []SectionDTO{{Heading: "h", Body: "b"}},
			})
		}))
		defer srv.Close()

		client := NewClient(DefaultClientConfig(srv.URL))

		content, err := client.GenerateLesson(context.Background(), module, "Go с нуля")
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, "Интерфейсы", content.Title)
	})
}

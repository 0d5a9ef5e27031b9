package persona

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersona(t *testing.T) {
	p, err := ParsePersona(`{"name": "Blaze", "archetype": "Berserker", "taunt": "Catch me if you can!"}`)
	require.NoError(t, err)

	assert.Equal(t, "Blaze", p.Name)
	assert.Equal(t, "Berserker", p.Archetype)
	assert.Equal(t, "Catch me if you can!", p.Taunt)
}

func TestParsePersonaTrimsWhitespace(t *testing.T) {
	p, err := ParsePersona("\n  {\"name\": \"Rune\", \"archetype\": \"Mage\", \"taunt\": \"Foreseen.\"}  \n")
	require.NoError(t, err)
	assert.Equal(t, "Rune", p.Name)
}

func TestParsePersonaTruncatesLongFields(t *testing.T) {
	long := strings.Repeat("x", 300)
	raw, _ := json.Marshal(map[string]string{
		"name":      long,
		"archetype": long,
		"taunt":     long,
	})

	p, err := ParsePersona(string(raw))
	require.NoError(t, err)

	assert.Len(t, p.Name, 50)
	assert.Len(t, p.Archetype, 30)
	assert.Len(t, p.Taunt, 200)
}

func TestParsePersonaTruncatesOnRuneBoundary(t *testing.T) {
	// 48 ASCII bytes followed by multi-byte runes straddling the 50-byte cap.
	name := strings.Repeat("a", 48) + "日本"
	raw, _ := json.Marshal(map[string]string{
		"name":      name,
		"archetype": strings.Repeat("é", 20),
		"taunt":     strings.Repeat("ü", 150),
	})

	p, err := ParsePersona(string(raw))
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(p.Name), "name %q is not valid UTF-8", p.Name)
	assert.True(t, utf8.ValidString(p.Archetype))
	assert.True(t, utf8.ValidString(p.Taunt))
	assert.Equal(t, strings.Repeat("a", 48), p.Name)
	assert.LessOrEqual(t, len(p.Archetype), 30)
	assert.LessOrEqual(t, len(p.Taunt), 200)
}

func TestParsePersonaMissingFields(t *testing.T) {
	cases := []string{
		`{}`,
		`{"name": "Blaze"}`,
		`{"name": "Blaze", "archetype": "Berserker"}`,
		`{"name": "", "archetype": "Berserker", "taunt": "Go!"}`,
	}
	for _, c := range cases {
		_, err := ParsePersona(c)
		assert.Error(t, err, "input %s", c)
	}
}

func TestParsePersonaInvalidJSON(t *testing.T) {
	_, err := ParsePersona("Sure! Here's your rival: Blaze the Berserker")
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "competitive")

		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "{\"name\": \"Storm\", \"archetype\": \"Warrior\", \"taunt\": \"Your streak ends here!\"}"}}]}`))
	}))
	defer server.Close()

	g := NewGenerator("test-key", "test-model", server.URL)

	p, err := g.Generate(context.Background(), "User's recent quests: run, read", "competitive", []string{"aggressive", "victory-focused"})
	require.NoError(t, err)
	assert.Equal(t, "Storm", p.Name)
	assert.Equal(t, "Warrior", p.Archetype)
}

func TestGenerateUnavailableWithoutKey(t *testing.T) {
	g := NewGenerator("", "test-model", "")

	_, err := g.Generate(context.Background(), "", "competitive", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGenerateUnavailableOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := NewGenerator("test-key", "test-model", server.URL)

	_, err := g.Generate(context.Background(), "", "mystical", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGenerateEmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	g := NewGenerator("test-key", "test-model", server.URL)

	_, err := g.Generate(context.Background(), "", "warrior", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

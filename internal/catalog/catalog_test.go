package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sanskritiar/heritage/internal/catalog"
)

func TestLoad_Embedded(t *testing.T) {
	c, err := catalog.Load(catalog.Overrides{})
	require.NoError(t, err)

	require.NotEmpty(t, c.Questions)
	require.NotEmpty(t, c.Achievements)
	require.NotEmpty(t, c.Souvenirs)
	require.NotEmpty(t, c.Monuments)
	require.NotEmpty(t, c.Artisans)

	var ownedAtStart int
	for _, s := range c.Souvenirs {
		if s.OwnedAtStart {
			ownedAtStart++
		}
	}
	require.Equal(t, 1, ownedAtStart, "exactly the certificate is pre-owned")
}

func TestLoad_Override(t *testing.T) {
	file := filepath.Join(t.TempDir(), "questions.json")
	raw := `[
		{
			"id": "custom",
			"question": "Which river flows past Cuttack?",
			"options": ["Mahanadi", "Ganga"],
			"correct_index": 0,
			"fact": "Cuttack sits on a delta of the Mahanadi."
		}
	]`
	require.NoError(t, os.WriteFile(file, []byte(raw), 0o600))

	c, err := catalog.Load(catalog.Overrides{QuestionsFile: file})
	require.NoError(t, err)

	require.Len(t, c.Questions, 1)
	require.Equal(t, "custom", c.Questions[0].QuestionID)
	require.NotEmpty(t, c.Achievements, "other sections keep the embedded content")
}

func TestLoad_OverrideFileMissing(t *testing.T) {
	_, err := catalog.Load(catalog.Overrides{QuestionsFile: filepath.Join(t.TempDir(), "nope.json")})
	require.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := map[string]struct {
		overrides func(t *testing.T) catalog.Overrides
	}{
		"correct_index out of range": {
			overrides: questionsOverride(`[
				{"id": "q", "question": "?", "options": ["a", "b"], "correct_index": 2, "fact": "f"}
			]`),
		},
		"question with one option": {
			overrides: questionsOverride(`[
				{"id": "q", "question": "?", "options": ["a"], "correct_index": 0, "fact": "f"}
			]`),
		},
		"empty question id": {
			overrides: questionsOverride(`[
				{"id": "", "question": "?", "options": ["a", "b"], "correct_index": 0, "fact": "f"}
			]`),
		},
		"start_progress beyond target": {
			overrides: achievementsOverride(`[
				{"id": "a", "title": "t", "description": "d", "target": 3, "reward_coins": 10, "start_progress": 4}
			]`),
		},
		"non-positive reward": {
			overrides: achievementsOverride(`[
				{"id": "a", "title": "t", "description": "d", "target": 3, "reward_coins": 0}
			]`),
		},
		"non-positive souvenir cost": {
			overrides: func(t *testing.T) catalog.Overrides {
				return catalog.Overrides{SouvenirsFile: writeJSON(t, `[
					{"id": "s", "title": "t", "description": "d", "cost": 0, "kind": "k"}
				]`)}
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Load(test.overrides(t))
			require.Error(t, err)
		})
	}
}

func questionsOverride(raw string) func(t *testing.T) catalog.Overrides {
	return func(t *testing.T) catalog.Overrides {
		return catalog.Overrides{QuestionsFile: writeJSON(t, raw)}
	}
}

func achievementsOverride(raw string) func(t *testing.T) catalog.Overrides {
	return func(t *testing.T) catalog.Overrides {
		return catalog.Overrides{AchievementsFile: writeJSON(t, raw)}
	}
}

func writeJSON(t *testing.T, raw string) string {
	t.Helper()

	file := filepath.Join(t.TempDir(), "override.json")
	require.NoError(t, os.WriteFile(file, []byte(raw), 0o600))
	return file
}

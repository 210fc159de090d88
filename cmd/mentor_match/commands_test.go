package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/mentor-match/internal/config"
	"github.com/jonathan/mentor-match/internal/server"
	"github.com/jonathan/mentor-match/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command in process. Flag values persist between runs,
// so tests pass every flag they depend on.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// isolateEnv keeps the developer's .env from pointing tests at a real database or model.
func isolateEnv(t *testing.T) string {
	t.Helper()
	sqlitePath := filepath.Join(t.TempDir(), "mentor_match.db")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("SQLITE_PATH", sqlitePath)
	return sqlitePath
}

func TestMatchCommand_JSON(t *testing.T) {
	isolateEnv(t)

	out, err := executeCommand(t, "", "match",
		"--config", "",
		"--needs", "testdata/needs_guitar_beginner.json",
		"--mentors", "testdata/mentors.json",
		"--limit", "3",
		"--out", "",
		"--text=false")
	require.NoError(t, err)

	var suggestions []types.MentorSuggestion
	require.NoError(t, json.Unmarshal([]byte(out), &suggestions))
	require.Len(t, suggestions, 3)
	assert.Equal(t, "m1", suggestions[0].MentorID)
	for i := 1; i < len(suggestions); i++ {
		assert.GreaterOrEqual(t, suggestions[i-1].MatchScore, suggestions[i].MatchScore)
	}
}

func TestMatchCommand_WritesFile(t *testing.T) {
	isolateEnv(t)
	outPath := filepath.Join(t.TempDir(), "suggestions.json")

	out, err := executeCommand(t, "", "match",
		"--config", "",
		"--needs", "testdata/needs_guitar_beginner.json",
		"--mentors", "testdata/mentors.json",
		"--limit", "1",
		"--out", outPath,
		"--text=false")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var suggestions []types.MentorSuggestion
	require.NoError(t, json.Unmarshal(data, &suggestions))
	require.Len(t, suggestions, 1)
	assert.Equal(t, "m1", suggestions[0].MentorID)
}

func TestMatchCommand_Text(t *testing.T) {
	isolateEnv(t)

	out, err := executeCommand(t, "", "match",
		"--config", "",
		"--needs", "testdata/needs_guitar_beginner.json",
		"--mentors", "testdata/mentors.json",
		"--limit", "2",
		"--out", "",
		"--text=true")
	require.NoError(t, err)
	assert.Contains(t, out, "SUGGESTIONS (2)")
	assert.Contains(t, out, "1. Ana Lopez [m1]")
}

func TestMatchCommand_RejectsInvalidCatalog(t *testing.T) {
	isolateEnv(t)

	_, err := executeCommand(t, "", "match",
		"--config", "",
		"--needs", "testdata/needs_guitar_beginner.json",
		"--mentors", "testdata/invalid_mentors.json",
		"--limit", "3",
		"--out", "",
		"--text=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mentors file")
}

func TestMatchCommand_EmptyNeeds(t *testing.T) {
	isolateEnv(t)
	needsPath := filepath.Join(t.TempDir(), "needs.json")
	require.NoError(t, os.WriteFile(needsPath, []byte(`{}`), 0o644))

	_, err := executeCommand(t, "", "match",
		"--config", "",
		"--needs", needsPath,
		"--mentors", "testdata/mentors.json",
		"--limit", "3",
		"--out", "",
		"--text=false")
	assert.Error(t, err)
}

func TestMigrateAndSeed_SQLite(t *testing.T) {
	sqlitePath := isolateEnv(t)

	out, err := executeCommand(t, "", "migrate", "--config", "")
	require.NoError(t, err)
	assert.Contains(t, out, "migration(s)")
	_, err = os.Stat(sqlitePath)
	require.NoError(t, err)

	out, err = executeCommand(t, "", "seed", "--config", "", "--mentors", "testdata/mentors.json")
	require.NoError(t, err)
	assert.Equal(t, "Imported 4 mentor(s)\n", out)

	_, err = executeCommand(t, "", "seed", "--config", "", "--mentors", "testdata/invalid_mentors.json")
	assert.Error(t, err)

	// The chat reads the seeded catalog
	out, err = executeCommand(t, "I'm a beginner and want guitar lessons\n/quit\n", "chat",
		"--config", "",
		"--memory=false",
		"--mentors", "",
		"--offline=true")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Lopez")
}

func TestChatCommand_SelectsMentor(t *testing.T) {
	isolateEnv(t)

	input := strings.Join([]string{
		"I'm a beginner and want guitar lessons",
		"/select m2",
		"/select m1",
		"this line is never read",
	}, "\n")

	out, err := executeCommand(t, input, "chat",
		"--config", "",
		"--memory=true",
		"--mentors", "testdata/mentors.json",
		"--offline=true")
	require.NoError(t, err)

	assert.Contains(t, out, "Tell me what you'd like to learn")
	assert.Contains(t, out, "Ana Lopez")
	assert.Contains(t, out, "! mentor was not among the presented suggestions")
	assert.NotContains(t, out, "this line is never read")
}

func TestChatCommand_CancelOutsidePresenting(t *testing.T) {
	isolateEnv(t)

	out, err := executeCommand(t, "I want to learn piano\n/select m2\n/cancel\n", "chat",
		"--config", "",
		"--memory=true",
		"--mentors", "testdata/mentors.json",
		"--offline=true")
	require.NoError(t, err)
	assert.Contains(t, out, "! cannot select a mentor while session is clarifying")
}

func TestChatCommand_EndOfInput(t *testing.T) {
	isolateEnv(t)

	_, err := executeCommand(t, "\n\n", "chat",
		"--config", "",
		"--memory=true",
		"--mentors", "testdata/mentors.json",
		"--offline=true")
	assert.NoError(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-cli-tokens")
	t.Setenv("JWT_EXPIRATION_HOURS", "2")
	t.Setenv("JWT_ISSUER", "")
	userID := uuid.New()

	out, err := executeCommand(t, "", "token", "--user", userID.String())
	require.NoError(t, err)

	var resp types.TokenResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, userID, resp.UserID)

	jwtCfg, err := config.NewJWTConfig()
	require.NoError(t, err)
	got, err := server.NewJWTService(jwtCfg).ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokenCommand_Errors(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-for-cli-tokens")
	t.Setenv("JWT_EXPIRATION_HOURS", "")

	_, err := executeCommand(t, "", "token", "--user", "not-a-uuid")
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "")
	_, err = executeCommand(t, "", "token", "--user", "")
	assert.Error(t, err)
}

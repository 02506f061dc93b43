package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// fixtureConfig writes a resources table, a content corpus and a config
// file pointing at them, and returns the config path. The language and
// category tables are left missing.
func fixtureConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data", "resources.csv"), `ID,Title,Language,Domain,Category,Subcategory,Authority,URL,Keywords,Summary
1,Effective Go,Go,go.dev,Style,Go,industry-leader,https://go.dev/doc/effective_go,idioms formatting,Writing clear idiomatic Go code
2,PEP 8,Python,peps.python.org,Style,Python,standard,https://peps.python.org/pep-0008,formatting naming style,Style guide for Python code
`)
	writeFile(t, filepath.Join(dir, "data", "content", "index.json"), `{
		"py-typing": {"title": "Type hints", "category": "Languages", "subcategory": "Python", "url": "https://example.com/typing", "file": "typing.md"}
	}`)
	writeFile(t, filepath.Join(dir, "data", "content", "typing.md"), "---\ntitle: Type hints\n---\nAnnotate python functions with type hints.")

	cfgPath := filepath.Join(dir, "devguide.yaml")
	writeFile(t, cfgPath, fmt.Sprintf(`data:
  dir: %s
  contentIndex: %s
  contentDir: %s
logging:
  level: error
`, filepath.Join(dir, "data"), filepath.Join(dir, "data", "content", "index.json"), filepath.Join(dir, "data", "content")))
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRoot_RequiresQuery(t *testing.T) {
	_, err := execute(t)
	require.Error(t, err)
}

func TestRoot_SearchJSON(t *testing.T) {
	cfg := fixtureConfig(t)

	out, err := execute(t, "--config", cfg, "python", "style", "--json")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "resource", res["domain"])
	assert.Equal(t, "python style", res["query"])
	results := res["results"].([]any)
	require.NotEmpty(t, results)
	top := results[0].(map[string]any)
	assert.Equal(t, "PEP 8", top["Title"])
	assert.Equal(t, "standard", top["Authority"])
	score := top["_score"].(float64)
	assert.Equal(t, math.Round(score*1000)/1000, score)
}

func TestRoot_SearchText(t *testing.T) {
	cfg := fixtureConfig(t)

	out, err := execute(t, "--config", cfg, "effective go", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "## Search Results")
	assert.Contains(t, out, "**Found:** 1 results")
	assert.Contains(t, out, "- **Title:** Effective Go")
}

func TestRoot_MissingDomainDataIsReported(t *testing.T) {
	cfg := fixtureConfig(t)

	out, err := execute(t, "--config", cfg, "testing", "--domain", "category", "--json")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Contains(t, res["error"], "categories.csv")
	assert.NotContains(t, res, "results")
}

func TestRoot_UnknownDomain(t *testing.T) {
	cfg := fixtureConfig(t)
	_, err := execute(t, "--config", cfg, "go", "--domain", "styles")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown domain")
}

func TestContentFlagAndSubcommandAgree(t *testing.T) {
	cfg := fixtureConfig(t)

	viaFlag, err := execute(t, "--config", cfg, "type hints", "--content", "--lang", "python", "--json")
	require.NoError(t, err)
	viaCmd, err := execute(t, "--config", cfg, "content", "type hints", "--lang", "python", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, viaFlag, viaCmd)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(viaCmd), &res))
	assert.Equal(t, "content", res["domain"])
	assert.Equal(t, "python", res["language"])
	assert.Len(t, res["results"], 1)
}

func TestRecommendText(t *testing.T) {
	cfg := fixtureConfig(t)

	out, err := execute(t, "--config", cfg, "recommend", "type hints", "--lang", "python")
	require.NoError(t, err)
	assert.Contains(t, out, "RECOMMENDATION: TYPE HINTS")
	assert.Contains(t, out, "TOP RESOURCES:")
	assert.Contains(t, out, "1. PEP 8 \U0001F3C6")
	assert.Contains(t, out, "Domain: peps.python.org | Authority: standard")
	assert.Contains(t, out, "Summary: Style guide for Python code...")
	assert.Contains(t, out, "DEEP CONTENT:")
	assert.Contains(t, out, "File: typing.md")
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "devguide version dev\n", out)
}

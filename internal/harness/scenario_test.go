package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/duplicate_ids.yaml")
	require.NoError(t, err)

	assert.Equal(t, "duplicate_ids", s.Name)
	assert.Equal(t, "duplicate_ids.xml", s.DocumentName())
	assert.Contains(t, s.XML, "<Name>second</Name>")
	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertRow, s.Assertions[0].Type)
	assert.Equal(t, int64(1), s.Assertions[0].Entry)
	require.NotNil(t, s.Assertions[3].Event)
	assert.Equal(t, "acknowledge", s.Assertions[3].Event.Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownFieldRejected(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
xml: "<Schedule/>"
assertion:
  - type: row_count
    count: 0
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "xml: '<S/>'\nassertions: [{type: row_count, count: 0}]\n",
			want: "name is required",
		},
		{
			name: "missing xml",
			yaml: "name: a\nassertions: [{type: row_count, count: 0}]\n",
			want: "xml is required",
		},
		{
			name: "no assertions",
			yaml: "name: a\nxml: '<S/>'\n",
			want: "at least one assertion",
		},
		{
			name: "bad document extension",
			yaml: "name: a\ndocument: a.txt\nxml: '<S/>'\nassertions: [{type: row_count, count: 0}]\n",
			want: "must end in .xml",
		},
		{
			name: "bad unknown_field answer",
			yaml: "name: a\nxml: '<S/>'\nanswers: {unknown_field: [maybe]}\nassertions: [{type: row_count, count: 0}]\n",
			want: "answers.unknown_field[0]",
		},
		{
			name: "row_count without count",
			yaml: "name: a\nxml: '<S/>'\nassertions: [{type: row_count}]\n",
			want: "row_count requires count",
		},
		{
			name: "row with unknown column",
			yaml: "name: a\nxml: '<S/>'\nassertions: [{type: row, entry: 1, expect: {Colour: red}}]\n",
			want: `unknown column "Colour"`,
		},
		{
			name: "unknown assertion type",
			yaml: "name: a\nxml: '<S/>'\nassertions: [{type: sorcery}]\n",
			want: `unknown assertion type "sorcery"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios_SortedByFileName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b", "a"} {
		content := "name: " + name + "\nxml: '<S/>'\nassertions: [{type: row_count, count: 0}]\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	scenarios, err := LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "a", scenarios[0].Name)
	assert.Equal(t, "b", scenarios[1].Name)
}

func TestLoadScenarios_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0644))

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

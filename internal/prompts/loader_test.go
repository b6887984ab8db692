package prompts

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	tmpl, err := Get("ai.json", "generate-markup")
	require.NoError(t, err)
	assert.Contains(t, tmpl, "{{.Resume}}")

	_, err = Get("missing.json", "generate-markup")
	assert.ErrorContains(t, err, "prompt file missing.json not found")

	_, err = Get("ai.json", "missing-key")
	assert.ErrorContains(t, err, `prompt key "missing-key" not found`)
}

func TestKeys(t *testing.T) {
	keys, err := Keys("ai.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"enhance-input", "generate-markup"}, keys)

	_, err = Keys("missing.json")
	assert.Error(t, err)
}

func TestEmbeddedPromptsRender(t *testing.T) {
	data := map[string]string{"Resume": "{}", "JobTitle": "SRE", "Requirements": "{}"}
	for _, key := range []string{"generate-markup", "enhance-input"} {
		t.Run(key, func(t *testing.T) {
			out, err := Render("ai.json", key, data)
			require.NoError(t, err)
			assert.NotContains(t, out, "{{.")
		})
	}
}

func TestRender_MissingValue(t *testing.T) {
	_, err := Render("ai.json", "enhance-input", map[string]string{"Resume": "{}"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JobTitle")
	assert.Contains(t, err.Error(), "Requirements")
}

func TestFill(t *testing.T) {
	tests := []struct {
		name        string
		tmpl        string
		data        map[string]string
		want        string
		wantMissing []string
	}{
		{"simple", "Hello {{.Name}} at {{.Company}}", map[string]string{"Name": "Ada", "Company": "Acme"}, "Hello Ada at Acme", nil},
		{"repeated", "{{.A}}-{{.A}}", map[string]string{"A": "x"}, "x-x", nil},
		{"extra data ignored", "{{.A}}", map[string]string{"A": "1", "B": "2"}, "1", nil},
		{"missing reported once", "{{.A}} {{.B}} {{.B}}", map[string]string{"A": "1"}, "1 {{.B}} {{.B}}", []string{"B"}},
		{"values are not re-expanded", "{{.Resume}} {{.Job}}", map[string]string{"Resume": "{{.Job}}", "Job": "SRE"}, "{{.Job}} SRE", nil},
		{"non placeholders kept", "{{ .Spaced }} {{.}} {json}", nil, "{{ .Spaced }} {{.}} {json}", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, missing := fill(tt.tmpl, tt.data)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, tt.wantMissing, missing)
		})
	}
}

func TestLoad(t *testing.T) {
	good := fstest.MapFS{"a.json": {Data: []byte(`{"k": "v {{.X}}"}`)}}
	all, err := load(good)
	require.NoError(t, err)
	assert.Equal(t, "v {{.X}}", all["a.json"]["k"])

	bad := fstest.MapFS{"b.json": {Data: []byte(`{"k": 1}`)}}
	_, err = load(bad)
	assert.ErrorContains(t, err, "failed to parse prompt file b.json")
}

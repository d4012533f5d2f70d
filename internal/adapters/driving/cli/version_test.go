package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	orig := version
	SetVersion(v)
	t.Cleanup(func() {
		version = orig
		versionFull = false
		versionCmd.Flags().Lookup("full").Changed = false
	})
}

func TestVersionCmd_PrintsVersion(t *testing.T) {
	withVersion(t, "1.2.3")

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Equal(t, "sercha-study 1.2.3\n", out)
}

func TestVersionCmd_DevByDefault(t *testing.T) {
	withVersion(t, "dev")

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "sercha-study dev")
	assert.NotContains(t, out, "vector:")
}

func TestVersionCmd_Full(t *testing.T) {
	withVersion(t, "1.2.3")
	orig := runtimeConfig
	runtimeConfig = domain.DefaultRuntimeConfig("/tmp/study")
	runtimeConfig.LLMProvider = domain.AIProviderAnthropic
	t.Cleanup(func() { runtimeConfig = orig })

	out, err := execute(t, "version", "--full")

	require.NoError(t, err)
	assert.Contains(t, out, "go:")
	assert.Contains(t, out, "vector:     flat")
	assert.Contains(t, out, "llm:        anthropic")
	assert.Contains(t, out, "storage:    /tmp/study")
}

package validation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRequiresJar(t *testing.T) {
	runner := &Runner{Java: "java", Jar: filepath.Join(t.TempDir(), "missing.jar")}

	_, err := runner.Run(context.Background(), "input.xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation module jar not found")
}

func TestRunRequiresInput(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "validator.jar")
	require.NoError(t, os.WriteFile(jar, []byte("jar"), 0o644))

	runner := &Runner{Java: "java", Jar: jar}
	_, err := runner.Run(context.Background(), filepath.Join(dir, "missing.xml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input file not found")
}

func TestRunReportsMissingJavaRuntime(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "validator.jar")
	input := filepath.Join(dir, "declaration.xml")
	require.NoError(t, os.WriteFile(jar, []byte("jar"), 0o644))
	require.NoError(t, os.WriteFile(input, []byte("<CESOP/>"), 0o644))

	runner := &Runner{Java: "definitely-not-a-real-java-binary", Jar: jar}
	_, err := runner.Run(context.Background(), input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "java runtime not found")
}

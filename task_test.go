package nimble

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNewTaskModuleIndexingMultiModule guards against the module double-bind
// bug: ast.Decode keys the entry module into File.Modules under "main" in
// addition to File.Main, so naively ranging over file.Modules to discover
// "every module besides main" used to bind the same shared AST nodes twice,
// under two different module indices.
func TestNewTaskModuleIndexingMultiModule(t *testing.T) {
	doc := []byte(`{
		"main": {"_type": "Module", "body": [
			{"_type": "Import", "module": "helper", "names": [{"name": "helper"}], "lineno": 1}
		]},
		"helper": {"_type": "Module", "body": [
			{"_type": "Assign",
			 "targets": [{"_type": "Name", "id": "x", "ctx": "Store", "lineno": 1}],
			 "value": {"_type": "Constant", "value": 1, "lineno": 1},
			 "lineno": 1}
		]}
	}`)

	task, err := NewTask(doc)
	require.NoError(t, err)

	// Exactly one entry-module index (0, keyed by "") and one "helper"
	// index, never a duplicate "main" entry aliasing index 0.
	require.Equal(t, []string{"", "helper"}, task.moduleNames)
	require.Equal(t, 0, task.moduleIndexByName[""])
	require.Equal(t, 1, task.moduleIndexByName["helper"])
	_, hasMain := task.moduleIndexByName["main"]
	require.False(t, hasMain)

	require.Len(t, task.frameSizes, 2)
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEvaluatePrintsResultFacts(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "discount.rules")
	factsPath := filepath.Join(dir, "order.json")
	require.NoError(t, os.WriteFile(rulesPath, []byte(
		`rule "discount" when Order.total > 1000 then assign Order.discount = Order.total * 0.1;`), 0o644))
	require.NoError(t, os.WriteFile(factsPath, []byte(`{"Order":{"total":1500}}`), 0o644))

	var out bytes.Buffer
	err := runEvaluate(&RootOptions{}, rulesPath, factsPath, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"discount":150`)
}

func TestRunEvaluateRejectsMissingRulesFile(t *testing.T) {
	var out bytes.Buffer
	err := runEvaluate(&RootOptions{}, "/no/such/file.rules", "", &out)
	require.Error(t, err)
}

package main

import (
	"bytes"
	"testing"

	"github.com/ksd-co/rule-engine-postgres/triggerpipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTriggerListRequiresDSN(t *testing.T) {
	var out bytes.Buffer
	err := runTriggerList(&RootOptions{}, &out)
	require.Error(t, err)
}

func TestRunTriggerCreateRequiresDSN(t *testing.T) {
	var out bytes.Buffer
	err := runTriggerCreate(&RootOptions{}, "/no/such/spec.yaml", &out)
	require.Error(t, err)
}

func TestDecodeTriggerSpecMapsLooseYAMLDocument(t *testing.T) {
	doc := map[string]interface{}{
		"name":        "flagHighValueOrders",
		"tablename":   "orders",
		"operation":   "INSERT",
		"timing":      "AFTER",
		"mode":        "sync",
		"programname": "discount",
		"maxretries":  "3", // WeaklyTypedInput must coerce this string to int
		"enabled":     true,
	}

	spec, err := decodeTriggerSpec(doc)
	require.NoError(t, err)
	assert.Equal(t, "flagHighValueOrders", spec.Name)
	assert.Equal(t, "orders", spec.TableName)
	assert.Equal(t, triggerpipeline.OpInsert, spec.Operation)
	assert.Equal(t, triggerpipeline.TimingAfter, spec.Timing)
	assert.Equal(t, triggerpipeline.ModeSync, spec.Mode)
	assert.Equal(t, 3, spec.MaxRetries)
	assert.True(t, spec.Enabled)
}

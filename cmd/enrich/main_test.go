package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partdesk/catalog-enrichment/pkg/config"
)

func TestRun_RejectsPartialWithBatchFile(t *testing.T) {
	err := run(context.Background(), &config.Config{}, "", "records.ndjson", "stage2_marketing", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-partial")
}

func TestDecodeRecord(t *testing.T) {
	record, err := decodeRecord([]byte(`{"part_number": "SW-24", "Name": "Managed Switch"}`))
	require.NoError(t, err)
	assert.Equal(t, "SW-24", record.PartNumber)
	assert.Equal(t, "Managed Switch", record.Name)

	_, err = decodeRecord([]byte("not json"))
	assert.Error(t, err)
}

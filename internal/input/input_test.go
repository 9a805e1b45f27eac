package input

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProjectJSON(t *testing.T) {
	t.Parallel()

	t.Run("preserves services key order", func(t *testing.T) {
		// zeta before alpha on purpose; a map decode would sort or shuffle.
		doc, err := Parse(context.Background(), []byte(`{
			"project_name": "ordering",
			"services": {
				"vpc":    [{"nat_gateways": 2}],
				"s3":     [{"storage_gb": 100}, {"storage_gb": 200}],
				"lambda": [{"number_of_requests": 5}]
			}
		}`), FormatJSON)
		require.NoError(t, err)

		assert.Equal(t, "ordering", doc.ProjectName)
		require.Len(t, doc.Items, 4)

		types := make([]string, len(doc.Items))
		for i, item := range doc.Items {
			types[i] = item.ServiceType
			assert.Equal(t, i, item.Ordinal)
		}
		assert.Equal(t, []string{"vpc", "s3", "s3", "lambda"}, types)

		assert.Equal(t, float64(100), doc.Items[1].Fields["storage_gb"])
		assert.Equal(t, float64(200), doc.Items[2].Fields["storage_gb"])
	})

	t.Run("rejects a document with neither form", func(t *testing.T) {
		_, err := Parse(context.Background(), []byte(`{"project_name": "x"}`), FormatJSON)
		require.Error(t, err)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		_, err := Parse(context.Background(), []byte(`{`), FormatJSON)
		require.Error(t, err)
	})
}

func TestParseProjectYAML(t *testing.T) {
	t.Parallel()

	doc, err := Parse(context.Background(), []byte(`
project_name: yaml-order
services:
  sqs:
    - requests_per_month: 1000
  s3:
    - storage_gb: 50
  alb:
    - processed_gb_per_month: 10
`), FormatYAML)
	require.NoError(t, err)

	require.Len(t, doc.Items, 3)
	assert.Equal(t, "sqs", doc.Items[0].ServiceType)
	assert.Equal(t, "s3", doc.Items[1].ServiceType)
	assert.Equal(t, "alb", doc.Items[2].ServiceType)
	assert.Equal(t, 50, doc.Items[1].Fields["storage_gb"])
}

func TestParseSOW(t *testing.T) {
	t.Parallel()

	doc, err := Parse(context.Background(), []byte(`{
		"result": {
			"project_name": "sow-project",
			"estimate": [
				{
					"service_name": "Input S3 Bucket",
					"description": "raw uploads",
					"configurations": {
						"AverageStorage": "500 GB",
						"StorageClass": "Standard",
						"PUT/GETRequestsPerMonth": "100k/500k",
						"DataTransferOut": "50 GB/month"
					}
				},
				{
					"service_name": "Ingestion Service (Fargate task)",
					"configurations": {
						"vCPU": "2 vCPU per task",
						"Memory": "4 GB per task",
						"AvgConcurrentTasks": "3"
					}
				},
				{
					"service_name": "IAM",
					"configurations": {}
				},
				{
					"service_name": "Quantum Compute Cluster",
					"configurations": {}
				}
			]
		}
	}`), FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "sow-project", doc.ProjectName)
	assert.Equal(t, []string{"IAM"}, doc.Skipped)
	require.Len(t, doc.Items, 3)

	t.Run("s3 entry normalizes units and aliases", func(t *testing.T) {
		item := doc.Items[0]
		assert.Equal(t, "s3", item.ServiceType)
		assert.Equal(t, 0, item.Ordinal)
		assert.Equal(t, float64(500), item.Fields["storage_gb"])
		assert.Equal(t, "S3 Standard", item.Fields["storage_class"])
		assert.Equal(t, float64(100_000), item.Fields["put_requests"])
		assert.Equal(t, float64(500_000), item.Fields["get_requests"])
		assert.Equal(t, float64(50), item.Fields["data_transfer_out_gb"])
		assert.Equal(t, "raw uploads", item.Fields["description"])
	})

	t.Run("fargate entry resolves by substring", func(t *testing.T) {
		item := doc.Items[1]
		assert.Equal(t, "ecs_fargate", item.ServiceType)
		assert.Equal(t, float64(2), item.Fields["vcpu_per_task"])
		assert.Equal(t, float64(4), item.Fields["memory_gb"])
		assert.Equal(t, float64(3), item.Fields["number_of_tasks"])
		// The service name stands in for a missing description.
		assert.Equal(t, "Ingestion Service (Fargate task)", item.Fields["description"])
	})

	t.Run("unknown service survives as a slug", func(t *testing.T) {
		item := doc.Items[2]
		assert.Equal(t, "quantum_compute_cluster", item.ServiceType)
	})
}

func TestParseQuantity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want float64
	}{
		{"500 GB", 500},
		{"500GB", 500},
		{"2 TB", 2000},
		{"1.5TB", 1500},
		{"20M", 20_000_000},
		{"250k", 250_000},
		{"1,200", 1200},
		{"42", 42},
		{"730 hours", 730},
		{"95.5", 95.5},
	}
	for _, tc := range cases {
		got, ok := parseQuantity(tc.raw)
		require.True(t, ok, "parseQuantity(%q)", tc.raw)
		assert.Equal(t, tc.want, got, "parseQuantity(%q)", tc.raw)
	}

	_, ok := parseQuantity("unbounded")
	assert.False(t, ok)
}

func TestTaskHoursToMinutes(t *testing.T) {
	t.Parallel()

	fields := make(map[string]any)
	taskHoursToMinutes("3 tasks * 730 hours", fields)
	assert.Equal(t, float64(730*60), fields["average_duration_minutes"])
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
services:
  s3:
    - storage_gb: 10
`), 0o644))

	doc, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "s3", doc.Items[0].ServiceType)

	_, err = LoadFile(context.Background(), filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

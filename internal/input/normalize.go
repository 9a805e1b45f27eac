package input

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/calcforge/calcforge/internal/ctxlog"
	"github.com/calcforge/calcforge/internal/estimate"
)

// Normalizer rewrites one scope-of-work entry into a normalized item. The
// second return value asks the caller to drop the entry entirely, reserved
// for services with no calculator form.
type Normalizer interface {
	Normalize(ctx context.Context, entry sowEntry) (estimate.Item, bool)
}

// NewNormalizer returns the rule-based normalizer: an alias table resolves
// the free-form service name to a service type, a per-type rule set maps
// configuration keys to schema fields, and quantity strings lose their unit
// decoration on the way.
func NewNormalizer() Normalizer {
	return &ruleNormalizer{}
}

// serviceAliases maps exact scope-of-work names to service types. Substring
// heuristics in resolveType cover the long tail of decorated names like
// "Input S3 Bucket" or "Ingestion Service (Fargate task)".
var serviceAliases = map[string]string{
	"S3":                        "s3",
	"Amazon S3":                 "s3",
	"EC2":                       "ec2",
	"Amazon EC2":                "ec2",
	"Lambda":                    "lambda",
	"AWS Lambda":                "lambda",
	"ECS Fargate Cluster":       "ecs_fargate",
	"Fargate":                   "ecs_fargate",
	"Application Load Balancer": "alb",
	"ALB":                       "alb",
	"CloudWatch":                "cloudwatch",
	"Amazon CloudWatch":         "cloudwatch",
	"SQS":                       "sqs",
	"SQS Queue":                 "sqs",
	"VPC":                       "vpc",
	"Amazon VPC":                "vpc",
}

// skippedServices have no calculator form or a flat zero cost; configuring
// them would only produce noise in the estimate.
var skippedServices = map[string]bool{
	"IAM":                       true,
	"Shield":                    true,
	"Security Groups":           true,
	"Public Subnet (multi-AZ)":  true,
	"Private Subnet (multi-AZ)": true,
}

type ruleNormalizer struct{}

func (n *ruleNormalizer) Normalize(ctx context.Context, entry sowEntry) (estimate.Item, bool) {
	if skippedServices[entry.ServiceName] {
		return estimate.Item{}, true
	}

	serviceType := resolveType(entry.ServiceName)
	fields := n.mapFields(ctx, serviceType, entry.Configurations)
	if entry.Description != "" {
		fields["description"] = entry.Description
	} else {
		fields["description"] = entry.ServiceName
	}

	return estimate.Item{ServiceType: serviceType, Fields: fields}, false
}

// resolveType turns a scope-of-work service name into a service type: exact
// alias first, then substring heuristics, finally a slug of the name so the
// item surfaces downstream as schema-not-found instead of disappearing.
func resolveType(serviceName string) string {
	if t, ok := serviceAliases[serviceName]; ok {
		return t
	}
	switch {
	case strings.Contains(serviceName, "S3"):
		return "s3"
	case strings.Contains(serviceName, "Fargate"), strings.Contains(serviceName, "ECS"):
		return "ecs_fargate"
	case strings.Contains(serviceName, "Lambda"):
		return "lambda"
	case strings.Contains(serviceName, "Load Balancer"):
		return "alb"
	case strings.Contains(serviceName, "CloudWatch"):
		return "cloudwatch"
	case strings.Contains(serviceName, "SQS"), strings.Contains(serviceName, "Queue"):
		return "sqs"
	case strings.Contains(serviceName, "VPC"), strings.Contains(serviceName, "NAT"):
		return "vpc"
	case strings.Contains(serviceName, "EC2"):
		return "ec2"
	}
	return slug(serviceName)
}

func slug(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
	return strings.Trim(cleaned, "_")
}

// fieldRule binds one configuration key to a converter that writes the
// corresponding schema field(s).
type fieldRule struct {
	key     string
	convert func(raw string, fields map[string]any)
}

func quantity(field string) func(string, map[string]any) {
	return func(raw string, fields map[string]any) {
		if v, ok := parseQuantity(raw); ok {
			fields[field] = v
		}
	}
}

func text(field string) func(string, map[string]any) {
	return func(raw string, fields map[string]any) {
		fields[field] = raw
	}
}

// fieldRules per service type. Keys follow the scope-of-work vocabulary;
// anything not listed is dropped, because the validator rejects unknown
// fields and a half-guessed mapping is worse than an omission.
var fieldRules = map[string][]fieldRule{
	"s3": {
		{key: "AverageStorage", convert: quantity("storage_gb")},
		{key: "StorageAmount", convert: quantity("storage_gb")},
		{key: "StorageClass", convert: normalizeStorageClass},
		{key: "PUT/GETRequestsPerMonth", convert: splitPutGet},
		{key: "DataTransferOut", convert: quantity("data_transfer_out_gb")},
		{key: "DataTransferOutPerMonth", convert: quantity("data_transfer_out_gb")},
	},
	"ec2": {
		{key: "InstanceType", convert: text("instance_type")},
		{key: "InstanceCount", convert: quantity("instance_count")},
		{key: "OperatingSystem", convert: text("operating_system")},
		{key: "Utilization", convert: quantity("utilization_percent")},
		{key: "StorageAmount", convert: quantity("storage_gb")},
	},
	"lambda": {
		{key: "RequestsPerMonth", convert: quantity("number_of_requests")},
		{key: "AvgDuration", convert: quantity("avg_duration_ms")},
		{key: "Memory", convert: quantity("memory_mb")},
		{key: "Architecture", convert: text("architecture")},
	},
	"ecs_fargate": {
		{key: "vCPU", convert: quantity("vcpu_per_task")},
		{key: "Memory", convert: quantity("memory_gb")},
		{key: "AvgConcurrentTasks", convert: quantity("number_of_tasks")},
		{key: "TaskHoursPerMonth", convert: taskHoursToMinutes},
		{key: "EphemeralStorage", convert: quantity("ephemeral_storage_gb")},
	},
	"alb": {
		{key: "LoadBalancerCount", convert: quantity("number_of_load_balancers")},
		{key: "DataProcessedPerMonth", convert: quantity("processed_gb_per_month")},
		{key: "NewConnectionsPerSecond", convert: quantity("new_connections_per_second")},
	},
	"cloudwatch": {
		{key: "LogsIngestionPerMonth", convert: quantity("logs_ingested_gb")},
		{key: "LogsStoragePerMonth", convert: quantity("logs_storage_gb")},
		{key: "Metrics", convert: quantity("metrics_count")},
	},
	"sqs": {
		{key: "RequestsPerMonth", convert: quantity("requests_per_month")},
		{key: "QueueType", convert: text("queue_type")},
		{key: "DataTransferOut", convert: quantity("data_transfer_out_gb")},
	},
	"vpc": {
		{key: "NATGateways", convert: quantity("nat_gateways")},
		{key: "VPNConnections", convert: quantity("site_to_site_vpn_connections")},
		{key: "DataProcessedPerMonth", convert: quantity("data_processed_gb")},
	},
}

func (n *ruleNormalizer) mapFields(ctx context.Context, serviceType string, configurations map[string]any) map[string]any {
	logger := ctxlog.FromContext(ctx)
	fields := make(map[string]any)

	rules := fieldRules[serviceType]
	for key, raw := range configurations {
		rule, ok := findRule(rules, key)
		if !ok {
			logger.Debug("Dropping unmapped configuration key.", "service", serviceType, "key", key)
			continue
		}
		rule.convert(fmt.Sprint(raw), fields)
	}
	return fields
}

func findRule(rules []fieldRule, key string) (fieldRule, bool) {
	for _, r := range rules {
		if r.key == key {
			return r, true
		}
	}
	return fieldRule{}, false
}

// quantityPattern matches a leading number with an optional scale suffix,
// e.g. "500 GB", "2TB", "20M requests", "250k". The word boundary keeps a
// standalone M (millions) from swallowing the M of "MB".
var quantityPattern = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([kKM]\b)?`)

// parseQuantity strips unit decoration from a quantity string. Scale
// suffixes multiply: k by a thousand, M by a million, TB by a thousand
// (terabytes land in the gigabyte fields).
func parseQuantity(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	m := quantityPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, false
	}

	var value float64
	if _, err := fmt.Sscanf(m[1], "%g", &value); err != nil {
		return 0, false
	}
	switch m[2] {
	case "k", "K":
		value *= 1_000
	case "M":
		value *= 1_000_000
	}
	if strings.Contains(cleaned, "TB") {
		value *= 1_000
	}
	return value, true
}

// splitPutGet handles the combined "100k/500k" request figure, yielding
// both request fields from one key.
func splitPutGet(raw string, fields map[string]any) {
	parts := strings.SplitN(raw, "/", 2)
	if v, ok := parseQuantity(parts[0]); ok {
		fields["put_requests"] = v
	}
	if len(parts) == 2 {
		if v, ok := parseQuantity(parts[1]); ok {
			fields["get_requests"] = v
		}
	}
}

// taskHoursToMinutes converts figures like "3 tasks * 730 hours" into the
// per-task duration the calculator form wants.
func taskHoursToMinutes(raw string, fields map[string]any) {
	part := raw
	if i := strings.LastIndex(raw, "*"); i >= 0 {
		part = raw[i+1:]
	}
	if v, ok := parseQuantity(part); ok {
		fields["average_duration_minutes"] = v * 60
	}
}

// normalizeStorageClass expands the short scope-of-work class names into
// the calculator's labels.
func normalizeStorageClass(raw string, fields map[string]any) {
	value := strings.TrimSpace(raw)
	if !strings.HasPrefix(value, "S3") {
		value = "S3 " + value
	}
	fields["storage_class"] = value
}

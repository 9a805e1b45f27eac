package configurator

import "fmt"

// The calculator renders one search result card per service; its configure
// button is labelled with the service's full display name.
func cardFor(displayName string) string {
	return fmt.Sprintf("button[aria-label='Configure %s']", displayName)
}

const (
	selDescription = "input[aria-label='Description']"
	selRegion      = "select[data-cy='region-select']"
)

func newS3() Configurator {
	return &pageConfigurator{
		serviceType: "s3",
		searchTerms: []string{
			"Amazon Simple Storage Service (S3)",
			"S3",
			"Simple Storage Service",
		},
		cardSelector:  cardFor("Amazon Simple Storage Service (S3)"),
		readySelector: selDescription,
		controls: []Control{
			{Field: "description", Selector: selDescription, Kind: ControlText},
			{Field: "region", Selector: selRegion, Kind: ControlSelect},
			{Field: "storage_class", Selector: "select[aria-label='Storage class']", Kind: ControlSelect},
			{Field: "storage_gb", Selector: "input[aria-label='S3 Standard storage amount']", Kind: ControlText},
			{Field: "put_requests", Selector: "input[aria-label='PUT, COPY, POST, LIST requests']", Kind: ControlText},
			{Field: "get_requests", Selector: "input[aria-label='GET, SELECT, and all other requests']", Kind: ControlText},
			{Field: "data_transfer_out_gb", Selector: "input[aria-label='Data transfer out amount']", Kind: ControlText},
		},
	}
}

func newEC2() Configurator {
	return &pageConfigurator{
		serviceType: "ec2",
		searchTerms: []string{
			"Amazon EC2",
			"EC2",
			"Elastic Compute Cloud",
		},
		cardSelector:  cardFor("Amazon EC2"),
		readySelector: selDescription,
		controls: []Control{
			{Field: "description", Selector: selDescription, Kind: ControlText},
			{Field: "region", Selector: selRegion, Kind: ControlSelect},
			{Field: "operating_system", Selector: "select[aria-label='Operating system']", Kind: ControlSelect},
			{Field: "instance_type", Selector: "input[aria-label='Search instance type']", Kind: ControlText},
			{Field: "instance_count", Selector: "input[aria-label='Number of instances']", Kind: ControlText},
			{Field: "pricing_model", Selector: "select[aria-label='Pricing strategy']", Kind: ControlSelect},
			{Field: "utilization_percent", Selector: "input[aria-label='Usage percent']", Kind: ControlText},
			{Field: "storage_gb", Selector: "input[aria-label='Storage amount']", Kind: ControlText},
		},
	}
}

func newLambda() Configurator {
	return &pageConfigurator{
		serviceType: "lambda",
		searchTerms: []string{
			"AWS Lambda",
			"Lambda",
		},
		cardSelector:  cardFor("AWS Lambda"),
		readySelector: selDescription,
		controls: []Control{
			{Field: "description", Selector: selDescription, Kind: ControlText},
			{Field: "region", Selector: selRegion, Kind: ControlSelect},
			{Field: "architecture", Selector: "select[aria-label='Architecture']", Kind: ControlSelect},
			{Field: "number_of_requests", Selector: "input[aria-label='Number of requests']", Kind: ControlText},
			{Field: "avg_duration_ms", Selector: "input[aria-label='Duration of each request (in ms)']", Kind: ControlText},
			{Field: "memory_mb", Selector: "input[aria-label='Amount of memory allocated']", Kind: ControlText},
		},
	}
}

func newECSFargate() Configurator {
	return &pageConfigurator{
		serviceType: "ecs_fargate",
		searchTerms: []string{
			"AWS Fargate",
			"Fargate",
			"Elastic Container Service",
		},
		cardSelector:  cardFor("AWS Fargate"),
		readySelector: selDescription,
		controls: []Control{
			{Field: "description", Selector: selDescription, Kind: ControlText},
			{Field: "region", Selector: selRegion, Kind: ControlSelect},
			{Field: "operating_system", Selector: "select[aria-label='Operating system']", Kind: ControlSelect},
			{Field: "number_of_tasks", Selector: "input[aria-label='Number of tasks or pods']", Kind: ControlText},
			{Field: "vcpu_per_task", Selector: "input[aria-label='Amount of vCPU allocated']", Kind: ControlText},
			{Field: "memory_gb", Selector: "input[aria-label='Amount of memory allocated']", Kind: ControlText},
			{Field: "average_duration_minutes", Selector: "input[aria-label='Average duration']", Kind: ControlText},
			{Field: "ephemeral_storage_gb", Selector: "input[aria-label='Amount of ephemeral storage allocated for Amazon ECS']", Kind: ControlText},
		},
	}
}

func newALB() Configurator {
	return &pageConfigurator{
		serviceType: "alb",
		searchTerms: []string{
			"Elastic Load Balancing",
			"Application Load Balancer",
			"Load Balancer",
		},
		cardSelector:  cardFor("Elastic Load Balancing"),
		readySelector: selDescription,
		controls: []Control{
			{Field: "description", Selector: selDescription, Kind: ControlText},
			{Field: "region", Selector: selRegion, Kind: ControlSelect},
			{Field: "number_of_load_balancers", Selector: "input[aria-label='Number of Application Load Balancers']", Kind: ControlText},
			{Field: "processed_gb_per_month", Selector: "input[aria-label='Processed bytes per Application Load Balancer']", Kind: ControlText},
			{Field: "new_connections_per_second", Selector: "input[aria-label='Average number of new connections per second']", Kind: ControlText},
		},
	}
}

func newCloudWatch() Configurator {
	return &pageConfigurator{
		serviceType: "cloudwatch",
		searchTerms: []string{
			"Amazon CloudWatch",
			"CloudWatch",
		},
		cardSelector:  cardFor("Amazon CloudWatch"),
		readySelector: selDescription,
		controls: []Control{
			{Field: "description", Selector: selDescription, Kind: ControlText},
			{Field: "region", Selector: selRegion, Kind: ControlSelect},
			{Field: "logs_ingested_gb", Selector: "input[aria-label='Standard Logs: Data Ingested']", Kind: ControlText},
			{Field: "logs_storage_gb", Selector: "input[aria-label='Logs Storage/Archival']", Kind: ControlText},
			{Field: "metrics_count", Selector: "input[aria-label='Number of Metrics']", Kind: ControlText},
		},
	}
}

func newSQS() Configurator {
	return &pageConfigurator{
		serviceType: "sqs",
		searchTerms: []string{
			"Amazon Simple Queue Service (SQS)",
			"SQS",
			"Simple Queue Service",
		},
		cardSelector:  cardFor("Amazon Simple Queue Service (SQS)"),
		readySelector: selDescription,
		controls: []Control{
			{Field: "description", Selector: selDescription, Kind: ControlText},
			{Field: "region", Selector: selRegion, Kind: ControlSelect},
			{Field: "queue_type", Selector: "select[aria-label='Queue type']", Kind: ControlSelect},
			{Field: "requests_per_month", Selector: "input[aria-label='Requests per month']", Kind: ControlText},
			{Field: "data_transfer_out_gb", Selector: "input[aria-label='Data transfer out amount']", Kind: ControlText},
		},
	}
}

func newVPC() Configurator {
	return &pageConfigurator{
		serviceType: "vpc",
		searchTerms: []string{
			"Amazon Virtual Private Cloud (VPC)",
			"VPC",
			"Virtual Private Cloud",
		},
		cardSelector:  cardFor("Amazon Virtual Private Cloud (VPC)"),
		readySelector: selDescription,
		controls: []Control{
			{Field: "description", Selector: selDescription, Kind: ControlText},
			{Field: "region", Selector: selRegion, Kind: ControlSelect},
			{Field: "nat_gateways", Selector: "input[aria-label='Number of NAT Gateways']", Kind: ControlText},
			{Field: "site_to_site_vpn_connections", Selector: "input[aria-label='Number of Site-to-Site VPN Connections']", Kind: ControlText},
			{Field: "data_processed_gb", Selector: "input[aria-label='Data processed per NAT Gateway']", Kind: ControlText},
		},
	}
}

package awsapi

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// ECSClient defines the ECS operations the cloud handlers use.
type ECSClient interface {
	DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
	UpdateService(ctx context.Context, params *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error)
	DescribeTaskDefinition(ctx context.Context, params *ecs.DescribeTaskDefinitionInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTaskDefinitionOutput, error)
	ListTasks(ctx context.Context, params *ecs.ListTasksInput, optFns ...func(*ecs.Options)) (*ecs.ListTasksOutput, error)
	DescribeTasks(ctx context.Context, params *ecs.DescribeTasksInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error)
}

// CloudFormationClient defines the stack operations used for discovery.
type CloudFormationClient interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// RDSClient defines the managed-database operations used by the database
// service type.
type RDSClient interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
	CreateDBSnapshot(ctx context.Context, params *rds.CreateDBSnapshotInput, optFns ...func(*rds.Options)) (*rds.CreateDBSnapshotOutput, error)
	RestoreDBInstanceFromDBSnapshot(ctx context.Context, params *rds.RestoreDBInstanceFromDBSnapshotInput, optFns ...func(*rds.Options)) (*rds.RestoreDBInstanceFromDBSnapshotOutput, error)
}

// Adapter bundles the cloud clients plus the environment-level settings the
// handlers need. Handlers resolve the cluster name through the discovery
// pre-pass, not from the adapter.
type Adapter struct {
	ecs    ECSClient
	cfn    CloudFormationClient
	rds    RDSClient
	region string

	// stackName is the infrastructure stack discovery reads outputs from.
	stackName string

	// cluster, when set, skips stack discovery entirely.
	cluster string

	// domain is the environment's public domain, used by publish to report
	// the public endpoint.
	domain string
}

// Options configures New.
type Options struct {
	Region    string
	StackName string
	Cluster   string
	Domain    string
}

// New loads the default AWS configuration for the region and builds real
// service clients.
func New(ctx context.Context, opts Options) (*Adapter, error) {
	if opts.Region == "" {
		return nil, fmt.Errorf("aws: region is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("aws: failed to load configuration: %w", err)
	}

	return &Adapter{
		ecs:       ecs.NewFromConfig(cfg),
		cfn:       cloudformation.NewFromConfig(cfg),
		rds:       rds.NewFromConfig(cfg),
		region:    opts.Region,
		stackName: opts.StackName,
		cluster:   opts.Cluster,
		domain:    opts.Domain,
	}, nil
}

// NewWithClients builds an adapter over caller-supplied clients. Tests use
// it with fakes.
func NewWithClients(ecs ECSClient, cfn CloudFormationClient, rds RDSClient, opts Options) *Adapter {
	return &Adapter{
		ecs:       ecs,
		cfn:       cfn,
		rds:       rds,
		region:    opts.Region,
		stackName: opts.StackName,
		cluster:   opts.Cluster,
		domain:    opts.Domain,
	}
}

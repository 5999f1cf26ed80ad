package awsapi

import (
	"context"
	"fmt"
	"strings"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"

	"steward/pkg/logging"
)

// Discovery keys the pre-pass populates in HandlerContext.Discovered.
const (
	DiscoveredCluster = "cluster"
	DiscoveredRegion  = "region"
)

// Discover resolves live-infrastructure identifiers from the environment's
// stack outputs. It satisfies the platform.Discoverer contract; the strategy
// layer caches the result for the duration of one command invocation.
func (a *Adapter) Discover(ctx context.Context) (map[string]string, error) {
	discovered := map[string]string{DiscoveredRegion: a.region}

	if a.cluster != "" {
		discovered[DiscoveredCluster] = a.cluster
		return discovered, nil
	}
	if a.stackName == "" {
		return nil, fmt.Errorf("aws: neither cluster nor stack name configured for discovery")
	}

	out, err := a.cfn.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: awsv2.String(a.stackName),
	})
	if err != nil {
		return nil, fmt.Errorf("aws: describe stack %s: %w", a.stackName, err)
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("aws: stack %s not found", a.stackName)
	}

	for _, output := range out.Stacks[0].Outputs {
		key := awsv2.ToString(output.OutputKey)
		value := awsv2.ToString(output.OutputValue)
		switch {
		case strings.EqualFold(key, "ClusterName"):
			discovered[DiscoveredCluster] = value
		default:
			// Every output is surfaced; handlers pick what they need.
			discovered[key] = value
		}
	}

	if discovered[DiscoveredCluster] == "" {
		return nil, fmt.Errorf("aws: stack %s has no ClusterName output", a.stackName)
	}

	logging.Debug("AWSDiscovery", "Resolved cluster %s from stack %s", discovered[DiscoveredCluster], a.stackName)
	return discovered, nil
}

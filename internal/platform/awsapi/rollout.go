package awsapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"steward/internal/rollout"
)

// serviceRollout implements the rollout.API contract for one ECS service.
// It is created per update invocation and keeps the event high-water mark
// between ticks so each observation sees only new events.
type serviceRollout struct {
	ecs     ECSClient
	cluster string
	service string

	lastEventAt time.Time
}

// newServiceRollout builds the rollout API for one service in one cluster.
func (a *Adapter) newServiceRollout(cluster, service string) *serviceRollout {
	return &serviceRollout{
		ecs:     a.ecs,
		cluster: cluster,
		service: service,
		// Only events emitted after monitoring begins matter.
		lastEventAt: time.Now(),
	}
}

// Start decides between upgrade and restart and kicks the rollout off. A
// newer ACTIVE revision of the service's task family means upgrade;
// otherwise the current revision is force-recreated.
func (s *serviceRollout) Start(ctx context.Context) (rollout.StartResult, error) {
	svc, err := s.describeService(ctx)
	if err != nil {
		return rollout.StartResult{}, err
	}

	currentDef := awsv2.ToString(svc.TaskDefinition)
	family := familyOf(currentDef)

	latest, err := s.ecs.DescribeTaskDefinition(ctx, &ecs.DescribeTaskDefinitionInput{
		TaskDefinition: awsv2.String(family),
	})
	if err != nil {
		return rollout.StartResult{}, fmt.Errorf("aws: describe task definition %s: %w", family, err)
	}
	latestDef := awsv2.ToString(latest.TaskDefinition.TaskDefinitionArn)

	input := &ecs.UpdateServiceInput{
		Cluster: awsv2.String(s.cluster),
		Service: awsv2.String(s.service),
	}
	mode := rollout.ModeRestart
	if latestDef != currentDef {
		mode = rollout.ModeUpgrade
		input.TaskDefinition = awsv2.String(latestDef)
	} else {
		input.ForceNewDeployment = true
	}

	out, err := s.ecs.UpdateService(ctx, input)
	if err != nil {
		return rollout.StartResult{}, fmt.Errorf("aws: update service %s: %w", s.service, err)
	}

	deploymentID := primaryDeploymentID(out.Service.Deployments)
	if deploymentID == "" {
		return rollout.StartResult{}, fmt.Errorf("aws: update of %s returned no primary deployment", s.service)
	}

	return rollout.StartResult{
		DeploymentID:    deploymentID,
		Mode:            mode,
		DesiredCount:    int(out.Service.DesiredCount),
		PreviousVersion: revisionOf(currentDef),
		NewVersion:      revisionOf(latestDef),
	}, nil
}

// Observe assembles one polling tick: deployment list, new events, stopped
// and running task partitions.
func (s *serviceRollout) Observe(ctx context.Context, deploymentID string) (rollout.Observation, error) {
	svc, err := s.describeService(ctx)
	if err != nil {
		return rollout.Observation{}, err
	}

	obs := rollout.Observation{Time: time.Now()}

	for _, d := range svc.Deployments {
		obs.Deployments = append(obs.Deployments, rollout.DeploymentInfo{
			ID:           awsv2.ToString(d.Id),
			Revision:     awsv2.ToString(d.TaskDefinition),
			Status:       deploymentStatus(d),
			DesiredCount: int(d.DesiredCount),
			SteadyState:  steadyState(d, svc.Events),
		})
	}

	obs.ImagePulling = s.consumeImagePullEvents(svc.Events)

	stopped, err := s.describeTasks(ctx, ecstypes.DesiredStatusStopped)
	if err != nil {
		return rollout.Observation{}, err
	}
	for _, task := range stopped {
		if awsv2.ToString(task.StartedBy) != deploymentID {
			continue
		}
		obs.StoppedTasks = append(obs.StoppedTasks, stoppedTaskInfo(task))
	}

	running, err := s.describeTasks(ctx, ecstypes.DesiredStatusRunning)
	if err != nil {
		return rollout.Observation{}, err
	}
	for _, task := range running {
		counts := &obs.OldTasks
		if awsv2.ToString(task.StartedBy) == deploymentID {
			counts = &obs.NewTasks
		}
		counts.Total++
		switch awsv2.ToString(task.LastStatus) {
		case "RUNNING":
			counts.Running++
			if task.HealthStatus == ecstypes.HealthStatusHealthy {
				counts.Healthy++
			}
		case "PENDING", "PROVISIONING", "ACTIVATING":
			counts.Pending++
		}
	}

	return obs, nil
}

func (s *serviceRollout) describeService(ctx context.Context) (*ecstypes.Service, error) {
	out, err := s.ecs.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  awsv2.String(s.cluster),
		Services: []string{s.service},
	})
	if err != nil {
		return nil, fmt.Errorf("aws: describe service %s: %w", s.service, err)
	}
	if len(out.Services) == 0 {
		return nil, fmt.Errorf("aws: service %s not found in cluster %s", s.service, s.cluster)
	}
	return &out.Services[0], nil
}

func (s *serviceRollout) describeTasks(ctx context.Context, desired ecstypes.DesiredStatus) ([]ecstypes.Task, error) {
	listed, err := s.ecs.ListTasks(ctx, &ecs.ListTasksInput{
		Cluster:       awsv2.String(s.cluster),
		ServiceName:   awsv2.String(s.service),
		DesiredStatus: desired,
	})
	if err != nil {
		return nil, fmt.Errorf("aws: list %s tasks for %s: %w", strings.ToLower(string(desired)), s.service, err)
	}
	if len(listed.TaskArns) == 0 {
		return nil, nil
	}

	described, err := s.ecs.DescribeTasks(ctx, &ecs.DescribeTasksInput{
		Cluster: awsv2.String(s.cluster),
		Tasks:   listed.TaskArns,
	})
	if err != nil {
		return nil, fmt.Errorf("aws: describe tasks for %s: %w", s.service, err)
	}
	return described.Tasks, nil
}

// consumeImagePullEvents reports whether any event newer than the high-water
// mark mentions an image pull, and advances the mark. This is the one place
// event text is inspected for pull detection.
func (s *serviceRollout) consumeImagePullEvents(events []ecstypes.ServiceEvent) bool {
	pulling := false
	newest := s.lastEventAt
	for _, e := range events {
		createdAt := awsv2.ToTime(e.CreatedAt)
		if !createdAt.After(s.lastEventAt) {
			continue
		}
		if createdAt.After(newest) {
			newest = createdAt
		}
		if strings.Contains(strings.ToLower(awsv2.ToString(e.Message)), "pulling image") {
			pulling = true
		}
	}
	s.lastEventAt = newest
	return pulling
}

// deploymentStatus normalizes ECS deployment status values. PRIMARY and
// ACTIVE are both in play; anything else is done.
func deploymentStatus(d ecstypes.Deployment) string {
	switch awsv2.ToString(d.Status) {
	case "PRIMARY", "ACTIVE":
		return rollout.DeploymentStatusActive
	default:
		return "inactive"
	}
}

// steadyState derives the typed steady-state signal the restart completion
// branch requires. The rollout state is authoritative when the cluster has
// the circuit breaker enabled; the steady-state service event is the
// fallback for clusters that do not populate it.
func steadyState(d ecstypes.Deployment, events []ecstypes.ServiceEvent) bool {
	if d.RolloutState == ecstypes.DeploymentRolloutStateCompleted {
		return true
	}
	deployedAt := awsv2.ToTime(d.CreatedAt)
	for _, e := range events {
		if awsv2.ToTime(e.CreatedAt).Before(deployedAt) {
			continue
		}
		if strings.Contains(awsv2.ToString(e.Message), "has reached a steady state") {
			return true
		}
	}
	return false
}

func stoppedTaskInfo(task ecstypes.Task) rollout.StoppedTask {
	info := rollout.StoppedTask{
		ID:           taskIDOf(awsv2.ToString(task.TaskArn)),
		DeploymentID: awsv2.ToString(task.StartedBy),
		StopReason:   awsv2.ToString(task.StoppedReason),
	}
	for _, c := range task.Containers {
		if c.ExitCode != nil {
			code := int(*c.ExitCode)
			info.ExitCode = &code
			if reason := awsv2.ToString(c.Reason); reason != "" {
				info.LogTail = append(info.LogTail, fmt.Sprintf("%s: %s", awsv2.ToString(c.Name), reason))
			}
			break
		}
	}
	return info
}

// primaryDeploymentID returns the id of the PRIMARY deployment, the one an
// UpdateService call just created or replaced.
func primaryDeploymentID(deployments []ecstypes.Deployment) string {
	for _, d := range deployments {
		if awsv2.ToString(d.Status) == "PRIMARY" {
			return awsv2.ToString(d.Id)
		}
	}
	return ""
}

// familyOf extracts the task family from a task definition ARN like
// arn:aws:ecs:region:acct:task-definition/family:revision.
func familyOf(taskDefARN string) string {
	name := taskDefARN
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		name = name[:idx]
	}
	return name
}

// revisionOf renders the family:revision suffix of a task definition ARN.
func revisionOf(taskDefARN string) string {
	if idx := strings.LastIndex(taskDefARN, "/"); idx >= 0 {
		return taskDefARN[idx+1:]
	}
	return taskDefARN
}

// taskIDOf extracts the short task id from a task ARN.
func taskIDOf(taskARN string) string {
	if idx := strings.LastIndex(taskARN, "/"); idx >= 0 {
		return taskARN[idx+1:]
	}
	return taskARN
}

package awsapi

import (
	"context"
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/google/uuid"

	"steward/internal/api"
	"steward/internal/registry"
	"steward/internal/requirements"
	"steward/internal/rollout"
	"steward/pkg/logging"
)

// ecsServiceTypes are the service types that run as orchestrator services.
// The managed database type has its own handler set backed by RDS.
var ecsServiceTypes = []string{
	requirements.TypeWeb,
	requirements.TypeAPI,
	requirements.TypeWorker,
}

// Descriptors returns the cloud-platform handler registrations. Every
// handler needs the cluster resolved from stack outputs first, so all of
// them are registered with RequiresDiscovery. The rollout options and sink
// are captured for the update verb's monitor.
func (a *Adapter) Descriptors(rolloutOpts rollout.Options, sink rollout.Sink) []registry.Descriptor {
	h := &cloudHandlers{adapter: a, rolloutOpts: rolloutOpts, sink: sink}

	var descriptors []registry.Descriptor
	for _, serviceType := range ecsServiceTypes {
		descriptors = append(descriptors,
			registry.Descriptor{Command: api.CommandStart, Platform: api.PlatformCloud, ServiceType: serviceType, Handler: h.start, RequiresDiscovery: true},
			registry.Descriptor{Command: api.CommandStop, Platform: api.PlatformCloud, ServiceType: serviceType, Handler: h.stop, RequiresDiscovery: true},
			registry.Descriptor{Command: api.CommandCheck, Platform: api.PlatformCloud, ServiceType: serviceType, Handler: h.check, RequiresDiscovery: true},
			registry.Descriptor{Command: api.CommandUpdate, Platform: api.PlatformCloud, ServiceType: serviceType, Handler: h.update, RequiresDiscovery: true},
			registry.Descriptor{Command: api.CommandProvision, Platform: api.PlatformCloud, ServiceType: serviceType, Handler: h.provision, RequiresDiscovery: true},
		)
	}
	for _, serviceType := range []string{requirements.TypeWeb, requirements.TypeAPI} {
		descriptors = append(descriptors,
			registry.Descriptor{Command: api.CommandPublish, Platform: api.PlatformCloud, ServiceType: serviceType, Handler: h.publish, RequiresDiscovery: true},
		)
	}
	descriptors = append(descriptors,
		registry.Descriptor{Command: api.CommandCheck, Platform: api.PlatformCloud, ServiceType: requirements.TypeDatabase, Handler: h.checkDatabase, RequiresDiscovery: true},
		registry.Descriptor{Command: api.CommandBackup, Platform: api.PlatformCloud, ServiceType: requirements.TypeDatabase, Handler: h.backupDatabase, RequiresDiscovery: true},
		registry.Descriptor{Command: api.CommandRestore, Platform: api.PlatformCloud, ServiceType: requirements.TypeDatabase, Handler: h.restoreDatabase, RequiresDiscovery: true},
	)
	return descriptors
}

type cloudHandlers struct {
	adapter     *Adapter
	rolloutOpts rollout.Options
	sink        rollout.Sink
}

// check reports the ECS service's desired-versus-running counts as the
// normalized status.
func (h *cloudHandlers) check(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	cluster := hctx.Discovered[DiscoveredCluster]
	svc, err := h.describeService(ctx, cluster, ecsServiceName(hctx))
	if err != nil {
		return nil, err
	}

	desired := int(svc.DesiredCount)
	running := int(svc.RunningCount)

	result := &api.Result{
		Success:   true,
		Resources: api.NewCloudRef(awsv2.ToString(svc.ServiceArn), "", "", h.adapter.region),
	}
	result.SetMetadata("cluster", cluster)
	result.SetMetadata("desiredCount", desired)
	result.SetMetadata("runningCount", running)

	switch {
	case desired == 0:
		result.Status = api.StatusStopped
	case running == desired:
		result.Status = api.StatusRunning
		if !hctx.SkipHealthCheck {
			result.Health = api.HealthHealthy
		}
	case running > 0:
		result.Status = api.StatusDegraded
		if !hctx.SkipHealthCheck {
			result.Health = api.HealthUnhealthy
		}
	default:
		result.Status = api.StatusDegraded
		if !hctx.SkipHealthCheck {
			result.Health = api.HealthUnhealthy
		}
	}
	return result, nil
}

// start scales the service up to its configured desired count. The service
// itself must already be provisioned; creating it is infrastructure work
// that lives in the environment's stack.
func (h *cloudHandlers) start(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	cluster := hctx.Discovered[DiscoveredCluster]
	name := ecsServiceName(hctx)

	svc, err := h.describeService(ctx, cluster, name)
	if err != nil {
		return nil, err
	}
	if svc.DesiredCount > 0 {
		result := &api.Result{
			Success:   true,
			Status:    api.StatusRunning,
			Resources: api.NewCloudRef(awsv2.ToString(svc.ServiceArn), "", "", h.adapter.region),
		}
		result.SetMetadata("alreadyRunning", true)
		return result, nil
	}

	desired := desiredCountFromConfig(hctx.ServiceConfig)
	out, err := h.adapter.ecs.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      awsv2.String(cluster),
		Service:      awsv2.String(name),
		DesiredCount: awsv2.Int32(int32(desired)),
	})
	if err != nil {
		return nil, fmt.Errorf("aws: scale up %s: %w", name, err)
	}

	logging.Info("CloudPlatform", "Scaled %s to %d tasks in cluster %s", name, desired, cluster)
	result := &api.Result{
		Success:   true,
		Status:    api.StatusRunning,
		Resources: api.NewCloudRef(awsv2.ToString(out.Service.ServiceArn), "", "", h.adapter.region),
	}
	result.SetMetadata("desiredCount", desired)
	return result, nil
}

// stop scales the service to zero tasks. The service definition stays in
// place so start can bring it back.
func (h *cloudHandlers) stop(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	cluster := hctx.Discovered[DiscoveredCluster]
	name := ecsServiceName(hctx)

	svc, err := h.describeService(ctx, cluster, name)
	if err != nil {
		return nil, err
	}
	if svc.DesiredCount == 0 {
		result := &api.Result{Success: true, Status: api.StatusStopped}
		result.SetMetadata("alreadyStopped", true)
		return result, nil
	}

	if _, err := h.adapter.ecs.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      awsv2.String(cluster),
		Service:      awsv2.String(name),
		DesiredCount: awsv2.Int32(0),
	}); err != nil {
		return nil, fmt.Errorf("aws: scale down %s: %w", name, err)
	}

	logging.Info("CloudPlatform", "Scaled %s to zero in cluster %s", name, cluster)
	return &api.Result{Success: true, Status: api.StatusStopped}, nil
}

// update starts a new rollout and, when asked to wait, drives the monitor
// to a terminal phase. Without waiting it reports the initiated deployment
// and returns immediately.
func (h *cloudHandlers) update(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	cluster := hctx.Discovered[DiscoveredCluster]
	name := ecsServiceName(hctx)
	ro := h.adapter.newServiceRollout(cluster, name)

	if !hctx.WaitForCompletion {
		start, err := ro.Start(ctx)
		if err != nil {
			return nil, err
		}
		result := &api.Result{
			Success:         true,
			Status:          api.StatusRunning,
			Strategy:        string(start.Mode),
			PreviousVersion: start.PreviousVersion,
			NewVersion:      start.NewVersion,
		}
		result.SetMetadata("deploymentId", start.DeploymentID)
		result.SetMetadata("waited", false)
		return result, nil
	}

	outcome, err := rollout.NewMonitor(ro, h.rolloutOpts, h.sink).Run(ctx)
	if err != nil {
		return nil, err
	}

	result := &api.Result{
		Success:         outcome.Succeeded(),
		Strategy:        string(outcome.State.Mode),
		PreviousVersion: outcome.PreviousVersion,
		NewVersion:      outcome.NewVersion,
	}
	result.SetMetadata("deploymentId", outcome.State.DeploymentID)
	result.SetMetadata("duration", outcome.Duration.String())
	if outcome.Succeeded() {
		result.Status = api.StatusRunning
		if !hctx.SkipHealthCheck {
			result.Health = api.HealthHealthy
		}
	} else {
		result.Status = api.StatusDegraded
		result.Error = outcome.State.FailureReason
		result.SetMetadata("failedTasks", outcome.State.FailedTaskCount)
	}
	return result, nil
}

// provision verifies that the environment's stack resolves and that the
// service is registered in the cluster. Creating the stack itself is
// infrastructure-as-code territory and stays outside steward.
func (h *cloudHandlers) provision(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	cluster := hctx.Discovered[DiscoveredCluster]
	name := ecsServiceName(hctx)

	svc, err := h.describeService(ctx, cluster, name)
	if err != nil {
		return nil, err
	}

	result := &api.Result{
		Success:   true,
		Status:    api.StatusUnknown,
		Resources: api.NewCloudRef(awsv2.ToString(svc.ServiceArn), "", "", h.adapter.region),
	}
	if svc.DesiredCount > 0 {
		result.Status = api.StatusRunning
	} else {
		result.Status = api.StatusStopped
	}
	result.SetMetadata("cluster", cluster)
	result.SetMetadata("provisioned", true)
	// Surface every stack output so callers see what the environment has.
	for key, value := range hctx.Discovered {
		if key != DiscoveredCluster && key != DiscoveredRegion {
			result.SetMetadata(key, value)
		}
	}
	return result, nil
}

// publish verifies the service is live and reports its public endpoint,
// preferring the environment's domain over the load balancer's raw address.
func (h *cloudHandlers) publish(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	cluster := hctx.Discovered[DiscoveredCluster]
	name := ecsServiceName(hctx)

	svc, err := h.describeService(ctx, cluster, name)
	if err != nil {
		return nil, err
	}
	if svc.RunningCount == 0 {
		return nil, fmt.Errorf("cannot publish %s: no running tasks", name)
	}

	result := &api.Result{
		Success:   true,
		Status:    api.StatusRunning,
		Resources: api.NewCloudRef(awsv2.ToString(svc.ServiceArn), "", "", h.adapter.region),
	}
	switch {
	case h.adapter.domain != "":
		result.Endpoint = "https://" + h.adapter.domain
	case hctx.Discovered["LoadBalancerDNS"] != "":
		result.Endpoint = "http://" + hctx.Discovered["LoadBalancerDNS"]
	}
	if result.Endpoint == "" {
		return nil, fmt.Errorf("cannot publish %s: no domain configured and no LoadBalancerDNS stack output", name)
	}
	result.SetMetadata("published", true)
	return result, nil
}

// checkDatabase probes the managed database instance's status.
func (h *cloudHandlers) checkDatabase(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	instance := dbInstanceIdentifier(hctx)
	out, err := h.adapter.rds.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: awsv2.String(instance),
	})
	if err != nil {
		return nil, fmt.Errorf("aws: describe db instance %s: %w", instance, err)
	}
	if len(out.DBInstances) == 0 {
		return nil, api.NewNotFoundError("database instance", instance)
	}
	db := out.DBInstances[0]

	status := awsv2.ToString(db.DBInstanceStatus)
	result := &api.Result{
		Success:   true,
		Resources: api.NewCloudRef(awsv2.ToString(db.DBInstanceArn), instance, "", h.adapter.region),
	}
	result.SetMetadata("instanceStatus", status)
	if db.Endpoint != nil {
		result.Endpoint = fmt.Sprintf("%s:%d", awsv2.ToString(db.Endpoint.Address), awsv2.ToInt32(db.Endpoint.Port))
	}

	switch status {
	case "available":
		result.Status = api.StatusRunning
		if !hctx.SkipHealthCheck {
			result.Health = api.HealthHealthy
		}
	case "stopped", "stopping":
		result.Status = api.StatusStopped
	default:
		// Transitional states such as backing-up, modifying, rebooting.
		result.Status = api.StatusDegraded
	}
	return result, nil
}

// backupDatabase takes a point-in-time snapshot and reports its identifier.
func (h *cloudHandlers) backupDatabase(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	instance := dbInstanceIdentifier(hctx)
	snapshotID := fmt.Sprintf("steward-%s-%s", hctx.Identity.Service, uuid.New().String()[:8])

	out, err := h.adapter.rds.CreateDBSnapshot(ctx, &rds.CreateDBSnapshotInput{
		DBInstanceIdentifier: awsv2.String(instance),
		DBSnapshotIdentifier: awsv2.String(snapshotID),
	})
	if err != nil {
		return nil, fmt.Errorf("aws: snapshot %s: %w", instance, err)
	}

	logging.Info("CloudPlatform", "Snapshot %s of %s initiated", snapshotID, instance)
	result := &api.Result{
		Success:  true,
		Status:   api.StatusRunning,
		BackupID: snapshotID,
	}
	if out.DBSnapshot != nil {
		result.SetMetadata("snapshotStatus", awsv2.ToString(out.DBSnapshot.Status))
	}
	return result, nil
}

// restoreDatabase materializes a snapshot as a new instance. Restoring over
// a live instance is not possible with managed databases, so the restored
// copy gets a derived identifier and switchover happens out of band.
func (h *cloudHandlers) restoreDatabase(ctx context.Context, hctx *api.HandlerContext) (*api.Result, error) {
	if hctx.BackupID == "" {
		return nil, fmt.Errorf("restore requires a backup id")
	}
	instance := dbInstanceIdentifier(hctx)
	restored := fmt.Sprintf("%s-restore-%s", instance, uuid.New().String()[:8])

	out, err := h.adapter.rds.RestoreDBInstanceFromDBSnapshot(ctx, &rds.RestoreDBInstanceFromDBSnapshotInput{
		DBInstanceIdentifier: awsv2.String(restored),
		DBSnapshotIdentifier: awsv2.String(hctx.BackupID),
	})
	if err != nil {
		return nil, fmt.Errorf("aws: restore %s from %s: %w", instance, hctx.BackupID, err)
	}

	logging.Info("CloudPlatform", "Restoring snapshot %s as %s", hctx.BackupID, restored)
	result := &api.Result{
		Success:  true,
		Status:   api.StatusDegraded,
		BackupID: hctx.BackupID,
	}
	result.SetMetadata("restoredInstance", restored)
	if out.DBInstance != nil {
		result.SetMetadata("instanceStatus", awsv2.ToString(out.DBInstance.DBInstanceStatus))
	}
	return result, nil
}

func (h *cloudHandlers) describeService(ctx context.Context, cluster, name string) (*serviceDescription, error) {
	out, err := h.adapter.ecs.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  awsv2.String(cluster),
		Services: []string{name},
	})
	if err != nil {
		return nil, fmt.Errorf("aws: describe service %s: %w", name, err)
	}
	if len(out.Services) == 0 {
		return nil, api.NewNotFoundError("cloud service", name)
	}
	svc := out.Services[0]
	return &serviceDescription{
		ServiceArn:   svc.ServiceArn,
		DesiredCount: svc.DesiredCount,
		RunningCount: svc.RunningCount,
	}, nil
}

// serviceDescription is the slice of an ECS service the handlers read.
type serviceDescription struct {
	ServiceArn   *string
	DesiredCount int32
	RunningCount int32
}

// ecsServiceName resolves the ECS service name, preferring an explicit
// override so the cloud name need not match the logical one.
func ecsServiceName(hctx *api.HandlerContext) string {
	if name, ok := hctx.ServiceConfig["serviceName"].(string); ok && name != "" {
		return name
	}
	return hctx.Identity.Service
}

// dbInstanceIdentifier resolves the managed-database instance identifier.
func dbInstanceIdentifier(hctx *api.HandlerContext) string {
	if id, ok := hctx.ServiceConfig["dbInstance"].(string); ok && id != "" {
		return id
	}
	return hctx.Identity.Environment + "-" + hctx.Identity.Service
}

// desiredCountFromConfig reads the desired task count, defaulting to one.
func desiredCountFromConfig(cfg map[string]any) int {
	switch v := cfg["desiredCount"].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return 1
}

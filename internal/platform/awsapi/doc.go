// Package awsapi is the managed-cloud adapter. It implements the cloud
// platform's handler set against ECS, reads infrastructure identifiers from
// CloudFormation stack outputs, and probes managed databases through RDS.
//
// The package deliberately contains every AWS SDK call in the repository.
// The engine above it depends only on abstract contracts: handlers are
// plain registry functions, discovery satisfies platform.Discoverer, and
// deployment progress is exposed through the rollout.API interface so the
// rollout state machine never sees provider types.
//
// All client access goes through the narrow ECSClient, CloudFormationClient
// and RDSClient interfaces so tests can substitute fakes without network
// access.
package awsapi

// Package ecs submits conversion requests as Fargate tasks. It validates
// resource overrides, rebuilds the CLI command for the remote container,
// and returns the raw acknowledgment for out-of-band tracking; it never
// polls for completion.
package ecs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"cloudtile/internal/config"
	"cloudtile/internal/request"
	"cloudtile/internal/services"
	"cloudtile/internal/services/tippecanoe"
)

// ECSAPI is the subset of the ECS client the submitter needs.
type ECSAPI interface {
	RunTask(ctx context.Context, params *awsecs.RunTaskInput, optFns ...func(*awsecs.Options)) (*awsecs.RunTaskOutput, error)
}

// EC2API is the subset of the EC2 client used for default-network
// discovery.
type EC2API interface {
	DescribeVpcs(ctx context.Context, params *awsec2.DescribeVpcsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *awsec2.DescribeSubnetsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeSubnetsOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *awsec2.DescribeSecurityGroupsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeSecurityGroupsOutput, error)
}

// Option configures the submitter.
type Option func(*Submitter)

// WithECSAPI injects a custom ECS API (primarily for tests).
func WithECSAPI(api ECSAPI) Option {
	return func(s *Submitter) {
		if api != nil {
			s.ecs = api
		}
	}
}

// WithEC2API injects a custom EC2 API (primarily for tests).
func WithEC2API(api EC2API) Option {
	return func(s *Submitter) {
		if api != nil {
			s.ec2 = api
		}
	}
}

// JobDescriptor is the terminal artifact of a remote-mode request: the task
// identifier plus the raw response, handed back for out-of-band tracking.
type JobDescriptor struct {
	TaskARN  string
	Response *awsecs.RunTaskOutput
}

// Submitter builds and submits remote conversion tasks.
type Submitter struct {
	ecs               ECSAPI
	ec2               EC2API
	cluster           string
	taskDefinition    string
	container         string
	memoryReservation int32
}

// New constructs a submitter. Unless APIs are injected, the AWS SDK default
// credential chain is used with the configured region.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Submitter, error) {
	submitter := &Submitter{
		cluster:           cfg.Cluster,
		taskDefinition:    cfg.TaskDefinition,
		container:         cfg.Container,
		memoryReservation: cfg.MemoryReservation,
	}
	for _, opt := range opts {
		opt(submitter)
	}
	if submitter.ecs == nil || submitter.ec2 == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		if submitter.ecs == nil {
			submitter.ecs = awsecs.NewFromConfig(awsCfg)
		}
		if submitter.ec2 == nil {
			submitter.ec2 = awsec2.NewFromConfig(awsCfg)
		}
	}
	return submitter, nil
}

// Submit validates the request's resource overrides, builds the container
// command, and runs the task on the configured cluster. It returns as soon
// as the task is acknowledged.
func (s *Submitter) Submit(ctx context.Context, req *request.Request, settings tippecanoe.Settings) (*JobDescriptor, error) {
	if req.Mode != request.ModeRemote {
		return nil, services.Wrap(services.ErrMode, "ecs", "submit",
			fmt.Sprintf("cannot submit a %s-mode request as a remote task", req.Mode), nil)
	}
	if req.Memory != nil {
		if err := ValidateMemory(*req.Memory); err != nil {
			return nil, err
		}
	}
	if req.Storage != nil {
		if err := ValidateStorage(*req.Storage); err != nil {
			return nil, err
		}
	}

	subnets, err := s.defaultSubnets(ctx)
	if err != nil {
		return nil, err
	}
	securityGroup, err := s.defaultSecurityGroup(ctx)
	if err != nil {
		return nil, err
	}

	containerOverride := ecstypes.ContainerOverride{
		Name:              aws.String(s.container),
		Command:           BuildCommand(req, settings),
		MemoryReservation: aws.Int32(s.memoryReservation),
	}
	if req.Memory != nil {
		containerOverride.Memory = req.Memory
	}
	overrides := &ecstypes.TaskOverride{
		ContainerOverrides: []ecstypes.ContainerOverride{containerOverride},
	}
	if req.Storage != nil {
		overrides.EphemeralStorage = &ecstypes.EphemeralStorage{SizeInGiB: *req.Storage}
	}

	output, err := s.ecs.RunTask(ctx, &awsecs.RunTaskInput{
		Cluster:        aws.String(s.cluster),
		TaskDefinition: aws.String(s.taskDefinition),
		LaunchType:     ecstypes.LaunchTypeFargate,
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        subnets,
				SecurityGroups: []string{securityGroup},
				AssignPublicIp: ecstypes.AssignPublicIpEnabled,
			},
		},
		Overrides: overrides,
	})
	if err != nil {
		return nil, fmt.Errorf("run task: %w", err)
	}
	if len(output.Failures) > 0 {
		failure := output.Failures[0]
		return nil, fmt.Errorf("run task rejected: %s (%s)",
			aws.ToString(failure.Reason), aws.ToString(failure.Detail))
	}

	descriptor := &JobDescriptor{Response: output}
	if len(output.Tasks) > 0 {
		descriptor.TaskARN = aws.ToString(output.Tasks[0].TaskArn)
	}
	return descriptor, nil
}

// BuildCommand serializes the request into the CLI invocation the remote
// container runs. The merged settings travel as inline overrides because
// the container cannot resolve a local settings-document path.
func BuildCommand(req *request.Request, settings tippecanoe.Settings) []string {
	command := []string{"convert", req.Operation.Name(), req.Filename}
	if req.Zoom != nil {
		command = append(command, strconv.Itoa(req.Zoom.Min), strconv.Itoa(req.Zoom.Max))
	}
	command = append(command, "--s3")
	if req.Suffix != "" {
		command = append(command, "--suffix", req.Suffix)
	}
	if req.Operation.UsesTileGeneration() {
		for _, override := range settings.InlineOverrides() {
			command = append(command, "--tc-kwargs", override)
		}
	}
	return command
}

func (s *Submitter) defaultVPC(ctx context.Context) (string, error) {
	output, err := s.ec2.DescribeVpcs(ctx, &awsec2.DescribeVpcsInput{
		Filters: []ec2types.Filter{{Name: aws.String("is-default"), Values: []string{"true"}}},
	})
	if err != nil {
		return "", fmt.Errorf("describe vpcs: %w", err)
	}
	if len(output.Vpcs) == 0 {
		return "", fmt.Errorf("default vpc not found")
	}
	return aws.ToString(output.Vpcs[0].VpcId), nil
}

func (s *Submitter) defaultSubnets(ctx context.Context) ([]string, error) {
	vpcID, err := s.defaultVPC(ctx)
	if err != nil {
		return nil, err
	}
	output, err := s.ec2.DescribeSubnets(ctx, &awsec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("vpc-id"), Values: []string{vpcID}},
			{Name: aws.String("default-for-az"), Values: []string{"true"}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("describe subnets: %w", err)
	}
	if len(output.Subnets) == 0 {
		return nil, fmt.Errorf("default subnets not found")
	}
	subnets := make([]string, 0, len(output.Subnets))
	for _, subnet := range output.Subnets {
		subnets = append(subnets, aws.ToString(subnet.SubnetId))
	}
	return subnets, nil
}

func (s *Submitter) defaultSecurityGroup(ctx context.Context) (string, error) {
	vpcID, err := s.defaultVPC(ctx)
	if err != nil {
		return "", err
	}
	output, err := s.ec2.DescribeSecurityGroups(ctx, &awsec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("vpc-id"), Values: []string{vpcID}},
			{Name: aws.String("description"), Values: []string{"default VPC security group"}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("describe security groups: %w", err)
	}
	if len(output.SecurityGroups) == 0 {
		return "", fmt.Errorf("default security group not found")
	}
	return aws.ToString(output.SecurityGroups[0].GroupId), nil
}

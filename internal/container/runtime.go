// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container detects a local container runtime and manages the
// detached service containers used in development, such as the Redis
// instance behind the redis cache backend.
package container

import (
	"fmt"
	"os/exec"
	"strings"
)

const (
	binDocker = "docker"
	binPodman = "podman"
)

// RedisImage is the image started for the redis cache backend.
const RedisImage = "docker.io/library/redis:7-alpine"

// RedisName is the container name used for the development Redis.
const RedisName = "research-assistant-redis"

// Service describes a detached container.
type Service struct {
	Name  string
	Image string

	// Ports are host:container mappings, e.g. "6379:6379".
	Ports []string
}

// Runtime provides container operations: checking availability, verifying
// images, and starting and stopping service containers.
type Runtime interface {
	// Name returns the runtime name ("docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to an info command.
	Available() bool

	// ImageExists checks whether the named image exists locally.
	ImageExists(image string) error

	// Running reports whether a container with the given name is running.
	Running(name string) bool

	// Start runs svc detached, removing the container when it stops.
	Start(svc Service) error

	// Stop stops the named container.
	Stop(name string) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	Output(name string, args ...string) (string, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) Output(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	return strings.TrimSpace(string(out)), err
}

// runtime implements Runtime for a specific container binary. Docker and
// Podman differ only in binary name and the image check subcommand.
type runtime struct {
	bin           string
	imageCheckCmd []string // e.g. ["image", "inspect"] for docker
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) ImageExists(image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Running(name string) bool {
	out, err := r.exec.Output(r.bin, "ps", "--filter", "name=^"+name+"$", "--format", "{{.Names}}")
	return err == nil && out == name
}

func (r *runtime) Start(svc Service) error {
	args := []string{"run", "-d", "--rm", "--name", svc.Name}
	for _, p := range svc.Ports {
		args = append(args, "-p", p)
	}
	args = append(args, svc.Image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("starting %s container %s: %w", r.bin, svc.Name, err)
	}
	return nil
}

func (r *runtime) Stop(name string) error {
	if err := r.exec.RunSilent(r.bin, "stop", name); err != nil {
		return fmt.Errorf("stopping %s container %s: %w", r.bin, name, err)
	}
	return nil
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

var defaultExec = &osExecutor{}

// DetectRuntime tries docker first, falls back to podman. Returns an error
// if neither runtime is available.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(defaultExec)
}

func detectRuntime(exec executor) (Runtime, error) {
	docker := newDockerRuntime(exec)
	if docker.Available() {
		return docker, nil
	}

	podman := newPodmanRuntime(exec)
	if podman.Available() {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}

// EnsureService starts svc on rt unless a container with its name is
// already running. It reports whether a new container was started.
func EnsureService(rt Runtime, svc Service) (bool, error) {
	if rt.Running(svc.Name) {
		return false, nil
	}
	if err := rt.Start(svc); err != nil {
		return false, err
	}
	return true, nil
}

// RedisService returns the development Redis bound to hostPort.
func RedisService(hostPort int) Service {
	return Service{
		Name:  RedisName,
		Image: RedisImage,
		Ports: []string{fmt.Sprintf("%d:6379", hostPort)},
	}
}

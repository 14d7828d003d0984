package utils //nolint:revive

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive,staticcheck
)

// DebugLevel controls verbosity of debug output (0=minimal, 1=normal, 2=verbose, 3=trace)
var DebugLevel = getDebugLevel()

func getDebugLevel() int {
	level := os.Getenv("E2E_DEBUG_LEVEL")
	switch level {
	case "0":
		return 0
	case "2":
		return 2
	case "3":
		return 3
	default:
		return 1
	}
}

func warnError(err error) {
	_, _ = fmt.Fprintf(GinkgoWriter, "warning: %v\n", err)
}

// DebugLog writes debug output at the specified level
func DebugLog(level int, format string, args ...interface{}) {
	if level <= DebugLevel {
		prefix := ""
		switch level {
		case 0:
			prefix = "[ERROR] "
		case 1:
			prefix = "[INFO] "
		case 2:
			prefix = "[DEBUG] "
		case 3:
			prefix = "[TRACE] "
		}
		_, _ = fmt.Fprintf(GinkgoWriter, prefix+format+"\n", args...)
	}
}

// Run executes the provided command within this context
func Run(cmd *exec.Cmd) ([]byte, error) {
	dir, _ := GetProjectDir()
	cmd.Dir = dir

	cmd.Env = append(os.Environ(), "GO111MODULE=on")
	command := strings.Join(cmd.Args, " ")
	DebugLog(2, "running: %s", command)
	output, err := cmd.CombinedOutput()
	if err != nil {
		DebugLog(1, "command failed: %s\nerror: %v\noutput: %s", command, err, string(output))
		return output, fmt.Errorf("%s failed with error: (%w) %s", command, err, string(output))
	}
	if DebugLevel >= 3 {
		DebugLog(3, "command output: %s", string(output))
	}

	return output, nil
}

// Start runs the provided command in the background with its output
// going to the GinkgoWriter. The caller stops it with StopProcess.
func Start(cmd *exec.Cmd) error {
	dir, _ := GetProjectDir()
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GO111MODULE=on")
	cmd.Stdout = GinkgoWriter
	cmd.Stderr = GinkgoWriter
	DebugLog(2, "starting: %s", strings.Join(cmd.Args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s failed to start: %w", strings.Join(cmd.Args, " "), err)
	}
	return nil
}

// StopProcess interrupts a command started with Start and waits for it.
func StopProcess(cmd *exec.Cmd, timeout time.Duration) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		warnError(err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(timeout):
		_ = cmd.Process.Kill()
		<-done
	}
}

// GetNonEmptyLines converts given command output string into individual objects
// according to line breakers, and ignores the empty elements in it.
func GetNonEmptyLines(output string) []string {
	var res []string
	elements := strings.Split(output, "\n")
	for _, element := range elements {
		if element != "" {
			res = append(res, element)
		}
	}

	return res
}

// GetProjectDir will return the directory where the project is
func GetProjectDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return wd, err
	}
	wd = strings.ReplaceAll(wd, "/test/e2e", "")
	return wd, nil
}

// ShouldTeardown controls whether tests should delete the kind cluster.
func ShouldTeardown() bool {
	return os.Getenv("E2E_TEARDOWN") == "true"
}

// ApplyManifest applies a YAML manifest from a string using server-side apply
func ApplyManifest(manifest string) error {
	cmd := exec.CommandContext(context.Background(), "kubectl", "apply", "--server-side", "--force-conflicts", "-f", "-")
	cmd.Stdin = strings.NewReader(manifest)
	_, err := Run(cmd)
	return err
}

// DeleteManifest deletes resources defined in a YAML manifest
func DeleteManifest(manifest string) error {
	cmd := exec.CommandContext(context.Background(), "kubectl", "delete", "-f", "-", "--ignore-not-found=true", "--wait=false")
	cmd.Stdin = strings.NewReader(manifest)
	_, err := Run(cmd)
	return err
}

// GetResourceField gets a specific field from a resource using jsonpath
func GetResourceField(resourceType, name, namespace, jsonpath string) (string, error) {
	args := []string{"get", resourceType, name, "-o", fmt.Sprintf("jsonpath=%s", jsonpath)}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	cmd := exec.CommandContext(context.Background(), "kubectl", args...)
	output, err := Run(cmd)
	if err != nil {
		return "", err
	}
	return string(output), nil
}

// ResourceExists reports whether kubectl can get the resource.
func ResourceExists(resourceType, name, namespace string) bool {
	args := []string{"get", resourceType, name}
	if namespace != "" {
		args = append(args, "-n", namespace)
	}
	_, err := Run(exec.CommandContext(context.Background(), "kubectl", args...))
	return err == nil
}

// WaitForResource waits for a Kubernetes resource to exist
func WaitForResource(resourceType, name, namespace string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ResourceExists(resourceType, name, namespace) {
			return nil
		}
		time.Sleep(2 * time.Second)
	}
	return fmt.Errorf("timeout waiting for %s/%s", resourceType, name)
}

// KindClusterExists checks if a kind cluster with the given name exists
func KindClusterExists(name string) bool {
	cmd := exec.CommandContext(context.Background(), "kind", "get", "clusters")
	output, err := Run(cmd)
	if err != nil {
		return false
	}
	clusters := GetNonEmptyLines(string(output))
	for _, cluster := range clusters {
		if cluster == name {
			return true
		}
	}
	return false
}

// CreateKindCluster creates a new kind cluster
func CreateKindCluster(name, k8sVersion string) error {
	if KindClusterExists(name) {
		_, _ = fmt.Fprintf(GinkgoWriter, "Kind cluster '%s' already exists\n", name)
		return nil
	}

	image := fmt.Sprintf("kindest/node:%s", k8sVersion)
	cmd := exec.CommandContext(context.Background(), "kind", "create", "cluster",
		"--name", name,
		"--image", image,
		"--wait", "5m")
	_, err := Run(cmd)
	return err
}

// DeleteKindCluster deletes a kind cluster
func DeleteKindCluster(name string) error {
	cmd := exec.CommandContext(context.Background(), "kind", "delete", "cluster", "--name", name)
	_, err := Run(cmd)
	return err
}

// RemoveFinalizersForAll removes finalizers from all resources of a given type
func RemoveFinalizersForAll(resourceType string) {
	cmd := exec.CommandContext(context.Background(), "kubectl", "get", resourceType, "-A",
		"-o", `jsonpath={range .items[*]}{.metadata.namespace}{"/"}{.metadata.name}{"\n"}{end}`)
	output, err := Run(cmd)
	if err != nil {
		warnError(err)
		return
	}

	for _, line := range GetNonEmptyLines(string(output)) {
		ns, name := parseNamespacedName(line)
		args := []string{"patch", resourceType, name, "--type=merge", "-p", `{"metadata":{"finalizers":[]}}`}
		if ns != "" {
			args = append(args, "-n", ns)
		}
		patch := exec.CommandContext(context.Background(), "kubectl", args...)
		if _, err := Run(patch); err != nil {
			warnError(err)
		}
	}
}

// parseNamespacedName parses "namespace/name" or "/name" for cluster-scoped resources
func parseNamespacedName(value string) (string, string) {
	parts := strings.SplitN(value, "/", 2)
	if len(parts) == 1 {
		return "", parts[0]
	}
	if parts[0] == "" {
		return "", parts[1]
	}
	return parts[0], parts[1]
}

// CollectEvents prints the events of a namespace to the GinkgoWriter.
func CollectEvents(namespace string) {
	cmd := exec.CommandContext(context.Background(), "kubectl", "get", "events", "-n", namespace,
		"--sort-by=.lastTimestamp")
	output, err := Run(cmd)
	if err != nil {
		warnError(err)
		return
	}
	_, _ = fmt.Fprintf(GinkgoWriter, "events in %s:\n%s\n", namespace, string(output))
}

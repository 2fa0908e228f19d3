package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/user"

	"github.com/gitvfs/govfs/internal/govfslog"
	"github.com/gitvfs/govfs/internal/mountsupervisor"
	"github.com/spf13/cobra"
)

func init() {
	mountCmd.AddCommand(mountSweepCmd)
	mountSweepCmd.Flags().String("registry", "", "path to a JSON repo registry file (required)")
	mountSweepCmd.Flags().String("mount-command", "", "executable invoked as '<mount-command> <enlistment-root>' to mount one repo")
	Root.AddCommand(mountCmd)
}

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Mount-related operations",
}

var mountSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one Mount Supervisor sweep for the current user",
	RunE: func(cmd *cobra.Command, args []string) error {
		registryPath, _ := cmd.Flags().GetString("registry")
		mountCommand, _ := cmd.Flags().GetString("mount-command")
		if registryPath == "" {
			return fmt.Errorf("--registry is required")
		}

		registry, err := loadJSONRegistry(registryPath)
		if err != nil {
			return err
		}

		u, err := user.Current()
		if err != nil {
			return fmt.Errorf("failed to resolve current user: %w", err)
		}

		factory := execMountFactory{command: mountCommand}
		resolver := statVolumeResolver{}
		logger := govfslog.New(nil)
		sink := logNotificationSink{logger: logger}
		tracer := govfslog.NewLogTracer(logger)

		s := mountsupervisor.New("cli-session", u.Uid, mountsupervisor.DefaultPollInterval, registry, factory, resolver, sink, logger, tracer)
		defer s.Dispose()
		s.Start()
		return nil
	},
}

// jsonRegistry is a flat-file stand-in for the external Repo Registry,
// loaded once at process start. It satisfies mountsupervisor.Registry.
type jsonRegistry struct {
	repos []mountsupervisor.RepoRegistration
}

func loadJSONRegistry(path string) (jsonRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return jsonRegistry{}, fmt.Errorf("failed to read registry file %q: %w", path, err)
	}
	var repos []mountsupervisor.RepoRegistration
	if err := json.Unmarshal(data, &repos); err != nil {
		return jsonRegistry{}, fmt.Errorf("failed to parse registry file %q: %w", path, err)
	}
	return jsonRegistry{repos: repos}, nil
}

func (r jsonRegistry) TryGetActiveReposForUser(userSID string) ([]mountsupervisor.RepoRegistration, error) {
	var out []mountsupervisor.RepoRegistration
	for _, repo := range r.repos {
		if repo.Active && repo.OwnerUserID == userSID {
			out = append(out, repo)
		}
	}
	return out, nil
}

// execMountFactory shells out to an external mount command per enlistment.
// The actual projection driver is an external collaborator (spec.md §1).
type execMountFactory struct {
	command string
}

func (f execMountFactory) Mount(enlistmentRoot string) bool {
	if f.command == "" {
		return false
	}
	cmd := exec.Command(f.command, enlistmentRoot)
	return cmd.Run() == nil
}

func (f execMountFactory) Dispose() {}

// statVolumeResolver asks the OS directly whether the enlistment root itself
// exists and treats that as the volume being present; it does not resolve
// the root of the volume that contains the enlistment.
type statVolumeResolver struct{}

func (statVolumeResolver) VolumeExists(enlistmentRoot string) bool {
	_, err := os.Stat(enlistmentRoot)
	return err == nil
}

// logNotificationSink logs notifications instead of delivering a native OS
// notification (out of scope per spec.md §1).
type logNotificationSink struct {
	logger govfslog.Logger
}

func (s logNotificationSink) SendNotification(sessionID string, n mountsupervisor.Notification) error {
	s.logger.Infof(sessionID, "%s: %s", n.Title, n.Message)
	return nil
}

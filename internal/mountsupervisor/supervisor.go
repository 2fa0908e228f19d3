// Package mountsupervisor implements the per-user control loop that mounts
// every active repository for a logged-in user once its volume becomes
// reachable, retrying on a fixed interval until every volume either appears
// or the repo is deregistered.
package mountsupervisor

import (
	"sync"
	"time"

	"github.com/gitvfs/govfs/internal/govfslog"
	"github.com/pkg/errors"
)

// DefaultPollInterval is the shared retry constant from spec.md §6 (the same
// value used by internal/volumewatcher). New defaults to it when given a
// non-positive interval; tests inject a shorter one the same way
// internal/volumewatcher.New does.
const DefaultPollInterval = 15 * time.Second

// RepoRegistration mirrors spec.md §3's external RepoRegistration record.
type RepoRegistration struct {
	EnlistmentRoot string
	OwnerUserID    string
	Active         bool
}

// Registry is the external, read-only collaborator the Supervisor queries
// for a user's repos (spec.md §6's "Repo registry interface").
type Registry interface {
	TryGetActiveReposForUser(userSID string) ([]RepoRegistration, error)
}

// MountFactory mounts a single enlistment and is disposed with the
// Supervisor (spec.md §6's "Mount factory interface").
type MountFactory interface {
	Mount(enlistmentRoot string) bool
	Dispose()
}

// VolumeRootResolver asks the platform for the volume root backing an
// enlistment and reports whether that volume currently exists. Kept as one
// injected interface so the Supervisor never calls the OS directly, matching
// spec.md §9's "explicitly-injected collaborators, not globals."
type VolumeRootResolver interface {
	VolumeExists(enlistmentRoot string) bool
}

// Notification is a single user-visible message (spec.md §6's notification
// sink payload).
type Notification struct {
	Title   string
	Message string
}

// NotificationSink delivers notifications to the user; implementation lives
// outside this package's scope (spec.md §1 Non-goals).
type NotificationSink interface {
	SendNotification(sessionID string, n Notification) error
}

// Supervisor runs one mount sweep per retry tick for a single login session.
type Supervisor struct {
	sessionID string
	userSID   string

	pollInterval time.Duration
	registry     Registry
	mountFactory MountFactory
	volumeRoots  VolumeRootResolver
	notify       NotificationSink
	logger       govfslog.Logger
	tracer       govfslog.Tracer

	mu       sync.Mutex
	timer    *time.Timer
	disposed bool
}

// New builds a Supervisor for one login session. pollInterval <= 0 defaults
// to DefaultPollInterval. A nil logger discards log output; a nil tracer
// disables scoped activity tracing.
func New(sessionID, userSID string, pollInterval time.Duration, registry Registry, mountFactory MountFactory, volumeRoots VolumeRootResolver, notify NotificationSink, logger govfslog.Logger, tracer govfslog.Tracer) *Supervisor {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = govfslog.Discard
	}
	if tracer == nil {
		tracer = govfslog.NoopTracer
	}
	return &Supervisor{
		sessionID:    sessionID,
		userSID:      userSID,
		pollInterval: pollInterval,
		registry:     registry,
		mountFactory: mountFactory,
		volumeRoots:  volumeRoots,
		notify:       notify,
		logger:       logger,
		tracer:       tracer,
	}
}

// Start runs one immediate sweep.
func (s *Supervisor) Start() {
	s.mountAll()
}

// Dispose stops the retry timer and disposes the mount factory.
func (s *Supervisor) Dispose() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.disposed = true
	s.mu.Unlock()
	s.mountFactory.Dispose()
}

// mountAll is the sweep algorithm from spec.md §4.3, run as a scoped
// activity so a tracer can correlate one sweep's mounts end to end (spec.md
// §9's "Tracer scoped activities" design note).
func (s *Supervisor) mountAll() {
	activity := s.tracer.StartActivity("mount-sweep", map[string]interface{}{"userSID": s.userSID})
	defer activity.Stop()

	repos, err := s.registry.TryGetActiveReposForUser(s.userSID)
	if err != nil {
		activity.AddMetadata("registryError", err.Error())
		s.logger.Errorf(s.userSID, "failed to query repo registry: %v", errors.Wrap(err, "registry lookup"))
		return
	}

	allVolumesPresent := true
	mounted := 0
	for _, repo := range repos {
		if !repo.Active {
			continue
		}
		if !s.volumeRoots.VolumeExists(repo.EnlistmentRoot) {
			allVolumesPresent = false
			continue
		}

		ok := s.mountFactory.Mount(repo.EnlistmentRoot)
		s.reportMountResult(repo.EnlistmentRoot, ok)
		if ok {
			mounted++
		}
	}
	activity.AddMetadata("mounted", mounted)
	activity.AddMetadata("allVolumesPresent", allVolumesPresent)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	if !allVolumesPresent {
		s.armLocked()
	} else if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Supervisor) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.pollInterval, s.mountAll)
}

func (s *Supervisor) reportMountResult(enlistmentRoot string, success bool) {
	title := "GVFS AutoMount"
	var message string
	if success {
		message = "The enlistment " + enlistmentRoot + " was mounted."
	} else {
		message = enlistmentRoot + " failed to mount."
	}
	if s.notify == nil {
		return
	}
	if err := s.notify.SendNotification(s.sessionID, Notification{Title: title, Message: message}); err != nil {
		s.logger.Errorf(enlistmentRoot, "failed to send mount notification: %v", err)
	}
	if !success {
		s.logger.Errorf(enlistmentRoot, "mount failed")
	} else {
		s.logger.Infof(enlistmentRoot, "mount succeeded")
	}
}

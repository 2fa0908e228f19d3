// Package refrepair implements the offline Ref Repair Engine: it scans a
// Git ref namespace for corruption and, where safe, reconstructs a damaged
// ref from the tail of its reflog. It operates directly on files under
// .git/ because the repository may be too corrupted for Git itself to
// start.
package refrepair

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Issue is the result of diagnosing a ref family.
type Issue int

const (
	// NoIssue means every ref in the family validated cleanly.
	NoIssue Issue = iota
	// Fixable means at least one ref is bad and no interlock blocks repair.
	Fixable
	// CantFix means at least one ref is bad and an interlock forbids repair.
	CantFix
)

func (i Issue) String() string {
	switch i {
	case NoIssue:
		return "NoIssue"
	case Fixable:
		return "Fixable"
	case CantFix:
		return "CantFix"
	default:
		return "Unknown"
	}
}

// Result is the outcome of TryFix.
type Result int

const (
	// Success means every ref that needed repair was repaired.
	Success Result = iota
	// Failure means at least one ref could not be repaired.
	Failure
)

func (r Result) String() string {
	if r == Success {
		return "Success"
	}
	return "Failure"
}

// RefFamily enumerates a set of related refs and (optionally) overrides the
// default validation rule. spec.md §9 translates the original's
// inheritance hierarchy into this small capability interface.
type RefFamily interface {
	// EnumerateRefs yields every full symbolic ref in this family, e.g.
	// "HEAD" or "refs/heads/main".
	EnumerateRefs(enlistmentRoot string) ([]string, error)
}

// CustomValidator is implemented by a RefFamily that wants to override the
// default is_valid_ref_contents rule. HEAD and local branches both use the
// default rule in this spec, so neither implements it, but the hook exists
// for future families.
type CustomValidator interface {
	IsValidRefContents(ref, contents string) bool
}

var shaPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// IsValidRefContents implements spec.md §4.4's validator: after trimming
// trailing whitespace, contents are valid iff they begin with "ref: refs/"
// (case-insensitive) or are a syntactically valid 40-character lowercase-hex
// SHA-1.
func IsValidRefContents(contents string) bool {
	trimmed := strings.TrimRight(contents, " \t\r\n")
	if len(trimmed) >= len("ref: refs/") && strings.EqualFold(trimmed[:len("ref: refs/")], "ref: refs/") {
		return true
	}
	return shaPattern.MatchString(trimmed)
}

// interlocks are paths under .git/ whose existence forbids repair, with the
// user-facing operation name used in the diagnostic message.
var interlocks = []struct {
	relPath string
	op      string
}{
	{"rebase-apply", "rebase"},
	{"MERGE_HEAD", "merge"},
	{"BISECT_START", "bisect"},
	{"CHERRY_PICK_HEAD", "cherry-pick"},
	{"REVERT_HEAD", "revert"},
}

// Engine runs diagnosis and repair for one enlistment.
type Engine struct {
	EnlistmentRoot string
}

// New builds an Engine rooted at enlistmentRoot (the directory containing
// .git).
func New(enlistmentRoot string) *Engine {
	return &Engine{EnlistmentRoot: enlistmentRoot}
}

func (e *Engine) gitDir() string {
	return filepath.Join(e.EnlistmentRoot, ".git")
}

// badRef records one validation failure found during diagnosis.
type badRef struct {
	ref     string
	message string
}

// HasIssue implements spec.md §4.4's diagnosis algorithm: read and validate
// every ref from family; accumulate a descriptive message per bad ref;
// return NoIssue if none are bad, otherwise check interlocks.
func (e *Engine) HasIssue(family RefFamily) (Issue, []string, error) {
	refs, err := family.EnumerateRefs(e.EnlistmentRoot)
	if err != nil {
		return CantFix, nil, errors.Wrap(err, "failed to enumerate refs")
	}

	var bad []badRef
	var messages []string
	for _, ref := range refs {
		contents, err := e.readRefFile(ref)
		if err != nil {
			msg := fmt.Sprintf("Invalid contents found in '%s': %s", ref, err.Error())
			bad = append(bad, badRef{ref: ref, message: msg})
			messages = append(messages, msg)
			continue
		}
		if !e.validate(family, ref, contents) {
			msg := fmt.Sprintf("Invalid contents found in '%s': %s", ref, contents)
			bad = append(bad, badRef{ref: ref, message: msg})
			messages = append(messages, msg)
		}
	}

	if len(bad) == 0 {
		return NoIssue, nil, nil
	}

	if blockedBy, ok := e.interlockBlocking(); ok {
		msg := fmt.Sprintf("Can't repair while a %s operation is in progress", blockedBy)
		return CantFix, append(messages, msg), nil
	}

	return Fixable, messages, nil
}

func (e *Engine) validate(family RefFamily, ref, contents string) bool {
	if cv, ok := family.(CustomValidator); ok {
		return cv.IsValidRefContents(ref, contents)
	}
	return IsValidRefContents(contents)
}

func (e *Engine) readRefFile(ref string) (string, error) {
	path := filepath.Join(e.gitDir(), filepath.FromSlash(ref))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// interlockBlocking reports the first interlock operation in progress, if
// any, by existence of its path under .git/.
func (e *Engine) interlockBlocking() (string, bool) {
	for _, lock := range interlocks {
		path := filepath.Join(e.gitDir(), lock.relPath)
		if _, err := os.Stat(path); err == nil {
			return lock.op, true
		}
	}
	return "", false
}

// TryFix implements spec.md §4.4's repair: for every ref that still fails
// validation, attempt to reconstruct it from the tail of its reflog.
// Success is all-or-nothing across refs, but individual successful repairs
// are persisted regardless of later failures — there is no transactional
// rollback. Callers must not invoke TryFix when HasIssue returned CantFix.
func (e *Engine) TryFix(family RefFamily) (Result, []string, error) {
	refs, err := family.EnumerateRefs(e.EnlistmentRoot)
	if err != nil {
		return Failure, nil, errors.Wrap(err, "failed to enumerate refs")
	}

	var messages []string
	failures := 0
	for _, ref := range refs {
		contents, readErr := e.readRefFile(ref)
		if readErr == nil && e.validate(family, ref, contents) {
			continue // already valid, nothing to do
		}

		if err := e.tryWriteRefFromLog(ref); err != nil {
			failures++
			messages = append(messages, fmt.Sprintf("Failed to fix '%s': %s", ref, err.Error()))
		}
	}

	if failures > 0 {
		messages = append(messages, fmt.Sprintf("Not all references could be fixed. Failed to fix %d references.", failures))
		return Failure, messages, nil
	}
	return Success, messages, nil
}

// tryWriteRefFromLog implements spec.md §4.4 step 1-3: open the reflog,
// parse its last line as a RefLogEntry, and overwrite the ref file with
// "<target_sha>\n".
func (e *Engine) tryWriteRefFromLog(ref string) error {
	logPath := filepath.Join(e.gitDir(), "logs", filepath.FromSlash(ref))
	f, err := os.Open(logPath)
	if err != nil {
		return errors.Wrapf(err, "missing reflog for %q", ref)
	}
	defer f.Close()

	lastLine, err := lastNonEmptyLine(f)
	if err != nil {
		return errors.Wrapf(err, "failed to read reflog for %q", ref)
	}

	entry, err := parseRefLogEntry(lastLine)
	if err != nil {
		return errors.Wrapf(err, "failed to parse reflog tail for %q", ref)
	}

	refPath := filepath.Join(e.gitDir(), filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %q", ref)
	}
	if err := os.WriteFile(refPath, []byte(entry.TargetSHA+"\n"), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write ref %q", ref)
	}
	return nil
}

// lastNonEmptyLine reads r fully and returns the last non-empty line,
// trimmed of trailing carriage return.
func lastNonEmptyLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var last string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if last == "" {
		return "", errors.New("reflog is empty")
	}
	return last, nil
}

// RefLogEntry is the subset of a parsed reflog line the engine uses
// (spec.md §3): only the post-operation SHA matters for repair.
type RefLogEntry struct {
	OldSHA    string
	TargetSHA string
}

// parseRefLogEntry parses one reflog line of the form:
// "<old-sha> <new-sha> <committer> <time> <tz>\t<message>"
func parseRefLogEntry(line string) (RefLogEntry, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return RefLogEntry{}, errors.Errorf("malformed reflog line: %q", line)
	}
	oldSHA, newSHA := fields[0], fields[1]
	if !shaPattern.MatchString(newSHA) {
		return RefLogEntry{}, errors.Errorf("reflog target is not a valid sha: %q", newSHA)
	}
	return RefLogEntry{OldSHA: oldSHA, TargetSHA: newSHA}, nil
}

// Package registry discovers validation task documents under a
// directory tree and derives the execution metadata the runner needs:
// runtime requirements, estimated cost and the task-by-platform matrix.
package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/plugvet/plugvet/internal/descriptor"
	"github.com/plugvet/plugvet/internal/models"
)

const (
	// DescriptorSuffix marks files the registry treats as task documents.
	DescriptorSuffix = ".task.md"

	// DefaultCostCeiling caps EstimatedCost no matter how large a
	// document grows.
	DefaultCostCeiling = 25

	defaultParseConcurrency = 8
)

// ParseFailure records a document that could not be parsed. Failures
// never abort discovery.
type ParseFailure struct {
	Path string
	Err  error
}

// Notice is a non-fatal observation about a document, surfaced by the
// check and list commands.
type Notice struct {
	Path    string
	Message string
}

// Registry holds the descriptors found by Discover.
type Registry struct {
	parser      *descriptor.Parser
	costCeiling int
	concurrency int

	tasks    []*models.TaskDescriptor
	byName   map[string]*models.TaskDescriptor
	failures []ParseFailure
	notices  []Notice
}

// Option configures a Registry.
type Option func(*Registry)

// WithCostCeiling overrides the EstimatedCost cap.
func WithCostCeiling(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.costCeiling = n
		}
	}
}

// WithParseConcurrency bounds how many documents parse in parallel.
func WithParseConcurrency(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// New creates an empty registry that parses documents with parser.
func New(parser *descriptor.Parser, opts ...Option) *Registry {
	r := &Registry{
		parser:      parser,
		costCeiling: DefaultCostCeiling,
		concurrency: defaultParseConcurrency,
		byName:      map[string]*models.TaskDescriptor{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type parseOutcome struct {
	desc  *models.TaskDescriptor
	warns []descriptor.Warning
	err   error
}

// Discover walks root for task documents and parses them, replacing any
// previously discovered set. Individual parse failures are recorded and
// skipped; only an unreadable root or a cancelled context are fatal.
func (r *Registry) Discover(ctx context.Context, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving task root: %w", err)
	}
	if _, err := os.Stat(absRoot); err != nil {
		return fmt.Errorf("task root: %w", err)
	}

	var paths []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if d.IsDir() && path != absRoot && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if d.IsDir() && (d.Name() == "node_modules" || d.Name() == "vendor") {
			return fs.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), DescriptorSuffix) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", absRoot, err)
	}

	outcomes := make([]parseOutcome, len(paths))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	for i, path := range paths {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = r.parseOne(path)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("discovering tasks: %w", err)
	}

	// Merge in walk order so duplicate names resolve deterministically.
	r.tasks = nil
	r.byName = map[string]*models.TaskDescriptor{}
	r.failures = nil
	r.notices = nil
	for i, outcome := range outcomes {
		path := paths[i]
		if outcome.err != nil {
			slog.Warn("skipping task document", "path", path, "error", outcome.err)
			r.failures = append(r.failures, ParseFailure{Path: path, Err: outcome.err})
			continue
		}
		for _, w := range outcome.warns {
			r.notices = append(r.notices, Notice{Path: path, Message: w.String()})
		}
		if prev, ok := r.byName[outcome.desc.Name]; ok {
			slog.Warn("duplicate task name, keeping first",
				"name", outcome.desc.Name, "kept", prev.SourcePath, "ignored", path)
			r.notices = append(r.notices, Notice{
				Path:    path,
				Message: fmt.Sprintf("duplicate task name %q, keeping %s", outcome.desc.Name, prev.SourcePath),
			})
			continue
		}
		r.byName[outcome.desc.Name] = outcome.desc
		r.tasks = append(r.tasks, outcome.desc)
	}
	sort.Slice(r.tasks, func(i, j int) bool { return r.tasks[i].Name < r.tasks[j].Name })

	slog.Debug("discovery complete",
		"root", absRoot, "tasks", len(r.tasks), "failures", len(r.failures))
	return nil
}

func (r *Registry) parseOne(path string) parseOutcome {
	source, err := os.ReadFile(path)
	if err != nil {
		return parseOutcome{err: fmt.Errorf("reading descriptor: %w", err)}
	}
	desc, warns, err := r.parser.Parse(source)
	if err != nil {
		var perr *descriptor.ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return parseOutcome{err: err}
	}
	desc.SourcePath = path
	r.finalize(desc, bytes.Count(source, []byte("\n"))+1)
	return parseOutcome{desc: desc, warns: warns}
}

// finalize derives metadata the document itself does not declare.
func (r *Registry) finalize(desc *models.TaskDescriptor, lines int) {
	if !desc.Requirements.RequiresRuntime && needsRuntime(desc) {
		desc.Requirements.RequiresRuntime = true
	}
	desc.EstimatedCost = estimateCost(lines, len(desc.Sections), desc.PointCount(), r.costCeiling)
}

// runtimeKeywordRe matches language that implies the task needs a live
// engine runtime rather than a headless host.
var runtimeKeywordRe = regexp.MustCompile(`\b(editor|interactive|viewport|gpu|native)\b`)

func needsRuntime(desc *models.TaskDescriptor) bool {
	var b strings.Builder
	b.WriteString(desc.Name)
	b.WriteByte(' ')
	b.WriteString(desc.Purpose)
	for _, section := range desc.Sections {
		b.WriteByte(' ')
		b.WriteString(section.Title)
		for _, point := range section.Points {
			b.WriteByte(' ')
			b.WriteString(point.Description)
		}
	}
	return runtimeKeywordRe.MatchString(strings.ToLower(b.String()))
}

// estimateCost maps document size onto a unitless effort figure. It is
// non-decreasing in every input and capped at ceiling.
func estimateCost(lines, sections, points, ceiling int) int {
	cost := 1 + lines/40 + sections + points/2
	if cost > ceiling {
		cost = ceiling
	}
	return cost
}

// Tasks returns the discovered descriptors sorted by name.
func (r *Registry) Tasks() []*models.TaskDescriptor {
	out := make([]*models.TaskDescriptor, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// Task looks up one descriptor by name.
func (r *Registry) Task(name string) (*models.TaskDescriptor, bool) {
	desc, ok := r.byName[name]
	return desc, ok
}

// Len reports how many descriptors were discovered.
func (r *Registry) Len() int { return len(r.tasks) }

// Failures returns the documents that failed to parse.
func (r *Registry) Failures() []ParseFailure { return r.failures }

// Notices returns non-fatal observations gathered during discovery.
func (r *Registry) Notices() []Notice { return r.notices }

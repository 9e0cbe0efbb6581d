package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/depscope/depscope/pkg/classifier"
	"github.com/depscope/depscope/pkg/config"
	"github.com/depscope/depscope/pkg/extractor"
	"github.com/depscope/depscope/pkg/graph"
	"github.com/depscope/depscope/pkg/installed"
	"github.com/depscope/depscope/pkg/logger"
	"github.com/depscope/depscope/pkg/manifest"
	"github.com/depscope/depscope/pkg/peers"
	"github.com/depscope/depscope/pkg/registry"
	"github.com/depscope/depscope/pkg/resolver"
	"github.com/depscope/depscope/pkg/scanner"
)

// Options is the analysis options record.
type Options struct {
	// Scope selects which declaration buckets are analyzed:
	// production, development, peer, or all (default).
	Scope string

	// IncludeDev keeps devDependencies in scope when Scope is unset.
	IncludeDev bool

	// CheckPeerDependencies enables the peer-requirement analysis.
	CheckPeerDependencies bool

	// CheckLatest enriches unused/phantom issues via the Lookup.
	CheckLatest bool

	// MaxTraversalDepth bounds the installed-tree walk.
	MaxTraversalDepth int

	// ExcludePatterns are path-fragment patterns or doublestar globs.
	ExcludePatterns []string

	// FollowSymlinks lets the scanner descend into symlinked directories.
	FollowSymlinks bool

	// Workers sizes the extraction pool; 0 means NumCPU.
	Workers int

	// Config supplies aliases, ignore list and severity overrides.
	Config *config.Config

	// Lookup is the pluggable latest-version collaborator. Nil disables
	// the optional latest-version fields.
	Lookup registry.Lookup
}

// Analyzer runs the full dependency analysis for one project.
type Analyzer struct {
	opts Options
}

// New creates an Analyzer.
func New(opts Options) *Analyzer {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Analyzer{opts: opts}
}

// fileResult is one worker's output for a single file.
type fileResult struct {
	file       string
	extraction extractor.Extraction
	resolved   []resolvedRef
}

type resolvedRef struct {
	ref      extractor.ImportReference
	identity resolver.ModuleIdentity
}

// Analyze is the single entry point: (file tree, manifest, installed
// tree) in, (report, warnings) out. Only a missing or unparseable
// manifest is fatal.
func (a *Analyzer) Analyze(ctx context.Context, projectPath string) (*Report, error) {
	root, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve project path %s: %w", projectPath, err)
	}

	decl, err := manifest.Load(root)
	if err != nil {
		return nil, err
	}

	res, warnings, err := a.buildResolver(root)
	if err != nil {
		return nil, err
	}

	report := &Report{ProjectRoot: root, Warnings: warnings}

	var (
		usages      map[string][]classifier.Usage
		impGraph    *graph.ImportGraph
		scanned     map[string]bool
		degraded    int
		sourceWarns []string
		inst        *installed.Registry
	)

	// The source pipeline and the installed-tree walk are independent;
	// both must finish before classification, since phantom detection
	// needs the installed registry.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scanRes, err := scanner.Scan(root, scanner.Options{
			ExcludePatterns: append(a.opts.ExcludePatterns, a.opts.Config.Exclude...),
			FollowSymlinks:  a.opts.FollowSymlinks,
		})
		if err != nil {
			return err
		}
		sourceWarns = append(sourceWarns, scanRes.Warnings...)

		var extractWarns []string
		usages, impGraph, scanned, degraded, extractWarns = a.runExtraction(gctx, scanRes.Files, res)
		sourceWarns = append(sourceWarns, extractWarns...)
		return nil
	})

	g.Go(func() error {
		inst = installed.Walk(root, a.opts.MaxTraversalDepth)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Warnings = append(report.Warnings, sourceWarns...)

	report.Warnings = append(report.Warnings, inst.Warnings...)
	if !inst.Present {
		report.Warnings = append(report.Warnings,
			"no node_modules tree found; phantom detection disabled, undeclared imports reported as missing")
	}

	// Classification needs both sides.
	copts := classifier.DefaultOptions()
	copts.Scope = a.effectiveScope()
	copts.MissingContext = !inst.Present
	for _, name := range a.opts.Config.IgnorePackages {
		copts.IgnoreNames[name] = true
	}
	report.Classifications = classifier.Classify(usages, decl, inst, copts)

	cycles := impGraph.DetectCycles()
	report.Graph = GraphReport{Nodes: impGraph.Nodes(), Edges: impGraph.Edges()}
	report.Cycles = cycles

	if a.opts.CheckPeerDependencies {
		report.Peers = peers.Resolve(inst)
		report.Warnings = append(report.Warnings, report.Peers.Warnings...)
	}

	a.assembleIssues(report, root)
	report.Summary.Files = len(scanned)
	report.Summary.Degraded = degraded

	if a.opts.CheckLatest && a.opts.Lookup != nil {
		a.fetchLatest(report)
	}

	return report, nil
}

// runExtraction fans files out to a bounded worker pool. Workers share
// only the read-only resolver; the usage map and graph are merged from
// per-file results in this single collector goroutine, so no cross-worker
// mutation happens.
func (a *Analyzer) runExtraction(ctx context.Context, files []string, res *resolver.Resolver) (map[string][]classifier.Usage, *graph.ImportGraph, map[string]bool, int, []string) {
	scanned := make(map[string]bool, len(files))
	for _, f := range files {
		scanned[f] = true
	}

	jobs := make(chan string, len(files))
	results := make(chan fileResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < a.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results <- a.processFile(ctx, file, res)
			}
		}()
	}

	go func() {
		for _, f := range files {
			jobs <- f
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	usages := make(map[string][]classifier.Usage)
	impGraph := graph.New()
	for _, f := range files {
		impGraph.AddNode(f)
	}
	degraded := 0
	var warns []string

	for result := range results {
		if result.extraction.Degraded {
			degraded++
			warns = append(warns,
				fmt.Sprintf("degraded extraction for %s: structural parse failed, pattern scan used", result.file))
		}
		for _, rr := range result.resolved {
			switch rr.identity.Kind {
			case resolver.External:
				usages[rr.identity.Name] = append(usages[rr.identity.Name], classifier.Usage{
					File: rr.ref.File,
					Line: rr.ref.Line,
					Kind: rr.ref.Kind,
				})
			case resolver.Local:
				if scanned[rr.identity.Path] {
					impGraph.AddEdge(result.file, rr.identity.Path)
				}
			case resolver.Builtin:
				// Runtime builtins are excluded from classification.
			}
		}
	}

	sort.Strings(warns)
	return usages, impGraph, scanned, degraded, warns
}

func (a *Analyzer) processFile(ctx context.Context, file string, res *resolver.Resolver) fileResult {
	content, err := os.ReadFile(file)
	if err != nil {
		logger.Debugf("analyzer: cannot read %s: %v", file, err)
		return fileResult{file: file}
	}

	ext := extractor.Extract(ctx, file, content)
	out := fileResult{file: file, extraction: ext}
	for _, ref := range ext.Refs {
		out.resolved = append(out.resolved, resolvedRef{
			ref:      ref,
			identity: res.Resolve(ref.RawSpecifier, file),
		})
	}
	return out
}

func (a *Analyzer) buildResolver(root string) (*resolver.Resolver, []string, error) {
	var warnings []string

	baseURL, mappings, warn := resolver.LoadTSConfig(root)
	if warn != "" {
		warnings = append(warnings, warn)
	}

	var aliases []resolver.Alias
	aliasKeys := make([]string, 0, len(a.opts.Config.Aliases))
	for find := range a.opts.Config.Aliases {
		aliasKeys = append(aliasKeys, find)
	}
	sort.Strings(aliasKeys)
	for _, find := range aliasKeys {
		aliases = append(aliases, resolver.Alias{Find: find, Replace: a.opts.Config.Aliases[find]})
	}

	res, err := resolver.New(resolver.Config{
		ProjectRoot:  root,
		BaseURL:      baseURL,
		PathMappings: mappings,
		Aliases:      aliases,
	})
	if err != nil {
		return nil, nil, err
	}
	return res, warnings, nil
}

func (a *Analyzer) effectiveScope() string {
	if a.opts.Scope != "" {
		return a.opts.Scope
	}
	if !a.opts.IncludeDev {
		return "production"
	}
	return "all"
}

// assembleIssues flattens classifications, cycles and peer results into
// the single issue list.
func (a *Analyzer) assembleIssues(report *Report, root string) {
	cfg := a.opts.Config

	for _, c := range report.Classifications {
		switch c.State {
		case classifier.Unused:
			report.Issues = append(report.Issues, Issue{
				Kind:       KindUnused,
				Severity:   cfg.SeverityFor(string(KindUnused), c.Severity),
				Confidence: c.Confidence,
				Name:       c.Name,
				Message:    fmt.Sprintf("%s is declared (%s) but never imported", c.Name, c.DeclaredType),
				Suggestion: c.Suggestion,
			})
			report.Summary.Unused++
		case classifier.Missing:
			report.Issues = append(report.Issues, Issue{
				Kind:       KindMissing,
				Severity:   cfg.SeverityFor(string(KindMissing), c.Severity),
				Confidence: c.Confidence,
				Name:       c.Name,
				Message:    fmt.Sprintf("%s is imported by %d file(s) but not declared or installed", c.Name, c.FileCount),
				Suggestion: c.Suggestion,
				Evidence:   usageEvidence(c.Usages, root),
			})
			report.Summary.Missing++
		case classifier.Phantom:
			report.Issues = append(report.Issues, Issue{
				Kind:       KindPhantom,
				Severity:   cfg.SeverityFor(string(KindPhantom), c.Severity),
				Confidence: c.Confidence,
				Name:       c.Name,
				Message:    fmt.Sprintf("%s is imported by %d file(s) but only present transitively (installed: %s)", c.Name, c.FileCount, strings.Join(c.InstalledVersions, ", ")),
				Suggestion: c.Suggestion,
				Evidence:   usageEvidence(c.Usages, root),
			})
			report.Summary.Phantom++
		case classifier.Used:
			if c.DevOnlyMismatch {
				report.Issues = append(report.Issues, Issue{
					Kind:       KindDevMismatch,
					Severity:   cfg.SeverityFor(string(KindDevMismatch), "info"),
					Confidence: "medium",
					Name:       c.Name,
					Message:    fmt.Sprintf("%s is declared dev-only but imported by runtime code", c.Name),
					Suggestion: c.Suggestion,
					Evidence:   usageEvidence(c.Usages, root),
				})
				report.Summary.DevMismatch++
			}
		}
	}

	for _, cycle := range report.Cycles {
		evidence := make([]Evidence, 0, len(cycle.Nodes))
		for _, node := range cycle.Nodes {
			evidence = append(evidence, Evidence{File: relPath(root, node)})
		}
		report.Issues = append(report.Issues, Issue{
			Kind:     KindCircular,
			Severity: cfg.SeverityFor(string(KindCircular), cycle.Severity),
			Message:  fmt.Sprintf("circular import chain of %d file(s): %s", len(cycle.Nodes), strings.Join(relPaths(root, cycle.Nodes), " -> ")),
			Evidence: evidence,
		})
		report.Summary.Circular++
	}

	if report.Peers != nil {
		for _, m := range report.Peers.Missing {
			report.Issues = append(report.Issues, Issue{
				Kind:       KindPeerMissing,
				Severity:   cfg.SeverityFor(string(KindPeerMissing), "error"),
				Confidence: "high",
				Name:       m.Peer,
				Message:    fmt.Sprintf("%s requires peer %s@%s but it is not installed", m.Requirement.Requirer, m.Peer, m.Requirement.Range),
				Suggestion: fmt.Sprintf("install %s matching %s", m.Peer, m.Requirement.Range),
			})
			report.Summary.PeerMissing++
		}
		for _, c := range report.Peers.Conflicts {
			names := make([]string, 0, len(c.Requirements))
			for _, r := range c.Requirements {
				names = append(names, fmt.Sprintf("%s (%s)", r.Requirer, r.Range))
			}
			msg := fmt.Sprintf("peer %s: %s conflict between %s", c.Peer, c.Type, strings.Join(names, ", "))
			if len(c.InstalledVersions) > 0 {
				msg += fmt.Sprintf("; installed: %s", strings.Join(c.InstalledVersions, ", "))
			}
			issue := Issue{
				Kind:       KindPeerConflict,
				Severity:   cfg.SeverityFor(string(KindPeerConflict), "error"),
				Confidence: c.Confidence,
				Name:       c.Peer,
				Message:    msg,
			}
			if c.Suggestion != "" {
				issue.Suggestion = fmt.Sprintf("align all requirers on %s", c.Suggestion)
			}
			report.Issues = append(report.Issues, issue)
			report.Summary.PeerConflicts++
		}
	}
}

// fetchLatest enriches unused and phantom issues with registry data. Any
// lookup failure degrades only these optional fields.
func (a *Analyzer) fetchLatest(report *Report) {
	report.Latest = make(map[string]registry.VersionInfo)
	for _, issue := range report.Issues {
		if issue.Kind != KindUnused && issue.Kind != KindPhantom {
			continue
		}
		if _, done := report.Latest[issue.Name]; done {
			continue
		}
		info, err := a.opts.Lookup.Latest(issue.Name)
		if err != nil {
			logger.Debugf("analyzer: latest lookup for %s failed: %v", issue.Name, err)
			continue
		}
		report.Latest[issue.Name] = info
	}
}

func usageEvidence(usages []classifier.Usage, root string) []Evidence {
	out := make([]Evidence, 0, len(usages))
	for _, u := range usages {
		out = append(out, Evidence{File: relPath(root, u.File), Line: u.Line, Detail: string(u.Kind)})
	}
	return out
}

func relPaths(root string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, relPath(root, p))
	}
	return out
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

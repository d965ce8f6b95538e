// Package profiler implements the session-scoped profiler/debugger
// supplemented in SPEC_FULL.md §4.L: per-call-site hit counters, a
// breakpoint registry keyed on (signature_name, arg_types), watches that
// fire when a signature's recorded decision changes class from one Record
// call to the next, and a bounded frame history ring buffer.
//
// Grounded on the teacher's internal/repl/repl.go and
// internal/repl/repl_commands.go: the REPL's liner-backed read loop and
// fatih/color status coloring are kept, rebuilt here over classify.Decision
// frames instead of the teacher's core/eval/effects/runtime evaluation
// state, since the dispatch core has no expression evaluator of its own.
package profiler

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/janus-lang/janus-sub003/internal/classify"
	"github.com/janus-lang/janus-sub003/internal/registry"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// DefaultFrameHistoryCapacity bounds the frame history ring buffer.
const DefaultFrameHistoryCapacity = 256

// Breakpoint is keyed on (signature_name, arg_types); a call site
// matches when both the name and the full argument type sequence agree.
type Breakpoint struct {
	SignatureName string
	ArgTypes      []registry.TypeId
}

func (b Breakpoint) key() string {
	var sb strings.Builder
	sb.WriteString(b.SignatureName)
	for _, t := range b.ArgTypes {
		fmt.Fprintf(&sb, ":%d", t)
	}
	return sb.String()
}

// WatchCallback fires when a watched signature's recorded decision changes
// class (static, dynamic or no_dispatch) from one Record call to the next.
type WatchCallback func(signatureName string, previous, current classify.Decision)

// Frame is one recorded dispatch decision.
type Frame struct {
	CallSite classify.CallSite
	Decision classify.Decision
}

func frameClass(d classify.Decision) string {
	switch d.(type) {
	case *classify.StaticDecision:
		return "static"
	case *classify.DynamicDecision:
		return "dynamic"
	default:
		return "no_dispatch"
	}
}

// Profiler tracks hit counters, breakpoints, watches, and frame history
// for one compilation session.
type Profiler struct {
	hitCounts map[string]int

	breakpoints map[string]Breakpoint

	watches      map[string]WatchCallback
	lastDecision map[string]classify.Decision

	history    []Frame
	historyCap int
}

// New creates a Profiler with the default frame history capacity.
func New() *Profiler {
	return &Profiler{
		hitCounts:    make(map[string]int),
		breakpoints:  make(map[string]Breakpoint),
		watches:      make(map[string]WatchCallback),
		lastDecision: make(map[string]classify.Decision),
		historyCap:   DefaultFrameHistoryCapacity,
	}
}

// SetBreakpoint registers a breakpoint on (signature_name, arg_types).
func (p *Profiler) SetBreakpoint(bp Breakpoint) {
	p.breakpoints[bp.key()] = bp
}

// ClearBreakpoint removes a previously set breakpoint.
func (p *Profiler) ClearBreakpoint(bp Breakpoint) {
	delete(p.breakpoints, bp.key())
}

// Watch registers cb to fire whenever signatureName's recorded decision
// class changes from one Record call to the next.
func (p *Profiler) Watch(signatureName string, cb WatchCallback) {
	p.watches[signatureName] = cb
}

// Record logs one dispatch decision: bumps the call-site hit counter,
// checks breakpoints, fires watches on a class change, and appends to
// the frame history ring buffer.
func (p *Profiler) Record(site classify.CallSite, decision classify.Decision) (hit bool) {
	p.hitCounts[site.Name]++

	bp := Breakpoint{SignatureName: site.Name, ArgTypes: site.ArgTypes}
	if _, ok := p.breakpoints[bp.key()]; ok {
		hit = true
	}

	if cb, ok := p.watches[site.Name]; ok {
		if prev, seen := p.lastDecision[site.Name]; seen && frameClass(prev) != frameClass(decision) {
			cb(site.Name, prev, decision)
		}
	}
	p.lastDecision[site.Name] = decision

	p.history = append(p.history, Frame{CallSite: site, Decision: decision})
	if len(p.history) > p.historyCap {
		p.history = p.history[len(p.history)-p.historyCap:]
	}

	return hit
}

// HitCount returns the number of times signatureName has been dispatched
// this session.
func (p *Profiler) HitCount(signatureName string) int {
	return p.hitCounts[signatureName]
}

// History returns the frame history, oldest first.
func (p *Profiler) History() []Frame {
	return p.history
}

// Debugger wraps a Profiler with an interactive liner-backed prompt for
// the CLI's debug subcommand.
type Debugger struct {
	profiler *Profiler
	line     *liner.State
}

// NewDebugger creates a Debugger over profiler.
func NewDebugger(profiler *Profiler) *Debugger {
	return &Debugger{profiler: profiler, line: liner.NewLiner()}
}

// Close releases the underlying liner state.
func (d *Debugger) Close() error {
	return d.line.Close()
}

// FormatFrame renders one frame with class-colored status, matching the
// teacher's color-function convention in repl.go.
func FormatFrame(f Frame) string {
	switch d := f.Decision.(type) {
	case *classify.StaticDecision:
		return fmt.Sprintf("%s %s %s", green("static"), bold(f.CallSite.Name), cyan(d.Tier.String()))
	case *classify.DynamicDecision:
		return fmt.Sprintf("%s %s %s", yellow("dynamic"), bold(f.CallSite.Name), cyan(d.Strategy.String()))
	default:
		return fmt.Sprintf("%s %s", red("no_dispatch"), bold(f.CallSite.Name))
	}
}

// Prompt reads one debugger command line, with history support.
func (d *Debugger) Prompt(promptText string) (string, error) {
	line, err := d.line.Prompt(promptText)
	if err == nil && line != "" {
		d.line.AppendHistory(line)
	}
	return line, err
}

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v6"
	"github.com/vbauerster/mpb/v6/decor"

	"chunk-combiner/pkg/chunk"
)

var (
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

// Reporter prints the combine lifecycle to a console. With live set, each
// chunk gets a progress bar; otherwise one line per chunk and its final
// percentage is printed.
type Reporter struct {
	out  io.Writer
	live bool

	progress *mpb.Progress
	bar      *mpb.Bar
	barDone  int64

	// last is the newest plain-mode event, printed once its chunk is over.
	last *chunk.Progress
}

func NewReporter(out io.Writer, live bool) *Reporter {
	return &Reporter{out: out, live: live}
}

// Stdout returns a reporter on a colour-capable stdout. Bars are used only
// when stdout is a terminal and noProgress is false.
func Stdout(noProgress bool) *Reporter {
	fd := os.Stdout.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return NewReporter(colorable.NewColorableStdout(), tty && !noProgress)
}

func (r *Reporter) Found(set *chunk.Set) {
	fmt.Fprintf(r.out, "\n%s Found %s chunk(s) in %s:\n", cyan("•"), yellow(Comma(len(set.Chunks))), yellow(set.Dir))
	for _, c := range set.Chunks {
		fmt.Fprintf(r.out, "    %s (%s)\n", c.Name, Bytes(c.Size))
	}
}

func (r *Reporter) Start(set *chunk.Set, output string) {
	fmt.Fprintf(r.out, "\n%s Combining %s chunks into: %s\n", cyan("•"), yellow(Comma(len(set.Chunks))), yellow(output))
	fmt.Fprintf(r.out, "%s Total size: %s\n\n", cyan("•"), yellow(Bytes(set.TotalSize())))
}

// OnChunk is a chunk.Options.OnChunk callback.
func (r *Reporter) OnChunk(index, count int, ref chunk.Ref) {
	label := fmt.Sprintf("[%d/%d] %s", index+1, count, ref.Name)
	if !r.live {
		r.flushProgress()
		fmt.Fprintf(r.out, "  %s (%s)\n", label, Bytes(ref.Size))
		return
	}
	r.completeBar()
	if r.progress == nil {
		r.progress = mpb.New(mpb.WithOutput(r.out), mpb.WithWidth(40))
	}
	r.bar = r.progress.AddBar(ref.Size,
		mpb.PrependDecorators(
			decor.Name("  "+label, decor.WCSyncSpaceR),
			decor.CountersKibiByte("% .2f / % .2f", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 7}),
		),
	)
	r.barDone = 0
}

// OnProgress is a chunk.Options.OnProgress callback.
func (r *Reporter) OnProgress(p chunk.Progress) {
	if r.live {
		if r.bar != nil {
			r.bar.IncrInt64(int64(p.Block))
			r.barDone += int64(p.Block)
		}
		return
	}
	r.last = &p
}

func (r *Reporter) flushProgress() {
	if r.last != nil {
		fmt.Fprintf(r.out, "    Progress: %6.2f%%\n", r.last.Percent)
		r.last = nil
	}
}

func (r *Reporter) completeBar() {
	if r.bar != nil {
		r.bar.SetTotal(r.barDone, true)
		r.bar = nil
	}
}

func (r *Reporter) wait(abort bool) {
	r.flushProgress()
	if r.bar != nil && abort {
		r.bar.Abort(false)
		r.bar = nil
	}
	r.completeBar()
	if r.progress != nil {
		r.progress.Wait()
		r.progress = nil
	}
}

func (r *Reporter) Finish(res *chunk.Result) {
	r.wait(false)
	fmt.Fprintf(r.out, "\n%s Done! Output: %s\n", green("✓"), yellow(res.Output))
	fmt.Fprintf(r.out, "  %-8s %s bytes (%s)\n", "Size:", Comma64(res.Size), Bytes(res.Size))
	for _, d := range res.Digests {
		fmt.Fprintf(r.out, "  %-8s %s\n", d.Name+":", d.Hex)
	}
}

func (r *Reporter) Manifest(path string) {
	fmt.Fprintf(r.out, "%s Manifest: %s\n", cyan("•"), yellow(filepath.Clean(path)))
}

func (r *Reporter) Aborted() {
	r.wait(true)
	fmt.Fprintln(r.out, "Aborted.")
}

func (r *Reporter) Fail(err error) {
	r.wait(true)
	fmt.Fprintf(r.out, "\n%s %s: %v\n", red("✗"), chunk.Classify(err), err)
}

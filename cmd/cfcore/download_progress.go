package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// progressPrinter renders a single-line progress bar with throughput and ETA.
// A nil *progressPrinter ignores all calls.
type progressPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	label    string
	start    time.Time
	lastDraw time.Time
	n        int64
	total    int64
}

func newProgressPrinter(out io.Writer, label string) *progressPrinter {
	return &progressPrinter{out: out, label: label, start: time.Now()}
}

func (p *progressPrinter) update(done, total int64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n, p.total = done, total
	if time.Since(p.lastDraw) < 200*time.Millisecond && (total <= 0 || done < total) {
		return
	}
	p.lastDraw = time.Now()
	p.draw()
}

func (p *progressPrinter) draw() {
	elapsed := time.Since(p.start).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(p.n) / elapsed
	}
	eta := "-"
	if rate > 0 && p.total > 0 && p.n < p.total {
		eta = fmt.Sprintf("%ds", int(float64(p.total-p.n)/rate+0.5))
	}
	fmt.Fprintf(p.out, "\r%s %6.2f%%  %8s/s  ETA %s  %s/%s %s",
		renderBar(p.n, p.total, 30),
		pct(p.n, p.total),
		ifnz(rate, "-"),
		eta,
		humanize.Bytes(uint64(p.n)),
		humanize.Bytes(uint64(max64(p.total, p.n))),
		p.label,
	)
}

// done ends the progress line.
func (p *progressPrinter) done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.lastDraw.IsZero() {
		fmt.Fprint(p.out, "\n")
	}
}

func renderBar(completed, total int64, width int) string {
	if total <= 0 {
		total = 1
	}
	ratio := float64(completed) / float64(total)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(width))
	if filled >= width {
		return "[" + strings.Repeat("=", width) + "]"
	}
	return "[" + strings.Repeat("=", filled) + ">" + strings.Repeat(" ", width-filled-1) + "]"
}

func pct(a, b int64) float64 {
	if b <= 0 {
		return 0
	}
	return float64(a) * 100 / float64(b)
}

func ifnz(v float64, def string) string {
	if v <= 0 {
		return def
	}
	return humanize.Bytes(uint64(v))
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
